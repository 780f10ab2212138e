package pulse

import (
	"fmt"
	"strings"
)

// Format selects an exposition style for formatted metrics.
type Format int

const (
	// FormatPlain renders just the metric name.
	FormatPlain Format = iota

	// FormatPrometheus renders the name followed by the metadata as
	// labels.
	FormatPrometheus
)

// Formatter renders a registered metric's identity in some exposition
// format. Exposers may substitute their own.
type Formatter func(entry *Entry, format Format) string

// DefaultFormatter renders the plain name, or name{k="v",...} for the
// Prometheus format. The name and description labels are not emitted
// as Prometheus labels since they are carried elsewhere in that
// exposition.
func DefaultFormatter(entry *Entry, format Format) string {
	switch format {
	case FormatPrometheus:
		var labels []string
		entry.Labels(func(label, value string) bool {
			if label != "name" && label != "description" {
				labels = append(labels, fmt.Sprintf("%s=%q", label, value))
			}
			return true
		})
		return fmt.Sprintf("%s{%s}", entry.Name(), strings.Join(labels, ","))
	default:
		return entry.Name()
	}
}
