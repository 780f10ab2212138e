// Package pulse is a registry of declared metrics for latency
// sensitive services, together with the primitive metric kinds that
// live in it.
//
// The registry is explicit: an application constructs one, registers
// its metrics, and passes it to whatever exposes them. There is no
// hidden global state. The heavier instruments live in subpackages —
// histograms in histogram, moving windows in heatmap, token buckets in
// ratelimit — and the histogram and heatmap kinds register here
// through small adapters.
package pulse

import (
	"github.com/zeebo/errs"

	"github.com/zeebo/pulse/heatmap"
	"github.com/zeebo/pulse/histogram"
)

// Error classes for registry operations.
var (
	// ErrDuplicate means a metric with the name is already
	// registered.
	ErrDuplicate = errs.Class("pulse: duplicate metric")

	// ErrInvalidName means the metric name is empty or contains
	// control characters.
	ErrInvalidName = errs.Class("pulse: invalid name")
)

// Metric is the capability surface every registered metric exposes.
type Metric interface {
	// Enabled reports whether the metric is currently recording.
	Enabled() bool

	// Value returns the current reading. The concrete type depends
	// on the metric kind: uint64 for counters, int64 for gauges, and
	// the instrument itself for histogram backed kinds.
	Value() any
}

// HistogramMetric wraps an atomic histogram for registration.
func HistogramMetric(h *histogram.AtomicHistogram) Metric {
	return histogramMetric{h: h}
}

type histogramMetric struct {
	h *histogram.AtomicHistogram
}

func (m histogramMetric) Enabled() bool { return true }
func (m histogramMetric) Value() any    { return m.h }

// HeatmapMetric wraps a heatmap for registration.
func HeatmapMetric(h *heatmap.Heatmap) Metric {
	return heatmapMetric{h: h}
}

type heatmapMetric struct {
	h *heatmap.Heatmap
}

func (m heatmapMetric) Enabled() bool { return true }
func (m heatmapMetric) Value() any    { return m.h }
