package pulse

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash"
)

// Entry is a registered metric: a name, flat string metadata, and the
// metric itself.
type Entry struct {
	name     string
	metadata map[string]string
	metric   Metric
	series   uint64
}

// Name returns the metric's registered name.
func (e *Entry) Name() string { return e.name }

// Metric returns the registered metric.
func (e *Entry) Metric() Metric { return e.metric }

// Metadata returns the value for a metadata label, if present.
func (e *Entry) Metadata(label string) (string, bool) {
	v, ok := e.metadata[label]
	return v, ok
}

// Labels calls fn for each metadata label in sorted order.
func (e *Entry) Labels(fn func(label, value string) bool) {
	labels := make([]string, 0, len(e.metadata))
	for k := range e.metadata {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	for _, k := range labels {
		if !fn(k, e.metadata[k]) {
			return
		}
	}
}

// Series returns a stable 64 bit identifier for the metric's time
// series, derived from the name and metadata. Two entries with the
// same name and metadata always share it, across processes and
// restarts.
func (e *Entry) Series() uint64 { return e.series }

func computeSeries(name string, metadata map[string]string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(name)

	labels := make([]string, 0, len(metadata))
	for k := range metadata {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	for _, k := range labels {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(k)
		_, _ = d.WriteString("\x01")
		_, _ = d.WriteString(metadata[k])
	}
	return d.Sum64()
}

// Registry holds an application's declared metrics. It is safe for
// concurrent use; iteration observes the registration order.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []*Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Register adds a metric under a unique name with optional metadata.
// The metadata map is copied.
func (r *Registry) Register(name string, metric Metric, metadata map[string]string) (*Entry, error) {
	if !validName(name) {
		return nil, ErrInvalidName.New("%q", name)
	}

	copied := make(map[string]string, len(metadata))
	for k, v := range metadata {
		copied[k] = v
	}

	entry := &Entry{
		name:     name,
		metadata: copied,
		metric:   metric,
		series:   computeSeries(name, copied),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; ok {
		return nil, ErrDuplicate.New("%q", name)
	}
	r.entries[name] = entry
	r.order = append(r.order, entry)

	return entry, nil
}

// Get returns the entry registered under the name, if any.
func (r *Registry) Get(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	return entry, ok
}

// Deregister removes the entry registered under the name, reporting
// whether it was present.
func (r *Registry) Deregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; !ok {
		return false
	}
	delete(r.entries, name)

	for i, entry := range r.order {
		if entry.name == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered metrics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Each calls fn for every entry in registration order until fn
// returns false. Registration and deregistration may not happen from
// inside fn.
func (r *Registry) Each(fn func(*Entry) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.order {
		if !fn(entry) {
			return
		}
	}
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}
