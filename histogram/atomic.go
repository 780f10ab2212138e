package histogram

import "sync/atomic"

// AtomicHistogram stores a distribution of uint64 values in buckets of
// atomic 64 bit counters, so any number of goroutines may record into
// it concurrently.
//
// It cannot report percentiles directly; Load or Drain the counters
// into a Histogram first. A loaded snapshot is not a linearizable
// point: it may tear between counters, but never within one, so the
// result is always a sum of some subset of the completed increments.
type AtomicHistogram struct {
	config  Config
	buckets []atomic.Uint64
}

// NewAtomic constructs an atomic histogram from a grouping power and a
// max value power.
func NewAtomic(groupingPower, maxValuePower uint8) (*AtomicHistogram, error) {
	config, err := NewConfig(0, groupingPower, maxValuePower)
	if err != nil {
		return nil, err
	}
	return NewAtomicWithConfig(config), nil
}

// NewAtomicWithConfig constructs an atomic histogram using the provided
// layout.
func NewAtomicWithConfig(config Config) *AtomicHistogram {
	return &AtomicHistogram{
		config:  config,
		buckets: make([]atomic.Uint64, config.TotalBuckets()),
	}
}

// Increment adds a single observation of the value.
func (h *AtomicHistogram) Increment(value uint64) error {
	return h.Add(value, 1)
}

// Add adds count observations of the value. The bucket counter wraps
// on overflow.
func (h *AtomicHistogram) Add(value, count uint64) error {
	index, err := h.config.ValueToIndex(value)
	if err != nil {
		return err
	}
	h.buckets[index].Add(count)
	return nil
}

// Config returns the bucket layout.
func (h *AtomicHistogram) Config() Config {
	return h.config
}

// AsSlice returns the raw atomic counters. The slice aliases the
// histogram's storage.
func (h *AtomicHistogram) AsSlice() []atomic.Uint64 {
	return h.buckets
}

// Load copies the counters into a new Histogram without resetting them.
func (h *AtomicHistogram) Load() *Histogram {
	buckets := make([]uint64, len(h.buckets))
	for i := range h.buckets {
		buckets[i] = h.buckets[i].Load()
	}
	return &Histogram{config: h.config, buckets: buckets}
}

// Drain swaps every counter with zero, returning the old counts as a
// new Histogram. Increments racing with a drain land in exactly one of
// the drained histogram or the reset counters.
func (h *AtomicHistogram) Drain() *Histogram {
	buckets := make([]uint64, len(h.buckets))
	for i := range h.buckets {
		buckets[i] = h.buckets[i].Swap(0)
	}
	return &Histogram{config: h.config, buckets: buckets}
}

// SubtractAndClear swaps every counter of other with zero and subtracts
// the old value from the corresponding counter of h, wrapping on
// underflow. This retires a time slice from a running summary in one
// pass.
func (h *AtomicHistogram) SubtractAndClear(other *AtomicHistogram) error {
	if h.config != other.config {
		return IncompatibleParameters.New("bucket layouts differ")
	}
	for i := range h.buckets {
		if v := other.buckets[i].Swap(0); v != 0 {
			h.buckets[i].Add(^v + 1)
		}
	}
	return nil
}
