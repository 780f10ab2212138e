package histogram

import (
	"math"
	"math/bits"
	"sort"
)

// Histogram stores a distribution of uint64 values in buckets of plain
// 64 bit counters. It is not safe for concurrent use; see
// AtomicHistogram for the concurrent variant.
type Histogram struct {
	config  Config
	buckets []uint64
}

// New constructs a histogram from a grouping power and a max value
// power. See Config for the meaning of the parameters; the linear
// region width parameter a is zero.
func New(groupingPower, maxValuePower uint8) (*Histogram, error) {
	config, err := NewConfig(0, groupingPower, maxValuePower)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(config), nil
}

// NewWithConfig constructs a histogram using the provided layout.
func NewWithConfig(config Config) *Histogram {
	return &Histogram{
		config:  config,
		buckets: make([]uint64, config.TotalBuckets()),
	}
}

// FromBuckets constructs a histogram from raw bucket counts. The number
// of buckets must match the layout.
func FromBuckets(groupingPower, maxValuePower uint8, buckets []uint64) (*Histogram, error) {
	config, err := NewConfig(0, groupingPower, maxValuePower)
	if err != nil {
		return nil, err
	}
	if config.TotalBuckets() != len(buckets) {
		return nil, IncompatibleParameters.New(
			"expected %d buckets, got %d", config.TotalBuckets(), len(buckets))
	}

	copied := make([]uint64, len(buckets))
	copy(copied, buckets)

	return &Histogram{config: config, buckets: copied}, nil
}

// Increment adds a single observation of the value.
func (h *Histogram) Increment(value uint64) error {
	return h.Add(value, 1)
}

// Add adds count observations of the value. The bucket counter wraps on
// overflow.
func (h *Histogram) Add(value, count uint64) error {
	index, err := h.config.ValueToIndex(value)
	if err != nil {
		return err
	}
	h.buckets[index] += count
	return nil
}

// AsSlice returns the raw bucket counters. The slice aliases the
// histogram's storage.
func (h *Histogram) AsSlice() []uint64 {
	return h.buckets
}

// Config returns the bucket layout.
func (h *Histogram) Config() Config {
	return h.config
}

// Clone returns a deep copy.
func (h *Histogram) Clone() *Histogram {
	buckets := make([]uint64, len(h.buckets))
	copy(buckets, h.buckets)
	return &Histogram{config: h.config, buckets: buckets}
}

// Each calls fn for every bucket in index order until fn returns false.
func (h *Histogram) Each(fn func(Bucket) bool) {
	for i, count := range h.buckets {
		lo, hi := h.config.IndexToRange(i)
		if !fn(Bucket{count: count, lo: lo, hi: hi}) {
			return
		}
	}
}

// Percentile is a tracked percentile, pairing the requested percentile
// with the bucket that holds it.
type Percentile struct {
	Percentile float64
	Bucket     Bucket
}

// Percentiles returns the buckets holding each of the requested
// percentiles, sorted ascending by percentile. Each percentile must be
// in the inclusive range 0.0 to 100.0. Returns Empty if the histogram
// holds no observations.
func (h *Histogram) Percentiles(percentiles ...float64) ([]Percentile, error) {
	sorted := make([]float64, len(percentiles))
	copy(sorted, percentiles)
	sort.Float64s(sorted)

	for _, p := range sorted {
		if math.IsNaN(p) || p < 0.0 || p > 100.0 {
			return nil, InvalidPercentile.New("percentile %v not in 0.0..=100.0", p)
		}
	}

	// counts accumulate in 128 bits so buckets holding u64-max counts
	// cannot overflow the walk
	total := totalCount(h.buckets)
	if total.isZero() {
		return nil, Empty.New("no observations")
	}

	result := make([]Percentile, 0, len(sorted))

	idx := 0
	partial := u128{}
	partial = partial.add(h.buckets[idx])

	for _, p := range sorted {
		// the ceiling target is clamped to one so the 0th percentile
		// lands on the first non-empty bucket
		target := u128FromFloat(math.Ceil(p / 100.0 * total.float()))
		if target.isZero() {
			target = u128{lo: 1}
		}

		for {
			if partial.cmp(target) >= 0 {
				lo, hi := h.config.IndexToRange(idx)
				result = append(result, Percentile{
					Percentile: p,
					Bucket:     Bucket{count: h.buckets[idx], lo: lo, hi: hi},
				})
				break
			}
			if idx == len(h.buckets)-1 {
				break
			}
			idx++
			partial = partial.add(h.buckets[idx])
		}
	}

	return result, nil
}

// Percentile returns the bucket holding the requested percentile.
func (h *Histogram) Percentile(percentile float64) (Bucket, error) {
	ps, err := h.Percentiles(percentile)
	if err != nil {
		return Bucket{}, err
	}
	return ps[0].Bucket, nil
}

// Downsample returns a new histogram with a smaller grouping power.
// Every step down roughly halves the number of buckets while doubling
// the relative error. Each non-empty bucket's count is re-added at the
// bucket's lower bound; since buckets never split when coarsening, any
// value within the bucket maps to the same target.
func (h *Histogram) Downsample(groupingPower uint8) (*Histogram, error) {
	if groupingPower >= h.config.GroupingPower() {
		return nil, MaxPowerTooLow.New(
			"grouping power %d must be less than %d", groupingPower, h.config.GroupingPower())
	}

	a, _, n := h.config.Params()
	config, err := NewConfig(a, groupingPower, n)
	if err != nil {
		return nil, err
	}

	out := NewWithConfig(config)
	for i, count := range h.buckets {
		if count != 0 {
			if err := out.Add(h.config.IndexToLowerBound(i), count); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// CheckedAdd returns a new histogram holding the bucketwise sum of the
// two histograms. It fails with IncompatibleParameters if the layouts
// differ and with Overflow if any bucket would wrap.
func (h *Histogram) CheckedAdd(other *Histogram) (*Histogram, error) {
	if h.config != other.config {
		return nil, IncompatibleParameters.New("bucket layouts differ")
	}

	result := h.Clone()
	for i, v := range other.buckets {
		sum, carry := bits.Add64(result.buckets[i], v, 0)
		if carry != 0 {
			return nil, Overflow.New("bucket %d", i)
		}
		result.buckets[i] = sum
	}
	return result, nil
}

// WrappingAdd is CheckedAdd with wrapping bucket arithmetic.
func (h *Histogram) WrappingAdd(other *Histogram) (*Histogram, error) {
	if h.config != other.config {
		return nil, IncompatibleParameters.New("bucket layouts differ")
	}

	result := h.Clone()
	for i, v := range other.buckets {
		result.buckets[i] += v
	}
	return result, nil
}

// CheckedSub returns a new histogram holding the bucketwise difference
// of the two histograms. It fails with IncompatibleParameters if the
// layouts differ and with Overflow if any bucket would wrap.
func (h *Histogram) CheckedSub(other *Histogram) (*Histogram, error) {
	if h.config != other.config {
		return nil, IncompatibleParameters.New("bucket layouts differ")
	}

	result := h.Clone()
	for i, v := range other.buckets {
		diff, borrow := bits.Sub64(result.buckets[i], v, 0)
		if borrow != 0 {
			return nil, Overflow.New("bucket %d", i)
		}
		result.buckets[i] = diff
	}
	return result, nil
}

// WrappingSub is CheckedSub with wrapping bucket arithmetic.
func (h *Histogram) WrappingSub(other *Histogram) (*Histogram, error) {
	if h.config != other.config {
		return nil, IncompatibleParameters.New("bucket layouts differ")
	}

	result := h.Clone()
	for i, v := range other.buckets {
		result.buckets[i] -= v
	}
	return result, nil
}

// u128 is an unsigned 128 bit accumulator for bucket count sums.
type u128 struct {
	hi, lo uint64
}

func (u u128) add(v uint64) u128 {
	lo, carry := bits.Add64(u.lo, v, 0)
	return u128{hi: u.hi + carry, lo: lo}
}

func (u u128) cmp(v u128) int {
	switch {
	case u.hi != v.hi:
		if u.hi < v.hi {
			return -1
		}
		return 1
	case u.lo != v.lo:
		if u.lo < v.lo {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func (u u128) isZero() bool {
	return u.hi == 0 && u.lo == 0
}

func (u u128) float() float64 {
	return float64(u.hi)*float64(1<<32)*float64(1<<32) + float64(u.lo)
}

func u128FromFloat(f float64) u128 {
	if f <= 0 {
		return u128{}
	}
	shift := float64(1<<32) * float64(1<<32)
	if f < shift {
		return u128{lo: uint64(f)}
	}
	hi := math.Floor(f / shift)
	return u128{hi: uint64(hi), lo: uint64(f - hi*shift)}
}

func totalCount(buckets []uint64) u128 {
	var total u128
	for _, v := range buckets {
		total = total.add(v)
	}
	return total
}
