package histogram

import "math/bits"

// Config determines the bucket layout of a histogram.
//
// The layout splits the value range at a cutoff of 2^(a+b+1). Below the
// cutoff, buckets are linear with width 2^a. At and above the cutoff,
// each power-of-two band is subdivided into 2^b buckets, so any value v
// lands in a bucket no wider than v/2^b and the relative error is
// bounded by 2^-b. Values up to 2^n - 1 are representable, with n = 64
// meaning the full uint64 range.
type Config struct {
	max               uint64
	cutoffValue       uint64
	a                 uint32
	b                 uint32
	n                 uint32
	cutoffPower       uint32
	lowerBinCount     uint32
	upperBinDivisions uint32
	upperBinCount     uint32
}

// NewConfig returns the layout for the provided parameters.
//
//   - a sets the bucket width in the linear region to 2^a
//   - b sets the number of subdivisions per logarithmic band to 2^b
//   - n sets the max storable value to 2^n - 1
//
// Constraints: n <= 64, a+b < n, and a+b+1 < 64.
func NewConfig(a, b, n uint8) (Config, error) {
	ua, ub, un := uint32(a), uint32(b), uint32(n)

	if un > 64 {
		return Config{}, MaxPowerTooHigh.New("n must be at most 64, got %d", n)
	}
	if ua+ub >= un {
		return Config{}, MaxPowerTooLow.New("a + b must be less than n, got a=%d b=%d n=%d", a, b, n)
	}

	// the cutoff is where the linear buckets and the logarithmic
	// subdivisions diverge: below it both would produce the same
	// widths, so the linear region extends up to 2^(a+b+1)
	cutoffPower := ua + ub + 1
	if cutoffPower >= 64 {
		return Config{}, MaxPowerTooLow.New("a + b must be less than 63, got a=%d b=%d", a, b)
	}
	cutoffValue := uint64(1) << cutoffPower

	max := uint64(1)<<64 - 1
	if un < 64 {
		max = uint64(1)<<un - 1
	}

	return Config{
		max:               max,
		cutoffValue:       cutoffValue,
		a:                 ua,
		b:                 ub,
		n:                 un,
		cutoffPower:       cutoffPower,
		lowerBinCount:     uint32(cutoffValue >> ua),
		upperBinDivisions: 1 << ub,
		upperBinCount:     (un - cutoffPower) * (1 << ub),
	}, nil
}

// Params returns the (a, b, n) parameters of the layout.
func (c Config) Params() (a, b, n uint8) {
	return uint8(c.a), uint8(c.b), uint8(c.n)
}

// GroupingPower returns the number of subdivisions per logarithmic band
// as a power of two.
func (c Config) GroupingPower() uint8 {
	return uint8(c.b)
}

// MaxValuePower returns the power of two bounding the storable range.
func (c Config) MaxValuePower() uint8 {
	return uint8(c.n)
}

// Max returns the largest storable value.
func (c Config) Max() uint64 {
	return c.max
}

// RelativeError returns the relative error bound as a percentage.
func (c Config) RelativeError() float64 {
	return 100.0 / float64(uint64(1)<<c.b)
}

// TotalBuckets returns the number of buckets the layout produces.
func (c Config) TotalBuckets() int {
	return int(c.lowerBinCount + c.upperBinCount)
}

// ValueToIndex returns the bucket index holding the value, or
// OutOfRange if the value exceeds the configured max.
func (c Config) ValueToIndex(value uint64) (int, error) {
	if value < c.cutoffValue {
		return int(value >> c.a), nil
	}
	if value > c.max {
		return 0, OutOfRange.New("value %d exceeds max %d", value, c.max)
	}

	power := uint32(63 - bits.LeadingZeros64(value))
	logBin := power - c.cutoffPower
	offset := (value - uint64(1)<<power) >> (power - c.b)

	return int(uint64(c.lowerBinCount) + uint64(logBin)*uint64(c.upperBinDivisions) + offset), nil
}

// IndexToLowerBound returns the smallest value stored in the bucket.
func (c Config) IndexToLowerBound(index int) uint64 {
	a := uint64(c.a)
	b := uint64(c.b)
	g := uint64(index) >> c.b
	h := uint64(index) - g<<c.b

	if g < 1 {
		return (1 << a) * h
	}
	return 1<<(a+b+g-1) + (1<<(a+g-1))*h
}

// IndexToUpperBound returns the largest value stored in the bucket.
func (c Config) IndexToUpperBound(index int) uint64 {
	if index == c.TotalBuckets()-1 {
		return c.max
	}

	a := uint64(c.a)
	b := uint64(c.b)
	g := uint64(index) >> c.b
	h := uint64(index) - g<<c.b + 1

	if g < 1 {
		return (1<<a)*h - 1
	}
	return 1<<(a+b+g-1) + (1<<(a+g-1))*h - 1
}

// IndexToRange returns the inclusive value range stored in the bucket.
func (c Config) IndexToRange(index int) (lo, hi uint64) {
	return c.IndexToLowerBound(index), c.IndexToUpperBound(index)
}
