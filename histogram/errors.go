package histogram

import "github.com/zeebo/errs"

// Error classes for histogram operations. Callers discriminate with the
// Has method, for example histogram.OutOfRange.Has(err).
var (
	// Empty means the histogram contains no observations.
	Empty = errs.Class("histogram: empty")

	// InvalidPercentile means a percentile was outside of 0.0..=100.0.
	InvalidPercentile = errs.Class("histogram: invalid percentile")

	// OutOfRange means a value exceeds the configured maximum.
	OutOfRange = errs.Class("histogram: value out of range")

	// OutOfSlidingWindow means an instant falls outside the window
	// currently covered by a sliding window histogram.
	OutOfSlidingWindow = errs.Class("histogram: out of sliding window")

	// IncompatibleParameters means two histograms do not share a
	// bucket layout.
	IncompatibleParameters = errs.Class("histogram: incompatible parameters")

	// Overflow means a checked operation would wrap.
	Overflow = errs.Class("histogram: overflow")
)

// Error classes for histogram construction.
var (
	// MaxPowerTooHigh means the max value power exceeds 64.
	MaxPowerTooHigh = errs.Class("histogram: max power too high")

	// MaxPowerTooLow means the max value power does not exceed the
	// bucketing powers. Downsample also returns it when the requested
	// grouping power is not smaller than the current one.
	MaxPowerTooLow = errs.Class("histogram: max power too low")

	// IntervalTooLong means a sliding window interval is an hour or
	// more.
	IntervalTooLong = errs.Class("histogram: interval too long")

	// IntervalTooShort means a sliding window interval is under a
	// millisecond.
	IntervalTooShort = errs.Class("histogram: interval too short")

	// FromRawWrongLength means encoded bytes do not decode to a valid
	// sparse histogram: the length, checksum, version, indices, or
	// counts are wrong.
	FromRawWrongLength = errs.Class("histogram: wrong length")
)
