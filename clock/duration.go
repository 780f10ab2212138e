package clock

import "time"

// Duration is a non-negative span of time in nanoseconds. The maximum
// representable span is about 584 years.
type Duration uint64

// Common durations.
const (
	Nanosecond  Duration = 1
	Microsecond          = 1000 * Nanosecond
	Millisecond          = 1000 * Microsecond
	Second               = 1000 * Millisecond
	Minute               = 60 * Second
	Hour                 = 60 * Minute
)

// FromStd converts a time.Duration. Negative durations clamp to zero.
func FromStd(d time.Duration) Duration {
	if d < 0 {
		return 0
	}
	return Duration(d)
}

// Add returns the sum of the two durations. It wraps on overflow.
func (d Duration) Add(o Duration) Duration {
	return d + o
}

// Sub returns the difference of the two durations. It wraps on
// underflow.
func (d Duration) Sub(o Duration) Duration {
	return d - o
}

// Mul returns the duration scaled by n. It wraps on overflow.
func (d Duration) Mul(n uint64) Duration {
	return d * Duration(n)
}

// Div returns the number of times o fits into d.
func (d Duration) Div(o Duration) uint64 {
	return uint64(d / o)
}

// Rem returns the remainder of dividing d by o.
func (d Duration) Rem(o Duration) Duration {
	return d % o
}

// CheckedAdd is like Add but reports failure instead of wrapping.
func (d Duration) CheckedAdd(o Duration) (Duration, bool) {
	s := d + o
	if s < d {
		return 0, false
	}
	return s, true
}

// CheckedSub is like Sub but reports failure instead of wrapping.
func (d Duration) CheckedSub(o Duration) (Duration, bool) {
	if o > d {
		return 0, false
	}
	return d - o, true
}

// Nanos returns the raw nanosecond count.
func (d Duration) Nanos() uint64 {
	return uint64(d)
}

// Secs returns the duration in seconds as a float.
func (d Duration) Secs() float64 {
	return float64(d/Second) + float64(d%Second)/1e9
}

// Std converts to a time.Duration, clamping at the max representable
// value.
func (d Duration) Std() time.Duration {
	if d > Duration(1<<63-1) {
		return 1<<63 - 1
	}
	return time.Duration(d)
}
