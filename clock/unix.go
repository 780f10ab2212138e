package clock

// UnixInstant is a reading of the realtime clock in nanoseconds since
// the Unix epoch. Unlike Instant, the realtime clock is subject to
// adjustment and may jump in either direction.
//
// The zero value is the epoch itself, 1970-01-01T00:00:00Z. Values wrap
// in the year 2554.
type UnixInstant uint64

// Epoch is 1970-01-01T00:00:00Z.
const Epoch UnixInstant = 0

// Add returns the instant moved forward by d. It wraps on overflow.
func (u UnixInstant) Add(d Duration) UnixInstant {
	return u + UnixInstant(d)
}

// Sub returns the instant moved backward by d. It wraps on underflow.
func (u UnixInstant) Sub(d Duration) UnixInstant {
	return u - UnixInstant(d)
}

// Since returns the duration from earlier until this instant. It wraps
// if earlier is after this instant.
func (u UnixInstant) Since(earlier UnixInstant) Duration {
	return Duration(u - earlier)
}

// Elapsed returns the duration from this instant until now.
func (u UnixInstant) Elapsed() Duration {
	return UnixNow().Since(u)
}

// CheckedSub is like Sub but reports failure instead of wrapping.
func (u UnixInstant) CheckedSub(d Duration) (UnixInstant, bool) {
	if UnixInstant(d) > u {
		return 0, false
	}
	return u - UnixInstant(d), true
}

// CheckedSince is like Since but reports failure instead of wrapping.
func (u UnixInstant) CheckedSince(earlier UnixInstant) (Duration, bool) {
	if earlier > u {
		return 0, false
	}
	return Duration(u - earlier), true
}

// Nanos returns the raw nanosecond count.
func (u UnixInstant) Nanos() uint64 {
	return uint64(u)
}
