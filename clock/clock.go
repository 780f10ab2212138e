// Package clock provides nanosecond time primitives for observability
// data structures: a monotonic Instant, a wall clock UnixInstant, a
// Duration, and atomic variants of all three.
//
// All three types are 64 bit nanosecond counts. Arithmetic wraps on
// overflow; the Checked variants report overflow instead.
package clock

import "time"

// start anchors the monotonic clock. Readings are the wall time at
// process start plus the monotonic time elapsed since, so instants are
// large, non-decreasing, and survive wall clock adjustments.
var start = time.Now()

// Now returns an Instant for the current moment on the monotonic clock.
func Now() Instant {
	return Instant(uint64(start.UnixNano()) + uint64(time.Since(start)))
}

// UnixNow returns a UnixInstant for the current moment on the realtime
// clock.
func UnixNow() UnixInstant {
	return UnixInstant(time.Now().UnixNano())
}
