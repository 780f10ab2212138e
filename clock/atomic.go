package clock

import "sync/atomic"

// atomic64 implements the shared operation set for the atomic time
// types. Go's atomics are sequentially consistent, which is at least as
// strong as any ordering the callers of these types require.
type atomic64 struct {
	v atomic.Uint64
}

func (a *atomic64) load() uint64         { return a.v.Load() }
func (a *atomic64) store(x uint64)       { a.v.Store(x) }
func (a *atomic64) swap(x uint64) uint64 { return a.v.Swap(x) }

func (a *atomic64) compareAndSwap(old, new uint64) bool {
	return a.v.CompareAndSwap(old, new)
}

func (a *atomic64) add(x uint64) uint64 { return a.v.Add(x) }
func (a *atomic64) sub(x uint64) uint64 { return a.v.Add(^x + 1) }

// fetchMin stores the smaller of the current value and x, returning the
// previous value.
func (a *atomic64) fetchMin(x uint64) uint64 {
	for {
		cur := a.v.Load()
		if cur <= x || a.v.CompareAndSwap(cur, x) {
			return cur
		}
	}
}

// fetchMax stores the larger of the current value and x, returning the
// previous value.
func (a *atomic64) fetchMax(x uint64) uint64 {
	for {
		cur := a.v.Load()
		if cur >= x || a.v.CompareAndSwap(cur, x) {
			return cur
		}
	}
}

// AtomicInstant is an Instant with atomic interior mutability. The zero
// value holds the zero Instant.
type AtomicInstant struct {
	a atomic64
}

// NewAtomicInstant returns an AtomicInstant holding the provided value.
func NewAtomicInstant(v Instant) *AtomicInstant {
	a := new(AtomicInstant)
	a.Store(v)
	return a
}

// Load returns the current value.
func (a *AtomicInstant) Load() Instant { return Instant(a.a.load()) }

// Store sets the value.
func (a *AtomicInstant) Store(v Instant) { a.a.store(uint64(v)) }

// Swap sets the value and returns the previous value.
func (a *AtomicInstant) Swap(v Instant) Instant { return Instant(a.a.swap(uint64(v))) }

// CompareAndSwap sets the value to new if it currently equals old,
// reporting whether the swap happened.
func (a *AtomicInstant) CompareAndSwap(old, new Instant) bool {
	return a.a.compareAndSwap(uint64(old), uint64(new))
}

// Add moves the instant forward by d, returning the new value. It wraps
// on overflow.
func (a *AtomicInstant) Add(d Duration) Instant { return Instant(a.a.add(uint64(d))) }

// Sub moves the instant backward by d, returning the new value. It
// wraps on underflow.
func (a *AtomicInstant) Sub(d Duration) Instant { return Instant(a.a.sub(uint64(d))) }

// FetchMin stores the earlier of the current value and v, returning the
// previous value.
func (a *AtomicInstant) FetchMin(v Instant) Instant { return Instant(a.a.fetchMin(uint64(v))) }

// FetchMax stores the later of the current value and v, returning the
// previous value.
func (a *AtomicInstant) FetchMax(v Instant) Instant { return Instant(a.a.fetchMax(uint64(v))) }

// AtomicDuration is a Duration with atomic interior mutability. The
// zero value holds the zero Duration.
type AtomicDuration struct {
	a atomic64
}

// NewAtomicDuration returns an AtomicDuration holding the provided
// value.
func NewAtomicDuration(v Duration) *AtomicDuration {
	a := new(AtomicDuration)
	a.Store(v)
	return a
}

// Load returns the current value.
func (a *AtomicDuration) Load() Duration { return Duration(a.a.load()) }

// Store sets the value.
func (a *AtomicDuration) Store(v Duration) { a.a.store(uint64(v)) }

// Swap sets the value and returns the previous value.
func (a *AtomicDuration) Swap(v Duration) Duration { return Duration(a.a.swap(uint64(v))) }

// CompareAndSwap sets the value to new if it currently equals old,
// reporting whether the swap happened.
func (a *AtomicDuration) CompareAndSwap(old, new Duration) bool {
	return a.a.compareAndSwap(uint64(old), uint64(new))
}

// Add grows the duration by d, returning the new value. It wraps on
// overflow.
func (a *AtomicDuration) Add(d Duration) Duration { return Duration(a.a.add(uint64(d))) }

// Sub shrinks the duration by d, returning the new value. It wraps on
// underflow.
func (a *AtomicDuration) Sub(d Duration) Duration { return Duration(a.a.sub(uint64(d))) }

// FetchMin stores the smaller of the current value and v, returning the
// previous value.
func (a *AtomicDuration) FetchMin(v Duration) Duration { return Duration(a.a.fetchMin(uint64(v))) }

// FetchMax stores the larger of the current value and v, returning the
// previous value.
func (a *AtomicDuration) FetchMax(v Duration) Duration { return Duration(a.a.fetchMax(uint64(v))) }

// AtomicUnixInstant is a UnixInstant with atomic interior mutability.
// The zero value holds the epoch.
type AtomicUnixInstant struct {
	a atomic64
}

// NewAtomicUnixInstant returns an AtomicUnixInstant holding the
// provided value.
func NewAtomicUnixInstant(v UnixInstant) *AtomicUnixInstant {
	a := new(AtomicUnixInstant)
	a.Store(v)
	return a
}

// Load returns the current value.
func (a *AtomicUnixInstant) Load() UnixInstant { return UnixInstant(a.a.load()) }

// Store sets the value.
func (a *AtomicUnixInstant) Store(v UnixInstant) { a.a.store(uint64(v)) }

// Swap sets the value and returns the previous value.
func (a *AtomicUnixInstant) Swap(v UnixInstant) UnixInstant {
	return UnixInstant(a.a.swap(uint64(v)))
}

// CompareAndSwap sets the value to new if it currently equals old,
// reporting whether the swap happened.
func (a *AtomicUnixInstant) CompareAndSwap(old, new UnixInstant) bool {
	return a.a.compareAndSwap(uint64(old), uint64(new))
}

// Add moves the instant forward by d, returning the new value. It wraps
// on overflow.
func (a *AtomicUnixInstant) Add(d Duration) UnixInstant { return UnixInstant(a.a.add(uint64(d))) }

// Sub moves the instant backward by d, returning the new value. It
// wraps on underflow.
func (a *AtomicUnixInstant) Sub(d Duration) UnixInstant { return UnixInstant(a.a.sub(uint64(d))) }

// FetchMin stores the earlier of the current value and v, returning the
// previous value.
func (a *AtomicUnixInstant) FetchMin(v UnixInstant) UnixInstant {
	return UnixInstant(a.a.fetchMin(uint64(v)))
}

// FetchMax stores the later of the current value and v, returning the
// previous value.
func (a *AtomicUnixInstant) FetchMax(v UnixInstant) UnixInstant {
	return UnixInstant(a.a.fetchMax(uint64(v)))
}
