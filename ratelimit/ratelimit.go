// Package ratelimit provides a token bucket rate limiter that can be
// shared between goroutines.
//
// The limiter never blocks: TryWait either takes a token or reports
// how long until the next refill, and the caller decides whether to
// sleep, drop, or do something else entirely.
//
//	rl := ratelimit.Builder(1, clock.Millisecond).Build()
//
//	for {
//		if d, failed := ratelimit.DelayOf(rl.TryWait()); failed {
//			time.Sleep(d.Std())
//			continue
//		}
//		// do the rate limited thing
//	}
package ratelimit

import (
	"fmt"
	"sync/atomic"

	"github.com/zeebo/pulse/clock"
)

// Delay is the error returned by TryWait when no token is available.
// It carries a hint of how long until the next refill.
type Delay clock.Duration

// Error implements the error interface.
func (d Delay) Error() string {
	return fmt.Sprintf("ratelimit: no tokens for %v", clock.Duration(d).Std())
}

// Duration returns the time until the next refill.
func (d Delay) Duration() clock.Duration {
	return clock.Duration(d)
}

// DelayOf extracts the refill hint from a TryWait error.
func DelayOf(err error) (clock.Duration, bool) {
	if d, ok := err.(Delay); ok {
		return clock.Duration(d), true
	}
	return 0, false
}

// Ratelimiter is a token bucket over atomic time. Tokens refill at a
// fixed cadence; acquiring is a compare-and-swap on the available
// count, so all operations are lock-free and none of them block.
//
// Invariants: available never exceeds capacity, the refill deadline
// only moves forward, and capacity is at least the larger of one and
// the refill amount.
type Ratelimiter struct {
	available      atomic.Uint64
	capacity       atomic.Uint64
	refillAmount   atomic.Uint64
	refillAt       clock.AtomicInstant
	refillInterval clock.AtomicDuration

	clk clock.Source
}

// BuilderState configures a Ratelimiter before construction.
type BuilderState struct {
	initialAvailable uint64
	maxTokens        uint64
	refillAmount     uint64
	refillInterval   clock.Duration
	clk              clock.Source
}

// Builder starts configuring a limiter that refills amount tokens
// every interval.
func Builder(amount uint64, interval clock.Duration) *BuilderState {
	return &BuilderState{
		// zero tokens initially, and a capacity of one to prohibit
		// bursts, unless configured otherwise
		initialAvailable: 0,
		maxTokens:        1,
		refillAmount:     amount,
		refillInterval:   interval,
		clk:              clock.System,
	}
}

// MaxTokens bounds the number of tokens that can be held at any time,
// which limits the size of any burst. Values below one round up to
// one; a refill amount above the max takes precedence over it.
func (b *BuilderState) MaxTokens(tokens uint64) *BuilderState {
	if tokens < 1 {
		tokens = 1
	}
	b.maxTokens = tokens
	return b
}

// InitialAvailable sets the number of tokens available immediately.
// Admission control may want a full bucket to avoid discards at
// startup; self-limiting processes usually want the default of zero.
// Build clamps it to the capacity.
func (b *BuilderState) InitialAvailable(tokens uint64) *BuilderState {
	b.initialAvailable = tokens
	return b
}

// Clock substitutes the source of time, letting tests drive the
// limiter by hand.
func (b *BuilderState) Clock(src clock.Source) *BuilderState {
	b.clk = src
	return b
}

// Build consumes the builder and produces the limiter. A zero refill
// interval is a programmer error and panics.
func (b *BuilderState) Build() *Ratelimiter {
	if b.refillInterval == 0 {
		panic("ratelimit: refill interval must be positive")
	}

	r := &Ratelimiter{clk: b.clk}

	capacity := b.maxTokens
	if b.refillAmount > capacity {
		capacity = b.refillAmount
	}

	// the initial tokens never exceed the capacity
	initial := b.initialAvailable
	if initial > capacity {
		initial = capacity
	}

	r.available.Store(initial)
	r.capacity.Store(capacity)
	r.refillAmount.Store(b.refillAmount)
	r.refillInterval.Store(b.refillInterval)
	r.refillAt.Store(b.clk.Instant().Add(b.refillInterval))

	return r
}

// Rate returns the effective refill rate in tokens per second.
func (r *Ratelimiter) Rate() float64 {
	return float64(r.refillAmount.Load()) * 1e9 / float64(r.refillInterval.Load().Nanos())
}

// RefillAmount returns the number of tokens added on each refill.
func (r *Ratelimiter) RefillAmount() uint64 {
	return r.refillAmount.Load()
}

// SetRefillAmount changes the number of tokens added on each refill.
// The capacity grows to the new amount if it is smaller. Concurrent
// refills observe the change when they retry.
func (r *Ratelimiter) SetRefillAmount(amount uint64) {
	for {
		capacity := r.capacity.Load()
		if capacity >= amount || r.capacity.CompareAndSwap(capacity, amount) {
			break
		}
	}
	r.refillAmount.Store(amount)
}

// RefillInterval returns the interval between refills.
func (r *Ratelimiter) RefillInterval() clock.Duration {
	return r.refillInterval.Load()
}

// SetRefillInterval changes the interval between refills. Concurrent
// refills observe the change when they retry.
func (r *Ratelimiter) SetRefillInterval(interval clock.Duration) {
	r.refillInterval.Store(interval)
}

// Available returns the number of tokens currently held.
func (r *Ratelimiter) Available() uint64 {
	return r.available.Load()
}

// refill credits any refills that have come due. On failure it
// returns a Delay until the next one.
func (r *Ratelimiter) refill(time clock.Instant) error {
	interval := r.refillInterval.Load()
	amount := r.refillAmount.Load()

	var intervals uint64

	for {
		refillAt := r.refillAt.Load()

		if time < refillAt {
			return Delay(refillAt.Since(time))
		}

		intervals = time.Since(refillAt).Div(interval) + 1
		next := refillAt.Add(interval.Mul(intervals))

		if r.refillAt.CompareAndSwap(refillAt, next) {
			break
		}

		// the interval or amount may have been changed by another
		// goroutine while we lost the race
		interval = r.refillInterval.Load()
		amount = r.refillAmount.Load()
	}

	credit := intervals * amount

	available := r.available.Load()
	capacity := r.capacity.Load()

	if available+credit >= capacity {
		r.available.Add(capacity - available)
	} else {
		r.available.Add(credit)
	}

	return nil
}

// TryWait attempts to take a single token. On failure it returns a
// Delay hinting when the next refill occurs; it never blocks.
func (r *Ratelimiter) TryWait() error {
	refillErr := r.refill(r.clk.Instant())

	for {
		available := r.available.Load()
		if available == 0 {
			if refillErr != nil {
				return refillErr
			}
			// the refill succeeded but other takers got there
			// first; hint at the following refill
			return Delay(r.refillAt.Load().Since(r.clk.Instant()))
		}

		if r.available.CompareAndSwap(available, available-1) {
			return nil
		}
	}
}
