package pulse

import "sync/atomic"

// Counter is a monotonically increasing 64 bit counter. The zero
// value is ready to use.
type Counter struct {
	v atomic.Uint64
}

// Increment adds one to the counter and returns the new value.
func (c *Counter) Increment() uint64 {
	return c.v.Add(1)
}

// Add grows the counter by n and returns the new value. The counter
// wraps on overflow.
func (c *Counter) Add(n uint64) uint64 {
	return c.v.Add(n)
}

// Load returns the current value.
func (c *Counter) Load() uint64 {
	return c.v.Load()
}

// Reset returns the counter to zero, reporting the old value.
func (c *Counter) Reset() uint64 {
	return c.v.Swap(0)
}

// Enabled implements Metric.
func (c *Counter) Enabled() bool { return true }

// Value implements Metric, returning a uint64.
func (c *Counter) Value() any { return c.v.Load() }

// Gauge is a 64 bit value that can move in both directions. The zero
// value is ready to use.
type Gauge struct {
	v atomic.Int64
}

// Set replaces the gauge's value.
func (g *Gauge) Set(n int64) {
	g.v.Store(n)
}

// Add grows the gauge by n and returns the new value.
func (g *Gauge) Add(n int64) int64 {
	return g.v.Add(n)
}

// Sub shrinks the gauge by n and returns the new value.
func (g *Gauge) Sub(n int64) int64 {
	return g.v.Add(-n)
}

// Load returns the current value.
func (g *Gauge) Load() int64 {
	return g.v.Load()
}

// Enabled implements Metric.
func (g *Gauge) Enabled() bool { return true }

// Value implements Metric, returning an int64.
func (g *Gauge) Value() any { return g.v.Load() }
