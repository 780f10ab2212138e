package pulse

import (
	"github.com/zeebo/pulse/clock"
	"github.com/zeebo/pulse/histogram"
)

// Stopwatch times operations into an atomic histogram of nanosecond
// latencies.
//
//	var requestLatency = pulse.NewStopwatch(hist)
//
//	func handle() {
//		defer requestLatency.Start().Stop()
//		...
//	}
type Stopwatch struct {
	h   *histogram.AtomicHistogram
	clk clock.Source
}

// NewStopwatch returns a stopwatch recording into h using the system
// clock.
func NewStopwatch(h *histogram.AtomicHistogram) *Stopwatch {
	return NewStopwatchWithClock(h, clock.System)
}

// NewStopwatchWithClock returns a stopwatch recording into h using the
// provided clock source.
func NewStopwatchWithClock(h *histogram.AtomicHistogram, clk clock.Source) *Stopwatch {
	return &Stopwatch{h: h, clk: clk}
}

// Start begins a timing.
func (s *Stopwatch) Start() Timing {
	return Timing{s: s, began: s.clk.Instant()}
}

// Timing is one in-flight measurement.
type Timing struct {
	s     *Stopwatch
	began clock.Instant
}

// Stop records the elapsed nanoseconds into the histogram and returns
// them. Durations beyond the histogram's range clamp to its max so
// long outliers still land in the final bucket.
func (t Timing) Stop() clock.Duration {
	elapsed := t.s.clk.Instant().Since(t.began)

	v := elapsed.Nanos()
	if max := t.s.h.Config().Max(); v > max {
		v = max
	}
	_ = t.s.h.Add(v, 1)

	return elapsed
}
