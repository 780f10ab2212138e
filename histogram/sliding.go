package histogram

import (
	"sync/atomic"

	"github.com/zeebo/pulse/clock"
)

// SlidingWindow is a histogram that reports on the distribution of
// values across a moving window of time, for example the past minute of
// request latencies. Any number of goroutines may record concurrently.
//
// Internally it is a ring of snapshot histograms around one
// free-running live histogram. Time advances in interval steps: when a
// recording or reading operation observes that the next tick is due, it
// races a compare-and-swap to advance the tick; the winner copies the
// live counters into the ring slot the old tick indexed. A window query
// subtracts the snapshot at the start boundary from the snapshot at the
// end boundary, so each slot only needs to hold the cumulative counts
// at its boundary and old increments age out as slots are overwritten.
type SlidingWindow struct {
	config     Config
	interval   clock.Duration
	span       clock.Duration
	started    clock.UnixInstant
	tickOrigin clock.Instant
	tickAt     clock.AtomicInstant
	numSlices  int
	snapshots  []*AtomicHistogram
	live       *AtomicHistogram
	clk        clock.Source
}

// SlidingWindowBuilder constructs a SlidingWindow, optionally
// back-dating its start time or substituting the clock source.
type SlidingWindowBuilder struct {
	a, b, n  uint8
	interval clock.Duration
	slices   int
	started  clock.UnixInstant
	backdate bool
	clk      clock.Source
}

// NewSlidingWindowBuilder returns a builder for the provided
// parameters. See NewSlidingWindow for their meaning.
func NewSlidingWindowBuilder(a, b, n uint8, interval clock.Duration, slices int) *SlidingWindowBuilder {
	return &SlidingWindowBuilder{
		a:        a,
		b:        b,
		n:        n,
		interval: interval,
		slices:   slices,
		clk:      clock.System,
	}
}

// Start sets the wall time the window is considered to have started
// at. The monotonic time fields shift by the same delta.
func (b *SlidingWindowBuilder) Start(start clock.UnixInstant) *SlidingWindowBuilder {
	b.started = start
	b.backdate = true
	return b
}

// Clock substitutes the source of time, letting tests drive the window
// by hand.
func (b *SlidingWindowBuilder) Clock(src clock.Source) *SlidingWindowBuilder {
	b.clk = src
	return b
}

// Build consumes the builder and produces the histogram.
func (b *SlidingWindowBuilder) Build() (*SlidingWindow, error) {
	config, err := NewConfig(b.a, b.b, b.n)
	if err != nil {
		return nil, err
	}

	if b.interval >= clock.Hour {
		return nil, IntervalTooLong.New("interval %d >= 1h", b.interval)
	}
	if b.interval < clock.Millisecond {
		return nil, IntervalTooShort.New("interval %d < 1ms", b.interval)
	}
	if b.slices < 1 {
		panic("histogram: sliding window needs at least one slice")
	}

	now := b.clk.Instant()
	started := b.clk.UnixInstant()

	span := b.interval.Mul(uint64(b.slices))
	numSlices := b.slices + 1

	snapshots := make([]*AtomicHistogram, numSlices)
	for i := range snapshots {
		snapshots[i] = NewAtomicWithConfig(config)
	}

	h := &SlidingWindow{
		config:     config,
		interval:   b.interval,
		span:       span,
		started:    started.Sub(span),
		tickOrigin: now.Sub(span),
		numSlices:  numSlices,
		snapshots:  snapshots,
		live:       NewAtomicWithConfig(config),
		clk:        b.clk,
	}
	h.tickAt.Store(now)

	// back-dating shifts the three time fields by the same delta so
	// the wall/monotonic correspondence is preserved
	if b.backdate {
		if b.started < h.started {
			delta := h.started.Since(b.started)
			h.started = h.started.Sub(delta)
			h.tickOrigin = h.tickOrigin.Sub(delta)
			h.tickAt.Sub(delta)
		} else {
			delta := b.started.Since(h.started)
			h.started = h.started.Add(delta)
			h.tickOrigin = h.tickOrigin.Add(delta)
			h.tickAt.Add(delta)
		}
	}

	return h, nil
}

// NewSlidingWindow creates a histogram covering a sliding window of
// slices time slices, each interval long, using the system clock.
//
//   - a, b, n: bucket layout parameters, see NewConfig
//   - interval: the duration of each time slice, at least a
//     millisecond and under an hour
//   - slices: the number of time slices, at least one
func NewSlidingWindow(a, b, n uint8, interval clock.Duration, slices int) (*SlidingWindow, error) {
	return NewSlidingWindowBuilder(a, b, n, interval, slices).Build()
}

// Config returns the bucket layout.
func (h *SlidingWindow) Config() Config {
	return h.config
}

// Interval returns the duration of one time slice.
func (h *SlidingWindow) Interval() clock.Duration {
	return h.interval
}

// Span returns the total duration the window covers.
func (h *SlidingWindow) Span() clock.Duration {
	return h.span
}

// AsSlice advances the window to the present and returns the raw
// counters of the live histogram. The slice aliases the histogram's
// storage; it is useful when updating from an external source that
// shares the bucketing strategy.
func (h *SlidingWindow) AsSlice() []atomic.Uint64 {
	h.tickTo(h.clk.Instant())
	return h.live.AsSlice()
}

// Increment adds a single observation of the value at the present
// moment.
func (h *SlidingWindow) Increment(value uint64) error {
	return h.Add(value, 1)
}

// Add adds count observations of the value at the present moment.
func (h *SlidingWindow) Add(value, count uint64) error {
	return h.AddAt(h.clk.Instant(), value, count)
}

// IncrementAt adds a single observation of the value at the provided
// instant.
func (h *SlidingWindow) IncrementAt(instant clock.Instant, value uint64) error {
	return h.AddAt(instant, value, 1)
}

// AddAt adds count observations of the value at the provided instant.
//
// An instant past the end of the window slides the window forward,
// one slice per rotation, until the instant is covered. An instant
// anywhere before the next tick is attributed to the live histogram,
// and so to the newest slice, regardless of its true position — even
// when it predates the window entirely.
func (h *SlidingWindow) AddAt(instant clock.Instant, value, count uint64) error {
	h.tickTo(instant)

	index, err := h.config.ValueToIndex(value)
	if err != nil {
		return err
	}
	h.live.buckets[index].Add(count)
	return nil
}

// Range returns the half-open wall time range currently covered by the
// window.
func (h *SlidingWindow) Range() (start, end clock.UnixInstant) {
	elapsed := h.tickAt.Load().Sub(h.interval).Since(h.tickOrigin)
	end = h.started.Add(elapsed)
	return end.Sub(h.span), end
}

// SnapshotBetween returns a snapshot covering the provided half-open
// wall time range. Both bounds snap backward to slice boundaries: the
// end to the boundary at or before it, the start to the boundary at or
// before one interval earlier than it. The effective range is reported
// by the snapshot. Returns
// OutOfSlidingWindow if either bound is no longer, or not yet, covered.
func (h *SlidingWindow) SnapshotBetween(start, end clock.UnixInstant) (*Snapshot, error) {
	h.tickTo(h.clk.Instant())

	tickAt := h.tickAt.Load()

	if start < h.started {
		return nil, OutOfSlidingWindow.New("start predates the window")
	}

	// convert wall times to monotonic clock times
	startMono := h.tickOrigin.Add(start.Since(h.started).Sub(h.interval))
	endMono := h.tickOrigin.Add(end.Since(h.started).Sub(h.interval))

	startInfo, err := h.snapshotInfo(startMono, tickAt)
	if err != nil {
		return nil, err
	}
	endInfo, err := h.snapshotInfo(endMono, tickAt)
	if err != nil {
		return nil, err
	}

	from := h.snapshots[startInfo.index].buckets
	to := h.snapshots[endInfo.index].buckets

	buckets := make([]uint64, len(from))
	for i := range buckets {
		buckets[i] = to[i].Load() - from[i].Load()
	}

	return &Snapshot{
		start:     startInfo.start,
		end:       endInfo.end,
		histogram: &Histogram{config: h.config, buckets: buckets},
	}, nil
}

type snapshotInfo struct {
	index int
	start clock.UnixInstant
	end   clock.UnixInstant
}

// snapshotInfo locates the ring slot and the aligned wall time range
// for an instant, relative to the provided tick.
func (h *SlidingWindow) snapshotInfo(instant clock.Instant, tickAt clock.Instant) (snapshotInfo, error) {
	if instant < h.tickOrigin {
		return snapshotInfo{}, OutOfSlidingWindow.New("instant predates the window")
	}

	windowEnd := tickAt.Sub(h.interval)
	windowStart := windowEnd.Sub(h.span)

	if instant < windowStart {
		return snapshotInfo{}, OutOfSlidingWindow.New("instant predates the window")
	}
	if instant > windowEnd {
		return snapshotInfo{}, OutOfSlidingWindow.New("instant is in the future")
	}

	ticks := instant.Since(h.tickOrigin).Div(h.interval)
	start := h.started.Add(h.interval.Mul(ticks))

	return snapshotInfo{
		index: int(ticks % uint64(h.numSlices)),
		start: start,
		end:   start.Add(h.interval),
	}, nil
}

// tickTo slides the window forward until the instant is before the
// next tick.
//
// At most one goroutine performs the copy for any given rotation: the
// compare-and-swap on tickAt picks a winner and everyone else re-reads
// the advanced tick. The tick is advanced before the copy, so
// increments racing with the rotation may smear into the snapshot just
// past its boundary; that trade keeps the pause short. An instant far
// in the future rotates one slice per iteration so that every retired
// slot is overwritten exactly once.
func (h *SlidingWindow) tickTo(instant clock.Instant) {
	for {
		tickAt := h.tickAt.Load()

		if instant < tickAt {
			return
		}

		tickNext := tickAt.Add(h.interval)

		if !h.tickAt.CompareAndSwap(tickAt, tickNext) {
			continue
		}

		// we won the race: copy the live counters into the slot the
		// old tick indexed, which is the oldest
		index := int(tickAt.Since(h.tickOrigin).Div(h.interval) % uint64(h.numSlices))

		src := h.live.buckets
		dst := h.snapshots[index].buckets
		for i := range src {
			dst[i].Store(src[i].Load())
		}
	}
}
