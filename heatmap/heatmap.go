// Package heatmap stores counts for timestamped values over a
// configured span of time, enabling percentile queries across a moving
// window.
//
// Internally a heatmap is a ring of histograms, each covering one
// resolution of time, plus a summary histogram holding the
// componentwise sum of all the live slices. Old slices age out as time
// moves forward: their counts are subtracted from the summary and the
// slice is cleared for reuse.
package heatmap

import (
	"math/bits"

	"github.com/zeebo/errs"

	"github.com/zeebo/pulse/clock"
	"github.com/zeebo/pulse/histogram"
	"github.com/zeebo/pulse/internal/debug"
)

// Error classes for heatmap operations. Percentile queries also
// surface the histogram package's Empty and InvalidPercentile classes.
var (
	// OutOfSpan means a timestamp is older than the heatmap tracks.
	OutOfSpan = errs.Class("heatmap: out of span")

	// InvalidConfig means the construction parameters are invalid;
	// see New for the constraints.
	InvalidConfig = errs.Class("heatmap: invalid config")
)

// Heatmap stores counts for timestamped values over a span of time.
//
// Any number of goroutines may record into it concurrently. Reported
// percentiles may be non-monotonic across calls: slices age out
// between queries, and concurrent writers keep mutating the summary
// while it is read. That is a property of the design, not a defect;
// callers needing consistency must quiesce writers first.
type Heatmap struct {
	span       clock.Duration
	resolution clock.Duration

	// createAt and firstTick are treated as readings of the same
	// moment on the two clocks, anchoring the conversion from
	// elapsed time to wall time
	createAt  clock.DateTime
	firstTick clock.Instant

	summary *histogram.AtomicHistogram
	slices  []*histogram.AtomicHistogram

	// the instant the current slice stays current until; advancing
	// it retires the slices it crosses
	nextTick clock.AtomicInstant

	clk clock.Source
}

// Builder configures a Heatmap beyond what New exposes.
type Builder struct {
	m, r, n    uint8
	span       clock.Duration
	resolution clock.Duration
	clk        clock.Source
}

// NewBuilder returns a builder with the defaults m=0, r=10, n=30,
// span of a minute, and resolution of a second: values from 1 to
// 2^30-1 with the smallest 1023 stored exactly, covering the past
// minute at second granularity.
func NewBuilder() *Builder {
	return &Builder{
		m:          0,
		r:          10,
		n:          30,
		span:       clock.Minute,
		resolution: clock.Second,
		clk:        clock.System,
	}
}

// MinResolution sets the width of the smallest value bucket to the
// largest power of two that does not exceed width.
func (b *Builder) MinResolution(width uint64) *Builder {
	b.m = uint8(bits.Len64(width|1) - 1)
	return b
}

// MinResolutionRange sets the value the smallest bucket width extends
// to, rounded up to a power of two.
func (b *Builder) MinResolutionRange(value uint64) *Builder {
	b.r = uint8(bits.Len64(value))
	return b
}

// MaximumValue sets the largest value that can be recorded, rounded up
// to one under a power of two.
func (b *Builder) MaximumValue(value uint64) *Builder {
	b.n = uint8(bits.Len64(value))
	return b
}

// Span sets the duration covered by the heatmap. The true span is
// rounded up to a multiple of the resolution, plus one more resolution
// for the buffer slice.
func (b *Builder) Span(d clock.Duration) *Builder {
	b.span = d
	return b
}

// Resolution sets the duration covered by a single slice.
func (b *Builder) Resolution(d clock.Duration) *Builder {
	b.resolution = d
	return b
}

// Clock substitutes the source of time, letting tests drive the
// heatmap by hand.
func (b *Builder) Clock(src clock.Source) *Builder {
	b.clk = src
	return b
}

// Build consumes the builder and produces a Heatmap.
func (b *Builder) Build() (*Heatmap, error) {
	return newHeatmap(b.m, b.r, b.n, b.span, b.resolution, b.clk)
}

// New creates a Heatmap.
//
//   - m sets the minimum resolution M = 2^m, the width of the
//     smallest value bucket
//   - r sets the minimum resolution range R = 2^r - 1, the largest
//     value the minimum resolution extends to; r must exceed m
//   - n sets the maximum value N = 2^n - 1; n must be at least r
//   - span sets the duration covered; the true span rounds up to a
//     multiple of resolution, plus one more resolution for the buffer
//     slice
//   - resolution sets the duration covered by a single slice
func New(m, r, n uint8, span, resolution clock.Duration) (*Heatmap, error) {
	return newHeatmap(m, r, n, span, resolution, clock.System)
}

func newHeatmap(m, r, n uint8, span, resolution clock.Duration, clk clock.Source) (*Heatmap, error) {
	if r <= m {
		return nil, InvalidConfig.New("r must exceed m, got m=%d r=%d", m, r)
	}
	if n < r {
		return nil, InvalidConfig.New("n must be at least r, got r=%d n=%d", r, n)
	}
	if resolution == 0 {
		return nil, InvalidConfig.New("resolution must be positive")
	}
	if span < resolution {
		return nil, InvalidConfig.New("span %d shorter than resolution %d", span, resolution)
	}

	config, err := histogram.NewConfig(m, r-m-1, n)
	if err != nil {
		return nil, InvalidConfig.Wrap(err)
	}

	// the true span is a multiple of the resolution covering the
	// requested span, plus one extra slice so there is always a
	// cleared slice in the ring for new writes
	count := 0
	trueSpan := clock.Duration(0)
	for trueSpan < span.Add(resolution) {
		count++
		trueSpan = trueSpan.Add(resolution)
	}

	slices := make([]*histogram.AtomicHistogram, count)
	for i := range slices {
		slices[i] = histogram.NewAtomicWithConfig(config)
	}

	firstTick := clk.Instant()

	h := &Heatmap{
		span:       trueSpan,
		resolution: resolution,
		createAt:   clock.DateTimeFromUnix(clk.UnixInstant()),
		firstTick:  firstTick,
		summary:    histogram.NewAtomicWithConfig(config),
		slices:     slices,
		clk:        clk,
	}
	h.nextTick.Store(firstTick.Add(resolution))

	return h, nil
}

// Span returns the true duration tracked by the heatmap.
func (h *Heatmap) Span() clock.Duration {
	return h.span
}

// Resolution returns the duration covered by a single slice.
func (h *Heatmap) Resolution() clock.Duration {
	return h.resolution
}

// Slices returns the number of slices in the ring, one more than the
// span demands.
func (h *Heatmap) Slices() int {
	return len(h.slices)
}

// Buckets returns the number of value buckets in each slice.
func (h *Heatmap) Buckets() int {
	return h.summary.Config().TotalBuckets()
}

// CreatedAt returns when the heatmap was created.
func (h *Heatmap) CreatedAt() clock.DateTime {
	return h.createAt
}

// ActiveSlices returns the number of slices currently in the window,
// including the current one. A slice counts whether or not it holds
// any observations.
func (h *Heatmap) ActiveSlices() int {
	ticks := int(h.nextTick.Load().Since(h.firstTick).Div(h.resolution))
	if ticks > len(h.slices)-1 {
		return len(h.slices) - 1
	}
	return ticks
}

// Summary returns the histogram summing every live slice. Concurrent
// writers keep mutating it while it is read.
func (h *Heatmap) Summary() *histogram.AtomicHistogram {
	return h.summary
}

// Increment adds count observations of the value at the provided
// instant.
//
// An instant past the current slice advances the heatmap, retiring
// slices that age out. An instant in the past is attributed to the
// slice that covered it; once the lookback exceeds the span the
// increment is rejected with OutOfSpan.
func (h *Heatmap) Increment(time clock.Instant, value, count uint64) error {
	// resolve the value first so a rejected value has no effect
	if _, err := h.summary.Config().ValueToIndex(value); err != nil {
		return err
	}

	nextTick, idx := h.tick(time)

	behind := nextTick.Since(time)

	// fast path: the time falls into the current slice
	if behind < h.resolution {
		_ = h.summary.Add(value, count)
		_ = h.slices[idx].Add(value, count)
		return nil
	}

	slicesBack := behind.Div(h.resolution)
	if slicesBack > uint64(len(h.slices)-2) {
		return OutOfSpan.New("timestamp %d slices back, span holds %d", slicesBack, len(h.slices)-1)
	}

	index := idx - int(slicesBack)
	if index < 0 {
		index += len(h.slices)
	}
	debug.Bounds("heatmap increment", index, len(h.slices))

	_ = h.summary.Add(value, count)
	_ = h.slices[index].Add(value, count)
	return nil
}

// Percentile returns the bucket holding the requested percentile
// across every live slice. See the type documentation for the
// consistency caveats.
func (h *Heatmap) Percentile(percentile float64) (histogram.Bucket, error) {
	h.tick(h.clk.Instant())
	return h.summary.Load().Percentile(percentile)
}

// Iter calls fn for each live slice in chronological order until fn
// returns false.
func (h *Heatmap) Iter(fn func(slice *histogram.AtomicHistogram) bool) {
	active := h.ActiveSlices()

	index := 0
	if active == len(h.slices)-1 {
		index = (h.sliceIdx(h.nextTick.Load()) + 2) % len(h.slices)
	}

	for count := 0; count < active; count++ {
		if !fn(h.slices[index]) {
			return
		}
		index++
		if index >= len(h.slices) {
			index = 0
		}
	}
}

// sliceIdx returns the ring position of the slice that is current
// when the next tick is at the provided instant.
func (h *Heatmap) sliceIdx(nextTick clock.Instant) int {
	ticks := nextTick.Since(h.firstTick).Div(h.resolution)
	return int((ticks - 1) % uint64(len(h.slices)))
}

// tick performs the housekeeping that comes due as the clock
// advances, then returns the current next tick and slice position.
//
// The compare-and-swap on nextTick picks one winner per advancement.
// The winner retires every slice the tick crossed: starting two
// positions right of the old tick (the slice just past the one the
// advanced tick points at, which was pre-cleared as the buffer), each
// retired slice is subtracted from the summary and cleared. When
// ticks happen at least once per resolution exactly one slice retires
// per advancement and new increments always land in a cleared slice.
// When the clock falls further behind, all crossed slices are still
// cleared, but the summary may transiently include counts from slices
// about to retire; that is accepted rather than pausing all writers.
func (h *Heatmap) tick(now clock.Instant) (clock.Instant, int) {
	for {
		nextTick := h.nextTick.Load()

		// common case for a busy service: the slice is current
		if now < nextTick {
			return nextTick, h.sliceIdx(nextTick)
		}

		ticksForward := now.Since(nextTick).Div(h.resolution) + 1
		newTick := nextTick.Add(h.resolution.Mul(ticksForward))

		if !h.nextTick.CompareAndSwap(nextTick, newTick) {
			continue
		}

		// we won the race and have exclusive clean up duty for the
		// slices between the old and new ticks
		idx := h.sliceIdx(nextTick) + 1
		for i := uint64(0); i < ticksForward; i++ {
			idx++
			if idx >= len(h.slices) {
				idx -= len(h.slices)
			}
			debug.Bounds("heatmap retire", idx, len(h.slices))
			_ = h.summary.SubtractAndClear(h.slices[idx])
		}

		return newTick, h.sliceIdx(newTick)
	}
}
