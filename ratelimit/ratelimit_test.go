package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zeebo/assert"
	"github.com/zeebo/pulse/clock"
)

func testLimiter(t *testing.T, amount uint64, interval clock.Duration) (*BuilderState, *clock.Manual) {
	t.Helper()

	src := clock.NewManual(clock.Instant(clock.Hour), clock.UnixInstant(clock.Hour))
	return Builder(amount, interval).Clock(src), src
}

func TestRate(t *testing.T) {
	b, _ := testLimiter(t, 4, 333*clock.Nanosecond)
	rl := b.Build()

	rate := rl.Rate()
	assert.That(t, rate >= 12012012.0*0.999)
	assert.That(t, rate <= 12012012.0*1.001)
}

func TestTryWaitShape(t *testing.T) {
	b, src := testLimiter(t, 1, 10*clock.Microsecond)
	rl := b.MaxTokens(1).InitialAvailable(0).Build()

	// simulate a tight 10ms polling loop
	success := 0
	for i := 0; i < 2000; i++ {
		src.Advance(5 * clock.Microsecond)
		if rl.TryWait() == nil {
			success++
		}
	}
	assert.That(t, success >= 900)
	assert.That(t, success <= 1100)
}

func TestIdleDoesNotAccumulate(t *testing.T) {
	b, src := testLimiter(t, 1, clock.Millisecond)
	rl := b.InitialAvailable(1).Build()

	// a long idle period still yields only the capped single token
	src.Advance(10 * clock.Millisecond)
	assert.NoError(t, rl.TryWait())

	err := rl.TryWait()
	assert.Error(t, err)

	d, failed := DelayOf(err)
	assert.That(t, failed)
	assert.That(t, d > 0)
}

func TestCapacity(t *testing.T) {
	b, src := testLimiter(t, 1, 10*clock.Millisecond)
	rl := b.MaxTokens(10).InitialAvailable(0).Build()

	src.Advance(100 * clock.Millisecond)
	for i := 0; i < 10; i++ {
		assert.NoError(t, rl.TryWait())
	}
	assert.Error(t, rl.TryWait())
}

func TestImmediateThenCapped(t *testing.T) {
	b, src := testLimiter(t, 1, 10*clock.Microsecond)
	rl := b.MaxTokens(1).InitialAvailable(1).Build()

	// the initial token is immediately available
	assert.NoError(t, rl.TryWait())
	assert.Error(t, rl.TryWait())

	// one interval later there is exactly one token
	src.Advance(10 * clock.Microsecond)
	assert.NoError(t, rl.TryWait())
	assert.Error(t, rl.TryWait())
}

func TestDelayHint(t *testing.T) {
	b, src := testLimiter(t, 1, 10*clock.Millisecond)
	rl := b.Build()

	src.Advance(3 * clock.Millisecond)
	err := rl.TryWait()
	assert.Error(t, err)

	d, failed := DelayOf(err)
	assert.That(t, failed)
	assert.Equal(t, d, 7*clock.Millisecond)

	// the hint is not produced for unrelated errors
	_, failed = DelayOf(nil)
	assert.That(t, !failed)
}

func TestRefillAmountTakesCapacity(t *testing.T) {
	b, src := testLimiter(t, 25, clock.Millisecond)
	rl := b.MaxTokens(10).Build()

	src.Advance(clock.Millisecond)
	for i := 0; i < 25; i++ {
		assert.NoError(t, rl.TryWait())
	}
	assert.Error(t, rl.TryWait())
}

func TestRuntimeMutation(t *testing.T) {
	b, src := testLimiter(t, 1, 10*clock.Millisecond)
	rl := b.Build()

	assert.Equal(t, rl.RefillAmount(), uint64(1))
	assert.Equal(t, rl.RefillInterval(), 10*clock.Millisecond)

	rl.SetRefillAmount(3)
	rl.SetRefillInterval(clock.Millisecond)

	assert.Equal(t, rl.RefillAmount(), uint64(3))
	assert.Equal(t, rl.RefillInterval(), clock.Millisecond)
	assert.Equal(t, rl.Rate(), 3000.0)

	// the pending refill deadline was set under the old interval;
	// after it passes, refills run on the new settings
	src.Advance(10 * clock.Millisecond)
	assert.NoError(t, rl.TryWait())
}

func TestZeroIntervalPanics(t *testing.T) {
	defer func() {
		assert.NotNil(t, recover())
	}()
	Builder(1, 0).Build()
}

func TestConcurrentTakers(t *testing.T) {
	const workers = 8

	b, src := testLimiter(t, 1000, clock.Millisecond)
	rl := b.MaxTokens(1000).Build()

	src.Advance(clock.Millisecond)

	var wg sync.WaitGroup
	var success atomic.Uint64

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if rl.TryWait() == nil {
					success.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	// exactly the refilled tokens were granted across all takers
	assert.Equal(t, success.Load(), uint64(1000))
	assert.Equal(t, rl.Available(), uint64(0))
}

func BenchmarkTryWait(b *testing.B) {
	rl := Builder(1, clock.Microsecond).Build()

	for i := 0; i < b.N; i++ {
		_ = rl.TryWait()
	}
}
