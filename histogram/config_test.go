package histogram

import (
	"math"
	"math/rand"
	"testing"

	"github.com/zeebo/assert"
)

func TestConfigTotalBuckets(t *testing.T) {
	cases := []struct {
		a, b, n uint8
		total   int
	}{
		{0, 2, 64, 252},
		{0, 7, 64, 7424},
		{0, 14, 64, 835_584},
		{1, 2, 64, 248},
		{8, 2, 64, 220},
		{0, 2, 4, 12},
	}

	for _, tc := range cases {
		config, err := NewConfig(tc.a, tc.b, tc.n)
		assert.NoError(t, err)
		assert.Equal(t, config.TotalBuckets(), tc.total)
	}
}

func TestConfigErrors(t *testing.T) {
	_, err := NewConfig(0, 7, 65)
	assert.That(t, MaxPowerTooHigh.Has(err))

	_, err = NewConfig(0, 7, 7)
	assert.That(t, MaxPowerTooLow.Has(err))

	_, err = NewConfig(0, 7, 6)
	assert.That(t, MaxPowerTooLow.Has(err))

	_, err = NewConfig(31, 32, 64)
	assert.That(t, MaxPowerTooLow.Has(err))

	_, err = NewConfig(0, 7, 64)
	assert.NoError(t, err)
}

func TestConfigValueToIndex(t *testing.T) {
	config, err := NewConfig(0, 7, 64)
	assert.NoError(t, err)

	cases := []struct {
		value uint64
		index int
	}{
		{0, 0},
		{1, 1},
		{256, 256},
		{257, 256},
		{258, 257},
		{512, 384},
		{515, 384},
		{516, 385},
		{1024, 512},
		{1031, 512},
		{1032, 513},
		{math.MaxUint64 - 1, 7423},
		{math.MaxUint64, 7423},
	}

	for _, tc := range cases {
		index, err := config.ValueToIndex(tc.value)
		assert.NoError(t, err)
		assert.Equal(t, index, tc.index)
	}

	t.Run("OutOfRange", func(t *testing.T) {
		config, err := NewConfig(0, 7, 32)
		assert.NoError(t, err)

		_, err = config.ValueToIndex(1 << 32)
		assert.That(t, OutOfRange.Has(err))

		_, err = config.ValueToIndex(1<<32 - 1)
		assert.NoError(t, err)
	})
}

func TestConfigIndexToBounds(t *testing.T) {
	config, err := NewConfig(0, 7, 64)
	assert.NoError(t, err)

	lower := []struct {
		index int
		value uint64
	}{
		{0, 0},
		{1, 1},
		{256, 256},
		{384, 512},
		{512, 1024},
		{7423, 18_374_686_479_671_623_680},
	}
	for _, tc := range lower {
		assert.Equal(t, config.IndexToLowerBound(tc.index), tc.value)
	}

	upper := []struct {
		index int
		value uint64
	}{
		{0, 0},
		{1, 1},
		{256, 257},
		{384, 515},
		{512, 1031},
		{7423, math.MaxUint64},
	}
	for _, tc := range upper {
		assert.Equal(t, config.IndexToUpperBound(tc.index), tc.value)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	params := []struct{ a, b, n uint8 }{
		{0, 2, 4},
		{0, 7, 32},
		{0, 7, 64},
		{1, 2, 64},
		{8, 2, 64},
		{3, 5, 40},
	}

	for _, p := range params {
		config, err := NewConfig(p.a, p.b, p.n)
		assert.NoError(t, err)

		// every bucket's bounds map back to the bucket
		for i := 0; i < config.TotalBuckets(); i++ {
			lo, hi := config.IndexToRange(i)
			assert.That(t, lo <= hi)

			idx, err := config.ValueToIndex(lo)
			assert.NoError(t, err)
			assert.Equal(t, idx, i)

			idx, err = config.ValueToIndex(hi)
			assert.NoError(t, err)
			assert.Equal(t, idx, i)
		}

		// random values land in a bucket containing them
		rng := rand.New(rand.NewSource(int64(p.n)<<8 | int64(p.b)))
		for i := 0; i < 10000; i++ {
			v := rng.Uint64()
			if v > config.Max() {
				v %= config.Max() + 1
			}

			idx, err := config.ValueToIndex(v)
			assert.NoError(t, err)

			lo, hi := config.IndexToRange(idx)
			assert.That(t, lo <= v)
			assert.That(t, v <= hi)
		}

		// the max value lands in the final bucket
		idx, err := config.ValueToIndex(config.Max())
		assert.NoError(t, err)
		assert.Equal(t, idx, config.TotalBuckets()-1)
	}
}

func TestConfigExactBelowCutoff(t *testing.T) {
	config, err := NewConfig(0, 7, 64)
	assert.NoError(t, err)

	// values below the cutoff are stored exactly
	for v := uint64(0); v < 256; v++ {
		idx, err := config.ValueToIndex(v)
		assert.NoError(t, err)

		lo, hi := config.IndexToRange(idx)
		assert.Equal(t, lo, v)
		assert.Equal(t, hi, v)
	}
}

func BenchmarkValueToIndex(b *testing.B) {
	config, _ := NewConfig(0, 7, 64)

	for i := 0; i < b.N; i++ {
		_, _ = config.ValueToIndex(uint64(i) * 2654435761)
	}
}
