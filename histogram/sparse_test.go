package histogram

import (
	"testing"

	"github.com/zeebo/assert"
)

func sparseFrom(t *testing.T, config Config, pairs ...uint64) *SparseHistogram {
	t.Helper()

	h := NewWithConfig(config)
	for i := 0; i < len(pairs); i += 2 {
		h.AsSlice()[pairs[i]] = pairs[i+1]
	}
	return NewSparse(h)
}

func TestSparseMerge(t *testing.T) {
	config, err := NewConfig(0, 7, 32)
	assert.NoError(t, err)

	h1 := sparseFrom(t, config, 1, 6, 3, 12, 5, 7)
	h2 := sparseFrom(t, config)
	h3 := sparseFrom(t, config, 2, 5, 3, 7, 4, 3, 11, 15)

	diffConfig, err := NewConfig(0, 6, 16)
	assert.NoError(t, err)
	hdiff := sparseFrom(t, diffConfig)

	_, err = h1.Merge(hdiff)
	assert.That(t, IncompatibleParameters.Has(err))

	m, err := h1.Merge(h2)
	assert.NoError(t, err)
	assert.Equal(t, m.Total(), uint64(25))
	assert.DeepEqual(t, m.indices, []int{1, 3, 5})
	assert.DeepEqual(t, m.counts, []uint64{6, 12, 7})

	m, err = h2.Merge(h3)
	assert.NoError(t, err)
	assert.Equal(t, m.Total(), uint64(30))
	assert.DeepEqual(t, m.indices, []int{2, 3, 4, 11})
	assert.DeepEqual(t, m.counts, []uint64{5, 7, 3, 15})

	m, err = h1.Merge(h3)
	assert.NoError(t, err)
	assert.Equal(t, m.Total(), uint64(55))
	assert.DeepEqual(t, m.indices, []int{1, 2, 3, 4, 5, 11})
	assert.DeepEqual(t, m.counts, []uint64{6, 5, 19, 3, 7, 15})
}

func TestSparsePercentile(t *testing.T) {
	dense, err := New(4, 10)
	assert.NoError(t, err)
	for v := uint64(1); v < 1024; v++ {
		assert.NoError(t, dense.Increment(v))
	}

	sparse := NewSparse(dense)

	for _, p := range []float64{0.0, 1.0, 10.0, 25.0, 50.0, 75.0, 90.0, 99.0, 99.9, 100.0} {
		db, err := dense.Percentile(p)
		assert.NoError(t, err)
		sb, err := sparse.Percentile(p)
		assert.NoError(t, err)

		assert.Equal(t, sb, db)
	}

	t.Run("Errors", func(t *testing.T) {
		_, err := sparse.Percentile(-0.5)
		assert.That(t, InvalidPercentile.Has(err))

		empty := NewSparse(NewWithConfig(dense.Config()))
		_, err = empty.Percentile(50.0)
		assert.That(t, Empty.Has(err))
	})
}

func TestSparseDense(t *testing.T) {
	dense, err := New(5, 10)
	assert.NoError(t, err)
	for v := uint64(1); v < 1024; v += 3 {
		assert.NoError(t, dense.Increment(v))
	}

	back := NewSparse(dense).Dense()
	assert.DeepEqual(t, back.AsSlice(), dense.AsSlice())
	assert.Equal(t, back.Config(), dense.Config())
}

func TestSparseInvariants(t *testing.T) {
	dense, err := New(4, 12)
	assert.NoError(t, err)
	for v := uint64(0); v < 4096; v += 7 {
		assert.NoError(t, dense.Increment(v))
	}

	sparse := NewSparse(dense)

	last := -1
	total := uint64(0)
	sparse.Each(func(b Bucket) bool {
		assert.That(t, b.Count() > 0)
		total += b.Count()
		idx, err := sparse.Config().ValueToIndex(b.Start())
		assert.NoError(t, err)
		assert.That(t, idx > last)
		last = idx
		return true
	})
	assert.Equal(t, total, sparse.Total())
}

func TestCodecRoundTrip(t *testing.T) {
	dense, err := New(7, 32)
	assert.NoError(t, err)
	for v := uint64(1); v < 100000; v = v*3 + 1 {
		assert.NoError(t, dense.Add(v, v))
	}

	sparse := NewSparse(dense)

	data, err := sparse.MarshalBinary()
	assert.NoError(t, err)

	var decoded SparseHistogram
	assert.NoError(t, decoded.UnmarshalBinary(data))

	assert.Equal(t, decoded.Config(), sparse.Config())
	assert.Equal(t, decoded.Total(), sparse.Total())
	assert.DeepEqual(t, decoded.indices, sparse.indices)
	assert.DeepEqual(t, decoded.counts, sparse.counts)
	assert.DeepEqual(t, decoded.Dense().AsSlice(), dense.AsSlice())
}

func TestCodecRejects(t *testing.T) {
	sparse := sparseFrom(t, mustConfig(t, 0, 7, 32), 1, 5, 9, 2)

	data, err := sparse.MarshalBinary()
	assert.NoError(t, err)

	var decoded SparseHistogram

	t.Run("Short", func(t *testing.T) {
		assert.That(t, FromRawWrongLength.Has(decoded.UnmarshalBinary(data[:8])))
	})

	t.Run("Corrupt", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)/2] ^= 0xff
		assert.That(t, FromRawWrongLength.Has(decoded.UnmarshalBinary(bad)))
	})

	t.Run("Truncated", func(t *testing.T) {
		assert.That(t, FromRawWrongLength.Has(decoded.UnmarshalBinary(data[:len(data)-1])))
	})
}

func mustConfig(t *testing.T, a, b, n uint8) Config {
	t.Helper()
	config, err := NewConfig(a, b, n)
	assert.NoError(t, err)
	return config
}
