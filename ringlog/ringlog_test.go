package ringlog

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeebo/pulse"
)

func TestRingLogFlush(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	ring, err := NewBuilder().Output(&out).Build()
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := fmt.Fprintf(ring, "line %d\n", i)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, ring.Pending())
	assert.Equal(t, uint64(3), ring.Created())

	require.NoError(t, ring.Flush())
	assert.Equal(t, 0, ring.Pending())
	assert.Equal(t, uint64(3), ring.Flushed())
	assert.Equal(t, "line 0\nline 1\nline 2\n", out.String())

	// flushing an empty ring is a no-op
	require.NoError(t, ring.Flush())
	assert.Equal(t, uint64(3), ring.Flushed())
}

func TestRingLogDrops(t *testing.T) {
	t.Parallel()

	ring, err := NewBuilder().TotalCapacity(2).Build()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := ring.Write([]byte("x\n"))
		require.NoError(t, err)
	}

	assert.Equal(t, uint64(2), ring.Created())
	assert.Equal(t, uint64(3), ring.Dropped())
	assert.Equal(t, 2, ring.Pending())
}

func TestRingLogRegistry(t *testing.T) {
	t.Parallel()

	reg := pulse.NewRegistry()
	ring, err := NewBuilder().Registry(reg).Build()
	require.NoError(t, err)

	_, err = ring.Write([]byte("hello\n"))
	require.NoError(t, err)

	entry, ok := reg.Get("log_create")
	require.True(t, ok)
	assert.Equal(t, uint64(1), entry.Metric().Value())

	_, ok = reg.Get("log_drop")
	require.True(t, ok)
	_, ok = reg.Get("log_flush")
	require.True(t, ok)
	_, ok = reg.Get("log_write_byte")
	require.True(t, ok)

	// a second ring cannot claim the same counter names
	_, err = NewBuilder().Registry(reg).Build()
	require.Error(t, err)
	assert.True(t, pulse.ErrDuplicate.Has(err))
}

func TestRingLogBuildErrors(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder().TotalCapacity(0).Build()
	assert.True(t, Error.Has(err))

	_, err = NewBuilder().Output(nil).Build()
	assert.True(t, Error.Has(err))
}

func TestRingLogLogrus(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	ring, err := NewBuilder().Output(&out).Build()
	require.NoError(t, err)

	logger := ring.Logger(logrus.InfoLevel)
	logger.WithField("op", "get").Info("cache miss")
	logger.Debug("filtered out")

	assert.Equal(t, 1, ring.Pending())
	require.NoError(t, ring.Flush())

	assert.Contains(t, out.String(), "cache miss")
	assert.Contains(t, out.String(), "op=get")
	assert.NotContains(t, out.String(), "filtered out")
}

func TestRingLogConcurrent(t *testing.T) {
	t.Parallel()

	const (
		workers = 8
		lines   = 500
	)

	var out bytes.Buffer
	ring, err := NewBuilder().Output(&out).TotalCapacity(workers * lines).Build()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < lines; i++ {
				fmt.Fprintf(ring, "worker %d line %d\n", w, i)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, ring.Flush())

	assert.Equal(t, uint64(workers*lines), ring.Created())
	assert.Equal(t, uint64(0), ring.Dropped())
	assert.Equal(t, workers*lines, strings.Count(out.String(), "\n"))
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("disk full")
}

func TestRingLogFlushError(t *testing.T) {
	t.Parallel()

	ring, err := NewBuilder().Output(failWriter{}).Build()
	require.NoError(t, err)

	_, err = ring.Write([]byte("x\n"))
	require.NoError(t, err)

	assert.True(t, Error.Has(ring.Flush()))
}

func BenchmarkRingLogWrite(b *testing.B) {
	ring, err := NewBuilder().TotalCapacity(1 << 20).Build()
	if err != nil {
		b.Fatal(err)
	}

	line := []byte("a reasonably sized log line for benchmarking\n")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ring.Write(line)
		if i%1024 == 0 {
			_ = ring.Flush()
		}
	}
}
