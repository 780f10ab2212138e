// Package ringlog provides a non-blocking logging backend for latency
// sensitive services.
//
// Producers hand formatted log lines to a bounded ring; when the ring
// is full the line is dropped and counted rather than ever blocking
// the producer. A consumer flushes the ring to the real output outside
// of any critical path, for example from an admin thread:
//
//	ring, _ := ringlog.NewBuilder().Output(file).Build()
//	logger := ring.Logger(logrus.InfoLevel)
//
//	go func() {
//		for range time.Tick(100 * time.Millisecond) {
//			_ = ring.Flush()
//		}
//	}()
package ringlog

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/errs"

	"github.com/zeebo/pulse"
)

// Error is the class wrapping ringlog failures.
var Error = errs.Class("ringlog")

// Drain is the read side of a log pipeline. The owner calls Flush
// periodically, outside of any critical path.
type Drain interface {
	Flush() error
}

// RingLog is a bounded, non-blocking buffer of log lines. It
// implements io.Writer for the producer side and Drain for the
// consumer side.
type RingLog struct {
	queue chan []byte
	pool  sync.Pool
	out   io.Writer

	// flushMu serializes consumers; producers never take it
	flushMu sync.Mutex

	created *pulse.Counter
	dropped *pulse.Counter
	flushed *pulse.Counter
	bytes   *pulse.Counter
}

// Builder configures a RingLog.
type Builder struct {
	out      io.Writer
	capacity int
	msgSize  int
	registry *pulse.Registry
}

// NewBuilder returns a builder with a 4096 line ring and 512 byte
// initial message buffers, writing to io.Discard.
func NewBuilder() *Builder {
	return &Builder{
		out:      io.Discard,
		capacity: 4096,
		msgSize:  512,
	}
}

// Output sets the writer the ring flushes to.
func (b *Builder) Output(w io.Writer) *Builder {
	b.out = w
	return b
}

// TotalCapacity sets the number of lines the ring holds before
// dropping.
func (b *Builder) TotalCapacity(n int) *Builder {
	b.capacity = n
	return b
}

// MessageSize sets the initial capacity of the pooled line buffers.
// Longer lines still work; they just reallocate.
func (b *Builder) MessageSize(n int) *Builder {
	b.msgSize = n
	return b
}

// Registry registers the ring's counters — log_create, log_drop,
// log_flush, and log_write_byte — into the provided registry.
func (b *Builder) Registry(r *pulse.Registry) *Builder {
	b.registry = r
	return b
}

// Build consumes the builder and produces the RingLog.
func (b *Builder) Build() (*RingLog, error) {
	if b.capacity < 1 {
		return nil, Error.New("capacity must be at least one line")
	}
	if b.out == nil {
		return nil, Error.New("output must not be nil")
	}

	msgSize := b.msgSize
	r := &RingLog{
		queue: make(chan []byte, b.capacity),
		pool: sync.Pool{New: func() any {
			return make([]byte, 0, msgSize)
		}},
		out:     b.out,
		created: new(pulse.Counter),
		dropped: new(pulse.Counter),
		flushed: new(pulse.Counter),
		bytes:   new(pulse.Counter),
	}

	if b.registry != nil {
		for _, c := range []struct {
			name    string
			counter *pulse.Counter
		}{
			{"log_create", r.created},
			{"log_drop", r.dropped},
			{"log_flush", r.flushed},
			{"log_write_byte", r.bytes},
		} {
			if _, err := b.registry.Register(c.name, c.counter, nil); err != nil {
				return nil, Error.Wrap(err)
			}
		}
	}

	return r, nil
}

// Write queues one formatted log line. It never blocks: when the ring
// is full the line is dropped and counted. The reported length is
// always len(p) so producers never see partial write errors.
func (r *RingLog) Write(p []byte) (int, error) {
	buf := append(r.pool.Get().([]byte), p...)

	select {
	case r.queue <- buf:
		r.created.Increment()
	default:
		r.dropped.Increment()
		r.pool.Put(buf[:0])
	}

	return len(p), nil
}

// Flush drains queued lines to the output, returning the first write
// error. Lines queued after the flush begins are left for the next
// one.
func (r *RingLog) Flush() error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	for i := len(r.queue); i > 0; i-- {
		select {
		case buf := <-r.queue:
			n, err := r.out.Write(buf)
			r.bytes.Add(uint64(n))
			r.pool.Put(buf[:0])
			if err != nil {
				return Error.Wrap(err)
			}
			r.flushed.Increment()
		default:
			return nil
		}
	}
	return nil
}

// Pending returns the number of lines waiting to be flushed.
func (r *RingLog) Pending() int {
	return len(r.queue)
}

// Created returns the number of lines accepted into the ring.
func (r *RingLog) Created() uint64 { return r.created.Load() }

// Dropped returns the number of lines dropped because the ring was
// full.
func (r *RingLog) Dropped() uint64 { return r.dropped.Load() }

// Flushed returns the number of lines written to the output.
func (r *RingLog) Flushed() uint64 { return r.flushed.Load() }

// Logger returns a logrus logger writing into the ring at the given
// level. The formatter is plain text without colors; callers may
// replace it.
func (r *RingLog) Logger(level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(r)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	return logger
}
