// Package stream bridges push-style platform callbacks into pull-based
// sequences. The platform dispatches events on its own goroutines; a Bridge
// is the single synchronization point between those producers and the one
// consuming goroutine.
package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Bridge adapts a callback-driven event source into a blocking iterator.
//
// The producer side (Emit) never blocks and never fails: the platform
// dispatch must always succeed, so events arriving after Close are dropped
// and logged instead of escalated. The queue is unbounded; if the consumer
// is slower than the producer, items accumulate. BLE event rates are bounded
// by the radio, so this is an accepted tradeoff.
//
// Closing the bridge stops the upstream source exactly once, best-effort.
type Bridge[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool

	wake chan struct{}
	done chan struct{}

	stopOnce sync.Once
	stop     func() error

	name   string
	logger *logrus.Logger

	metrics Metrics
}

// Metrics counts bridge traffic. All fields are updated atomically.
type Metrics struct {
	Emitted   int64
	Delivered int64
	Dropped   int64
}

// New creates a Bridge whose Close invokes stop to halt the upstream event
// source. stop may be nil. A nil logger falls back to a default logrus
// instance.
func New[T any](name string, stop func() error, logger *logrus.Logger) *Bridge[T] {
	if logger == nil {
		logger = logrus.New()
	}
	return &Bridge[T]{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		stop:   stop,
		name:   name,
		logger: logger,
	}
}

// Emit enqueues an event. It is safe to call from any goroutine, returns
// immediately, and never fails the caller: after Close the event is dropped
// with a log line.
func (b *Bridge[T]) Emit(v T) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		atomic.AddInt64(&b.metrics.Dropped, 1)
		b.logger.WithField("bridge", b.name).Debug("Dropping event emitted after close")
		return
	}
	b.queue = append(b.queue, v)
	b.mu.Unlock()

	atomic.AddInt64(&b.metrics.Emitted, 1)
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available or the bridge has been closed and
// drained. ok is false only on closure; every queued event is delivered
// first, in FIFO order.
func (b *Bridge[T]) Next() (v T, ok bool) {
	return b.wait(nil)
}

// NextTimeout is like Next but gives up after d, returning ok=false. A
// timeout does not close the bridge; the caller may keep pulling.
func (b *Bridge[T]) NextTimeout(d time.Duration) (v T, ok bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	return b.wait(t.C)
}

// TryNext pops an event without blocking.
func (b *Bridge[T]) TryNext() (v T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.popLocked()
}

// wait loops pop/sleep until an event, closure, or timeout. A nil timeout
// channel never fires, which makes Next block indefinitely.
func (b *Bridge[T]) wait(timeout <-chan time.Time) (T, bool) {
	for {
		b.mu.Lock()
		if v, ok := b.popLocked(); ok {
			b.mu.Unlock()
			return v, true
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			var zero T
			return zero, false
		}

		select {
		case <-b.wake:
		case <-b.done:
			// Re-check the queue: events may have landed between the pop
			// above and the close.
		case <-timeout:
			var zero T
			return zero, false
		}
	}
}

// popLocked removes the oldest event. Caller holds mu.
func (b *Bridge[T]) popLocked() (T, bool) {
	if len(b.queue) == 0 {
		var zero T
		return zero, false
	}
	v := b.queue[0]
	b.queue = b.queue[1:]
	atomic.AddInt64(&b.metrics.Delivered, 1)
	return v, true
}

// Len returns the number of queued events.
func (b *Bridge[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Close marks the bridge closed, wakes the consumer, and stops the upstream
// source. It is idempotent: the stop function runs at most once. Stop
// failures are logged, never returned, because Close runs on teardown paths
// with no caller to receive an error.
func (b *Bridge[T]) Close() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.done)

		if b.stop == nil {
			return
		}
		if err := b.stop(); err != nil {
			b.logger.WithFields(logrus.Fields{
				"bridge": b.name,
				"error":  err,
			}).Error("Failed to stop event source")
		}
	})
}

// GetMetrics returns a snapshot of the traffic counters.
func (b *Bridge[T]) GetMetrics() Metrics {
	return Metrics{
		Emitted:   atomic.LoadInt64(&b.metrics.Emitted),
		Delivered: atomic.LoadInt64(&b.metrics.Delivered),
		Dropped:   atomic.LoadInt64(&b.metrics.Dropped),
	}
}
