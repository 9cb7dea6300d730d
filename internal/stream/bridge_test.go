package stream_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/bleio/internal/stream"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func TestBridge_DeliversInFIFOOrder(t *testing.T) {
	b := stream.New[string]("test", nil, newTestLogger())

	b.Emit("A")
	b.Emit("B")
	b.Emit("C")

	for _, want := range []string{"A", "B", "C"} {
		got, ok := b.Next()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, b.Len())
}

func TestBridge_NextBlocksUntilEmit(t *testing.T) {
	b := stream.New[int]("test", nil, newTestLogger())

	done := make(chan int, 1)
	go func() {
		v, ok := b.Next()
		if ok {
			done <- v
		}
	}()

	// The consumer must be parked, not spinning on an empty queue.
	select {
	case <-done:
		t.Fatal("Next returned before any event was emitted")
	case <-time.After(50 * time.Millisecond):
	}

	b.Emit(42)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake after Emit")
	}
}

func TestBridge_NextTimeout(t *testing.T) {
	b := stream.New[int]("test", nil, newTestLogger())

	t.Run("returns queued event immediately", func(t *testing.T) {
		b.Emit(7)
		v, ok := b.NextTimeout(10 * time.Millisecond)
		require.True(t, ok)
		assert.Equal(t, 7, v)
	})

	t.Run("gives up after the deadline", func(t *testing.T) {
		start := time.Now()
		_, ok := b.NextTimeout(20 * time.Millisecond)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("timeout does not close the bridge", func(t *testing.T) {
		b.Emit(8)
		v, ok := b.Next()
		require.True(t, ok)
		assert.Equal(t, 8, v)
	})
}

func TestBridge_TryNext(t *testing.T) {
	b := stream.New[int]("test", nil, newTestLogger())

	_, ok := b.TryNext()
	assert.False(t, ok)

	b.Emit(1)
	b.Emit(2)

	v, ok := b.TryNext()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = b.TryNext()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = b.TryNext()
	assert.False(t, ok)
}

func TestBridge_CloseDrainsQueueFirst(t *testing.T) {
	b := stream.New[string]("test", nil, newTestLogger())

	b.Emit("queued-1")
	b.Emit("queued-2")
	b.Close()

	v, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, "queued-1", v)

	v, ok = b.Next()
	require.True(t, ok)
	assert.Equal(t, "queued-2", v)

	_, ok = b.Next()
	assert.False(t, ok)
}

func TestBridge_CloseWakesBlockedConsumer(t *testing.T) {
	b := stream.New[int]("test", nil, newTestLogger())

	done := make(chan bool, 1)
	go func() {
		_, ok := b.Next()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	b.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake after Close")
	}
}

func TestBridge_EmitAfterCloseIsDropped(t *testing.T) {
	b := stream.New[int]("test", nil, newTestLogger())
	b.Close()

	// Must not panic and must not enqueue.
	b.Emit(1)
	assert.Equal(t, 0, b.Len())

	m := b.GetMetrics()
	assert.Equal(t, int64(1), m.Dropped)
	assert.Equal(t, int64(0), m.Emitted)
}

func TestBridge_StopRunsExactlyOnce(t *testing.T) {
	var calls int
	b := stream.New[int]("test", func() error {
		calls++
		return nil
	}, newTestLogger())

	b.Close()
	b.Close()
	b.Close()

	assert.Equal(t, 1, calls)
}

func TestBridge_StopFailureIsSwallowed(t *testing.T) {
	b := stream.New[int]("test", func() error {
		return errors.New("radio is gone")
	}, newTestLogger())

	// Close has no error to return; the failure must not panic or block.
	b.Close()

	_, ok := b.Next()
	assert.False(t, ok)
}

func TestBridge_ConcurrentEmitters(t *testing.T) {
	b := stream.New[int]("test", nil, newTestLogger())

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Emit(i)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < producers*perProducer; i++ {
		_, ok := b.Next()
		require.True(t, ok)
	}
	assert.Equal(t, 0, b.Len())

	m := b.GetMetrics()
	assert.Equal(t, int64(producers*perProducer), m.Emitted)
	assert.Equal(t, int64(producers*perProducer), m.Delivered)
}
