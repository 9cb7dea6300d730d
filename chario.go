package bleio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"

	"github.com/srg/bleio/internal/stream"
)

const (
	// DefaultNotifyTimeout bounds how long an empty-buffer read on a
	// notify-fed handle waits for the next notification payload.
	DefaultNotifyTimeout = time.Second

	// DefaultIOBufferSize is the capacity of the per-handle byte buffer.
	// Notification payloads never exceed the ATT MTU, so overflow only
	// happens when the caller stops reading for a long time.
	DefaultIOBufferSize = 4096
)

// CharacteristicIO presents a characteristic's value as a buffered byte
// stream. It implements io.ReadWriteCloser.
//
// The data-acquisition strategy is fixed at construction: characteristics
// that support Notify get a subscription feeding an internal queue
// (notify-fed); everything else is read from the device on demand
// (poll-fed). Reads drain an internal FIFO buffer; a read returning
// (0, nil) means no data was available within the wait policy, not end of
// stream. Callers should poll again.
//
// Writes go straight to the device, unbuffered and whole; Flush is a no-op.
//
// Read panics when the characteristic lacks the Read capability, and Write
// and Flush panic when it lacks Write. These are contract preconditions:
// check Properties first.
type CharacteristicIO struct {
	char    *Characteristic
	buf     *ringbuffer.RingBuffer
	notify  *stream.Bridge[[]byte] // nil for poll-fed handles
	timeout time.Duration

	closeOnce sync.Once
	logger    *logrus.Logger
}

func newCharacteristicIO(c *Characteristic) (*CharacteristicIO, error) {
	x := &CharacteristicIO{
		char:    c,
		buf:     ringbuffer.New(DefaultIOBufferSize),
		timeout: DefaultNotifyTimeout,
		logger:  c.logger,
	}

	if props, ok := c.Properties(); ok && props.Contains(PropertyNotify) {
		if err := x.configureNotify(); err != nil {
			return nil, err
		}
	}

	return x, nil
}

// configureNotify enables notifications (the platform writes the client
// characteristic configuration descriptor) and installs a value-changed
// callback that feeds the notify bridge.
func (x *CharacteristicIO) configureNotify() error {
	bridge := stream.New[[]byte]("notify:"+x.char.UUID(), func() error {
		return x.char.client.Unsubscribe(x.char.char, false)
	}, x.logger)

	handler := func(data []byte) {
		// The platform reuses the notification buffer; copy before
		// handing the payload off the dispatch goroutine.
		payload := make([]byte, len(data))
		copy(payload, data)
		bridge.Emit(payload)
	}

	x.logger.WithField("characteristic", x.char.UUID()).Debug("Enabling notifications")
	if err := x.char.client.Subscribe(x.char.char, false, handler); err != nil {
		return fmt.Errorf("failed to enable notifications on characteristic %s: %w", x.char.UUID(), err)
	}

	x.notify = bridge
	return nil
}

// SetNotifyTimeout adjusts the empty-buffer wait for notify-fed reads.
// Non-positive values are ignored.
func (x *CharacteristicIO) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		x.timeout = d
	}
}

// Read copies up to len(p) buffered bytes into p, FIFO. With an empty
// buffer, a notify-fed handle waits up to the notify timeout for the next
// payload, and a poll-fed handle issues exactly one direct device read.
// With a non-empty buffer, a notify-fed handle opportunistically drains any
// queued payloads without blocking.
//
// Read panics if the characteristic does not have the Read capability.
func (x *CharacteristicIO) Read(p []byte) (int, error) {
	if props, ok := x.char.Properties(); ok && !props.Contains(PropertyRead) {
		panic(fmt.Sprintf("bleio: characteristic %s does not support read", x.char.UUID()))
	}

	if x.notify != nil {
		if x.buf.IsEmpty() {
			if payload, ok := x.notify.NextTimeout(x.timeout); ok {
				x.fill(payload)
			}
		} else {
			for {
				payload, ok := x.notify.TryNext()
				if !ok {
					break
				}
				x.fill(payload)
			}
		}
	} else if x.buf.IsEmpty() {
		data, err := x.char.read()
		if err != nil {
			return 0, err
		}
		x.fill(data)
	}

	n, err := x.buf.Read(p)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return n, err
	}
	return n, nil
}

// fill appends data to the internal buffer, discarding the oldest buffered
// bytes when there is not enough free space. A payload larger than the whole
// buffer keeps only its newest bytes; otherwise the write below could never
// succeed and the payload would be re-fetched forever.
func (x *CharacteristicIO) fill(data []byte) {
	if capacity := x.buf.Capacity(); len(data) > capacity {
		x.logger.WithFields(logrus.Fields{
			"characteristic": x.char.UUID(),
			"discarded":      len(data) - capacity,
		}).Warn("Payload exceeds characteristic buffer, keeping newest bytes")
		data = data[len(data)-capacity:]
		x.buf.Reset()
	}

	if free := x.buf.Free(); free < len(data) {
		discard := int64(len(data) - free)
		if _, err := io.CopyN(io.Discard, x.buf, discard); err != nil {
			x.logger.WithError(err).Warn("Failed to make room in characteristic buffer")
		}
		x.logger.WithFields(logrus.Fields{
			"characteristic": x.char.UUID(),
			"discarded":      discard,
		}).Warn("Characteristic buffer overflow, discarded oldest bytes")
	}

	if _, err := x.buf.Write(data); err != nil {
		x.logger.WithFields(logrus.Fields{
			"characteristic": x.char.UUID(),
			"error":          err,
		}).Error("Failed to buffer characteristic data")
	}
}

// Write sends exactly p to the device in one platform write; there is no
// internal write buffering and no partial write. On success the full length
// is reported.
//
// Write panics if the characteristic does not have the Write capability.
func (x *CharacteristicIO) Write(p []byte) (int, error) {
	if props, ok := x.char.Properties(); ok && !props.Contains(PropertyWrite) {
		panic(fmt.Sprintf("bleio: characteristic %s does not support write", x.char.UUID()))
	}

	if err := x.char.write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush is a no-op: writes are never buffered. It panics if the
// characteristic does not have the Write capability, matching Write.
func (x *CharacteristicIO) Flush() error {
	if props, ok := x.char.Properties(); ok && !props.Contains(PropertyWrite) {
		panic(fmt.Sprintf("bleio: characteristic %s does not support write", x.char.UUID()))
	}
	return nil
}

// Close tears down the notify subscription, if one was configured, by
// disabling notifications on the device. It is idempotent: the unsubscribe
// is attempted exactly once, regardless of how many reads or writes failed
// before. Unsubscribe failures are logged, never returned.
func (x *CharacteristicIO) Close() error {
	x.closeOnce.Do(func() {
		if x.notify == nil {
			return
		}
		x.logger.WithField("characteristic", x.char.UUID()).Debug("Releasing characteristic I/O, removing notify")
		x.notify.Close()
	})
	return nil
}
