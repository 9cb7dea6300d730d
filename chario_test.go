package bleio_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/bleio"
	"github.com/srg/bleio/internal/testutils"
)

func TestCharacteristicIO_PollFed(t *testing.T) {
	p := testutils.CreateMockPeripheral().
		WithService("180F").
		WithCharacteristic("2A19", "read,write", []byte{1, 2, 3}).
		Build()
	dev := dialMockPeripheral(t, p)
	char := findCharacteristic(t, dev, "180f", "2a19")

	xfer, err := char.IO()
	require.NoError(t, err)
	defer func() {
		_ = xfer.Close()
	}()

	// No notify support, so no subscription happens.
	assert.False(t, p.Subscribed("2a19"))

	t.Run("empty buffer triggers exactly one device read", func(t *testing.T) {
		buf := make([]byte, 2)
		n, err := xfer.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []byte{1, 2}, buf[:n])
		p.Client.AssertNumberOfCalls(t, "ReadCharacteristic", 1)
	})

	t.Run("remainder is served from the buffer", func(t *testing.T) {
		buf := make([]byte, 2)
		n, err := xfer.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []byte{3}, buf[:n])
		p.Client.AssertNumberOfCalls(t, "ReadCharacteristic", 1)
	})

	t.Run("drained buffer triggers the next device read", func(t *testing.T) {
		buf := make([]byte, 8)
		n, err := xfer.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, buf[:n])
		p.Client.AssertNumberOfCalls(t, "ReadCharacteristic", 2)
	})
}

func TestCharacteristicIO_PollFedEmptyValue(t *testing.T) {
	p := testutils.CreateMockPeripheral().
		WithService("180F").
		WithCharacteristic("2A19", "read", nil).
		Build()
	dev := dialMockPeripheral(t, p)
	char := findCharacteristic(t, dev, "180f", "2a19")

	xfer, err := char.IO()
	require.NoError(t, err)
	defer func() {
		_ = xfer.Close()
	}()

	// A device with nothing to report yields a zero-byte read, not an error
	// and not EOF.
	buf := make([]byte, 4)
	n, err := xfer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCharacteristicIO_PollFedOversizedValue(t *testing.T) {
	value := make([]byte, bleio.DefaultIOBufferSize+500)
	for i := range value {
		value[i] = byte(i)
	}

	p := testutils.CreateMockPeripheral().
		WithService("180F").
		WithCharacteristic("2A19", "read", value).
		Build()
	dev := dialMockPeripheral(t, p)
	char := findCharacteristic(t, dev, "180f", "2a19")

	xfer, err := char.IO()
	require.NoError(t, err)
	defer func() {
		_ = xfer.Close()
	}()

	// A value wider than the whole buffer must still make progress: the
	// newest bytes are kept, not silently dropped in an endless 0-byte loop.
	buf := make([]byte, len(value))
	n, err := xfer.Read(buf)
	require.NoError(t, err)
	require.Equal(t, bleio.DefaultIOBufferSize, n)
	assert.Equal(t, value[len(value)-bleio.DefaultIOBufferSize:], buf[:n])
	p.Client.AssertNumberOfCalls(t, "ReadCharacteristic", 1)
}

func TestCharacteristicIO_NotifyFed(t *testing.T) {
	p := testutils.CreateMockPeripheral().
		WithService("180D").
		WithCharacteristic("2A37", "read,notify", nil).
		Build()
	dev := dialMockPeripheral(t, p)
	char := findCharacteristic(t, dev, "180d", "2a37")

	xfer, err := char.IO()
	require.NoError(t, err)
	defer func() {
		_ = xfer.Close()
	}()

	xfer.SetNotifyTimeout(20 * time.Millisecond)

	t.Run("subscribes at construction", func(t *testing.T) {
		assert.True(t, p.Subscribed("2a37"))
	})

	t.Run("empty buffer waits then reports no data", func(t *testing.T) {
		buf := make([]byte, 4)
		start := time.Now()
		n, err := xfer.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("delivers notification payloads", func(t *testing.T) {
		require.True(t, p.Notify("2a37", []byte{0x06, 0x50}))

		buf := make([]byte, 4)
		n, err := xfer.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x06, 0x50}, buf[:n])
	})

	t.Run("drains queued payloads behind buffered bytes", func(t *testing.T) {
		require.True(t, p.Notify("2a37", []byte{1, 2, 3}))

		buf := make([]byte, 2)
		n, err := xfer.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2}, buf[:n])

		require.True(t, p.Notify("2a37", []byte{4, 5}))

		big := make([]byte, 8)
		n, err = xfer.Read(big)
		require.NoError(t, err)
		assert.Equal(t, []byte{3, 4, 5}, big[:n])
	})

	t.Run("never issues direct device reads", func(t *testing.T) {
		p.Client.AssertNumberOfCalls(t, "ReadCharacteristic", 0)
	})
}

func TestCharacteristicIO_CloseUnsubscribesOnce(t *testing.T) {
	p := testutils.CreateMockPeripheral().
		WithService("180D").
		WithCharacteristic("2A37", "read,notify", nil).
		Build()
	dev := dialMockPeripheral(t, p)
	char := findCharacteristic(t, dev, "180d", "2a37")

	xfer, err := char.IO()
	require.NoError(t, err)
	require.True(t, p.Subscribed("2a37"))

	assert.NoError(t, xfer.Close())
	assert.NoError(t, xfer.Close())

	p.Client.AssertNumberOfCalls(t, "Unsubscribe", 1)
	assert.False(t, p.Subscribed("2a37"))
}

func TestCharacteristicIO_PollFedCloseSkipsUnsubscribe(t *testing.T) {
	p := testutils.CreateMockPeripheral().
		WithService("180F").
		WithCharacteristic("2A19", "read", []byte{0x64}).
		Build()
	dev := dialMockPeripheral(t, p)
	char := findCharacteristic(t, dev, "180f", "2a19")

	xfer, err := char.IO()
	require.NoError(t, err)

	assert.NoError(t, xfer.Close())
	p.Client.AssertNumberOfCalls(t, "Unsubscribe", 0)
}

func TestCharacteristicIO_Write(t *testing.T) {
	p := testutils.CreateMockPeripheral().
		WithService("180D").
		WithCharacteristic("2A39", "read,write", nil).
		Build()
	dev := dialMockPeripheral(t, p)
	char := findCharacteristic(t, dev, "180d", "2a39")

	xfer, err := char.IO()
	require.NoError(t, err)
	defer func() {
		_ = xfer.Close()
	}()

	t.Run("reports the full payload length", func(t *testing.T) {
		n, err := xfer.Write([]byte{0x01})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, [][]byte{{0x01}}, p.Writes("2a39"))
	})

	t.Run("large payloads go out as a single write", func(t *testing.T) {
		payload := make([]byte, 600)
		for i := range payload {
			payload[i] = byte(i)
		}

		n, err := xfer.Write(payload)
		require.NoError(t, err)
		assert.Equal(t, len(payload), n)

		writes := p.Writes("2a39")
		require.Len(t, writes, 2)
		assert.Equal(t, payload, writes[1])
	})

	t.Run("flush is a no-op", func(t *testing.T) {
		require.NoError(t, xfer.Flush())
		assert.Len(t, p.Writes("2a39"), 2)
	})
}

func TestCharacteristicIO_CapabilityViolations(t *testing.T) {
	t.Run("read on a write-only characteristic panics", func(t *testing.T) {
		p := testutils.CreateMockPeripheral().
			WithService("180D").
			WithCharacteristic("2A39", "write", nil).
			Build()
		dev := dialMockPeripheral(t, p)
		char := findCharacteristic(t, dev, "180d", "2a39")

		xfer, err := char.IO()
		require.NoError(t, err)

		assert.Panics(t, func() {
			buf := make([]byte, 4)
			_, _ = xfer.Read(buf)
		})
		p.Client.AssertNumberOfCalls(t, "ReadCharacteristic", 0)
	})

	t.Run("write on a read-only characteristic panics", func(t *testing.T) {
		p := testutils.CreateMockPeripheral().
			WithService("180F").
			WithCharacteristic("2A19", "read", []byte{0x64}).
			Build()
		dev := dialMockPeripheral(t, p)
		char := findCharacteristic(t, dev, "180f", "2a19")

		xfer, err := char.IO()
		require.NoError(t, err)

		assert.Panics(t, func() {
			_, _ = xfer.Write([]byte{0x01})
		})
		assert.Panics(t, func() {
			_ = xfer.Flush()
		})
		p.Client.AssertNumberOfCalls(t, "WriteCharacteristic", 0)
	})
}
