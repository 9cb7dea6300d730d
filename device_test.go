package bleio_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/bleio"
	"github.com/srg/bleio/internal/testutils"
)

// withMockPeripheral points the device factory at the mocked peripheral for
// the duration of the test.
func withMockPeripheral(t *testing.T, p *testutils.MockPeripheral) {
	t.Helper()

	orig := bleio.DeviceFactory
	bleio.DeviceFactory = func() (ble.Device, error) {
		return p.Device, nil
	}
	t.Cleanup(func() {
		bleio.DeviceFactory = orig
	})
}

func dialMockPeripheral(t *testing.T, p *testutils.MockPeripheral) *bleio.Device {
	t.Helper()
	withMockPeripheral(t, p)

	helper := testutils.NewTestHelper(t)
	addr, err := bleio.ParseAddress("C8:FD:19:12:7F:CD")
	require.NoError(t, err)

	dev, err := bleio.Dial(context.Background(), addr, helper.Logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = dev.Close()
	})
	return dev
}

// findCharacteristic walks the mocked GATT database to the characteristic
// with the given normalized UUID.
func findCharacteristic(t *testing.T, dev *bleio.Device, svcUUID, charUUID string) *bleio.Characteristic {
	t.Helper()

	svcs, err := dev.Services()
	require.NoError(t, err)
	for _, s := range svcs {
		if s.UUID() != svcUUID {
			continue
		}
		chars, err := s.Characteristics()
		require.NoError(t, err)
		for _, c := range chars {
			if c.UUID() == charUUID {
				return c
			}
		}
	}
	t.Fatalf("characteristic %s/%s not found in mocked profile", svcUUID, charUUID)
	return nil
}

func TestDial(t *testing.T) {
	t.Run("connects and exposes identity", func(t *testing.T) {
		p := testutils.CreateMockPeripheral().Build()
		dev := dialMockPeripheral(t, p)

		assert.Equal(t, "C8:FD:19:12:7F:CD", dev.Address().String())
		assert.Equal(t, "mock-peripheral", dev.Name())
	})

	t.Run("propagates factory failure", func(t *testing.T) {
		orig := bleio.DeviceFactory
		bleio.DeviceFactory = func() (ble.Device, error) {
			return nil, errors.New("no adapter")
		}
		t.Cleanup(func() {
			bleio.DeviceFactory = orig
		})

		addr, err := bleio.ParseAddress("C8:FD:19:12:7F:CD")
		require.NoError(t, err)

		_, err = bleio.Dial(context.Background(), addr, nil)
		assert.Error(t, err)
	})

	t.Run("close cancels the connection", func(t *testing.T) {
		p := testutils.CreateMockPeripheral().Build()
		dev := dialMockPeripheral(t, p)

		require.NoError(t, dev.Close())
		p.Client.AssertCalled(t, "CancelConnection")
	})
}

func TestDevice_Services(t *testing.T) {
	p := testutils.CreateMockPeripheral().
		WithService("180D").
		WithCharacteristic("2A37", "read,notify", []byte{0x06, 0x48}).
		WithDescriptor("2902", []byte{0x01, 0x00}).
		WithService("180F").
		WithCharacteristic("2A19", "read", []byte{0x64}).
		Build()
	dev := dialMockPeripheral(t, p)

	svcs, err := dev.Services()
	require.NoError(t, err)
	require.Len(t, svcs, 2)

	t.Run("normalizes UUIDs and resolves SIG names", func(t *testing.T) {
		assert.Equal(t, "180d", svcs[0].UUID())
		assert.Equal(t, "Heart Rate", svcs[0].KnownName())
		assert.Equal(t, "180f", svcs[1].UUID())
		assert.Equal(t, "Battery", svcs[1].KnownName())
	})

	t.Run("enumerates characteristics in discovery order", func(t *testing.T) {
		chars, err := svcs[0].Characteristics()
		require.NoError(t, err)
		require.Len(t, chars, 1)

		assert.Equal(t, "2a37", chars[0].UUID())
		assert.Equal(t, "Heart Rate Measurement", chars[0].KnownName())

		props, ok := chars[0].Properties()
		require.True(t, ok)
		assert.True(t, props.Contains(bleio.PropertyRead|bleio.PropertyNotify))
		assert.False(t, props.Contains(bleio.PropertyWrite))
	})

	t.Run("enumerates and reads descriptors", func(t *testing.T) {
		char := findCharacteristic(t, dev, "180d", "2a37")

		descs, err := char.Descriptors()
		require.NoError(t, err)
		require.Len(t, descs, 1)

		assert.Equal(t, "2902", descs[0].UUID())
		assert.Equal(t, "Client Characteristic Configuration", descs[0].KnownName())

		value, err := descs[0].Read()
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x00}, value)
	})
}
