package bleio

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// Device is a connected BLE peripheral. It exclusively owns its platform
// client handle; the handle is released by Close.
type Device struct {
	client ble.Client
	addr   Address
	logger *logrus.Logger
}

// Dial connects to a device by MAC address. The context bounds the
// connection attempt. A nil logger falls back to a default logrus instance.
func Dial(ctx context.Context, addr Address, logger *logrus.Logger) (*Device, error) {
	if logger == nil {
		logger = logrus.New()
	}

	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}

	logger.WithField("address", addr.String()).Debug("Dialing BLE device...")
	client, err := dev.Dial(ctx, ble.NewAddr(addr.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device %s: %w", addr, err)
	}

	logger.WithField("address", addr.String()).Info("BLE device connected")
	return &Device{client: client, addr: addr, logger: logger}, nil
}

// Address returns the device's MAC address.
func (d *Device) Address() Address {
	return d.addr
}

// Name returns the device name reported by the platform, which may be the
// advertised name or the GAP device name.
func (d *Device) Name() string {
	return d.client.Name()
}

// Services enumerates the device's GATT services in discovery order.
func (d *Device) Services() ([]*Service, error) {
	d.logger.WithField("address", d.addr.String()).Debug("Discovering services...")

	svcs, err := d.client.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to discover services on %s: %w", d.addr, err)
	}

	result := make([]*Service, 0, len(svcs))
	for _, s := range svcs {
		result = append(result, newService(s, d.client, d.logger))
	}
	return result, nil
}

// Disconnected returns a channel that is closed when the platform reports
// the connection lost.
func (d *Device) Disconnected() <-chan struct{} {
	return d.client.Disconnected()
}

// Close disconnects from the device.
func (d *Device) Close() error {
	d.logger.WithField("address", d.addr.String()).Debug("Disconnecting BLE device")
	return d.client.CancelConnection()
}
