//go:build darwin

package bleio

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/darwin"
)

// DeviceFactory creates the platform ble.Device (CoreBluetooth central).
// It is a variable so tests can substitute a mock.
var DeviceFactory = func() (ble.Device, error) {
	return darwin.NewDevice()
}
