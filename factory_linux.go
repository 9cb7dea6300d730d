//go:build linux

package bleio

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// DeviceFactory creates the platform ble.Device (the local HCI adapter).
// It is a variable so tests can substitute a mock.
var DeviceFactory = func() (ble.Device, error) {
	return linux.NewDevice()
}
