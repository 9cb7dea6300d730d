package bleio

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/bleio/internal/bledb"
)

// Advertisement is an immutable snapshot of a single received BLE
// advertisement. It is produced into the watcher's stream and not retained
// by the watcher after delivery.
type Advertisement struct {
	addr        Address
	rssi        int16
	localName   string
	connectable bool
	mfgData     []byte
	services    []string
	logger      *logrus.Logger
}

// newAdvertisement snapshots a platform advertisement. The platform may
// reuse its buffers after the callback returns, so slices are copied here.
func newAdvertisement(a ble.Advertisement, logger *logrus.Logger) (Advertisement, error) {
	addr, err := ParseAddress(a.Addr().String())
	if err != nil {
		return Advertisement{}, err
	}

	var mfg []byte
	if d := a.ManufacturerData(); len(d) > 0 {
		mfg = make([]byte, len(d))
		copy(mfg, d)
	}

	var svcs []string
	for _, u := range a.Services() {
		svcs = append(svcs, bledb.NormalizeUUID(u.String()))
	}

	return Advertisement{
		addr:        addr,
		rssi:        int16(a.RSSI()),
		localName:   a.LocalName(),
		connectable: a.Connectable(),
		mfgData:     mfg,
		services:    svcs,
		logger:      logger,
	}, nil
}

// Address returns the MAC address of the device that sent the advertisement.
func (a Advertisement) Address() Address {
	return a.addr
}

// SignalStrength returns the received signal strength in dBm.
func (a Advertisement) SignalStrength() int16 {
	return a.rssi
}

// LocalName returns the advertised device name, if any.
func (a Advertisement) LocalName() string {
	return a.localName
}

// Connectable reports whether the advertisement marks the device as
// accepting connections.
func (a Advertisement) Connectable() bool {
	return a.connectable
}

// ManufacturerData returns a copy of the advertised manufacturer data.
func (a Advertisement) ManufacturerData() []byte {
	if a.mfgData == nil {
		return nil
	}
	return append([]byte(nil), a.mfgData...)
}

// Services returns the normalized UUIDs of the advertised services.
func (a Advertisement) Services() []string {
	return append([]string(nil), a.services...)
}

// Device connects to the device that sent this advertisement.
func (a Advertisement) Device(ctx context.Context) (*Device, error) {
	return Dial(ctx, a.addr, a.logger)
}
