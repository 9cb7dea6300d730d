package testutils

import (
	"github.com/go-ble/ble"

	"github.com/srg/bleio/internal/testutils/mocks"
)

// AdvertisementBuilder builds mocked BLE advertisements for testing. Every
// accessor the advertisement snapshot touches gets an expectation, so a
// builder with no setters still produces a usable mock.
type AdvertisementBuilder struct {
	name        string
	address     string
	rssi        int
	services    []string
	manufData   []byte
	connectable bool
}

// NewAdvertisementBuilder creates a builder with connectable=true and a
// zeroed address.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{
		address:     "00:00:00:00:00:00",
		connectable: true,
	}
}

// WithName sets the local name.
func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.name = name
	return b
}

// WithAddress sets the device MAC address.
func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.address = addr
	return b
}

// WithRSSI sets the signal strength.
func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.rssi = rssi
	return b
}

// WithServices adds advertised service UUIDs, short or full form.
func (b *AdvertisementBuilder) WithServices(uuids ...string) *AdvertisementBuilder {
	b.services = append(b.services, uuids...)
	return b
}

// WithManufacturerData sets the manufacturer-specific data.
func (b *AdvertisementBuilder) WithManufacturerData(data []byte) *AdvertisementBuilder {
	b.manufData = data
	return b
}

// WithConnectable sets whether the device accepts connections.
func (b *AdvertisementBuilder) WithConnectable(c bool) *AdvertisementBuilder {
	b.connectable = c
	return b
}

// Build creates a MockAdvertisement implementing ble.Advertisement.
func (b *AdvertisementBuilder) Build() *mocks.MockAdvertisement {
	var bleServices []ble.UUID
	for _, s := range b.services {
		bleServices = append(bleServices, ble.MustParse(s))
	}

	addr := &mocks.MockAddr{}
	addr.On("String").Return(b.address)

	adv := &mocks.MockAdvertisement{}
	adv.On("Addr").Return(addr)
	adv.On("LocalName").Return(b.name)
	adv.On("RSSI").Return(b.rssi)
	adv.On("ManufacturerData").Return(b.manufData)
	adv.On("Services").Return(bleServices)
	adv.On("Connectable").Return(b.connectable)
	return adv
}
