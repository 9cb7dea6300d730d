package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/mock"

	"github.com/srg/bleio/internal/testutils/mocks"
)

// DescriptorConfig describes one mocked descriptor.
type DescriptorConfig struct {
	UUID  string `json:"uuid"`
	Value []byte `json:"value,omitempty"`
}

// CharacteristicConfig describes one mocked characteristic.
type CharacteristicConfig struct {
	UUID        string             `json:"uuid"`
	Properties  string             `json:"properties,omitempty"` // e.g. "read,write,notify"
	Value       []byte             `json:"value,omitempty"`
	Descriptors []DescriptorConfig `json:"descriptors,omitempty"`
}

// ServiceConfig describes one mocked service.
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// PeripheralConfig is the full mocked GATT database.
type PeripheralConfig struct {
	Services []ServiceConfig `json:"services"`
}

// MockPeripheral is a fully wired mock device: Dial yields the Client, the
// Client serves the configured GATT database, and notify subscriptions are
// captured so tests can push payloads with Notify.
type MockPeripheral struct {
	Device *mocks.MockDevice
	Client *mocks.MockClient

	mu       sync.Mutex
	handlers map[string]ble.NotificationHandler
	writes   map[string][][]byte
}

// Notify delivers a notification payload to the subscription on the given
// characteristic UUID. It reports whether a subscriber was registered.
func (p *MockPeripheral) Notify(uuid string, payload []byte) bool {
	key := ble.MustParse(uuid).String()

	p.mu.Lock()
	h, ok := p.handlers[key]
	p.mu.Unlock()

	if !ok || h == nil {
		return false
	}
	h(payload)
	return true
}

// Writes returns the payloads written to the given characteristic UUID, in
// order.
func (p *MockPeripheral) Writes(uuid string) [][]byte {
	key := ble.MustParse(uuid).String()

	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.writes[key]...)
}

// Subscribed reports whether the given characteristic currently has a
// captured notification handler.
func (p *MockPeripheral) Subscribed(uuid string) bool {
	key := ble.MustParse(uuid).String()

	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.handlers[key]
	return ok
}

// PeripheralBuilder builds a MockPeripheral from a declarative GATT profile.
type PeripheralBuilder struct {
	profile            PeripheralConfig
	scanAdvertisements []ble.Advertisement
}

// NewPeripheralBuilder creates an empty builder.
func NewPeripheralBuilder() *PeripheralBuilder {
	return &PeripheralBuilder{}
}

// WithService adds a service to the profile.
func (b *PeripheralBuilder) WithService(uuid string) *PeripheralBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{UUID: uuid})
	return b
}

// WithCharacteristic adds a characteristic to the last added service.
func (b *PeripheralBuilder) WithCharacteristic(uuid, properties string, value []byte) *PeripheralBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}
	last := len(b.profile.Services) - 1
	b.profile.Services[last].Characteristics = append(b.profile.Services[last].Characteristics,
		CharacteristicConfig{UUID: uuid, Properties: properties, Value: value})
	return b
}

// WithDescriptor adds a descriptor to the last added characteristic.
func (b *PeripheralBuilder) WithDescriptor(uuid string, value []byte) *PeripheralBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithDescriptor: no service added yet, call WithService first")
	}
	svc := &b.profile.Services[len(b.profile.Services)-1]
	if len(svc.Characteristics) == 0 {
		panic("WithDescriptor: no characteristic added yet, call WithCharacteristic first")
	}
	char := &svc.Characteristics[len(svc.Characteristics)-1]
	char.Descriptors = append(char.Descriptors, DescriptorConfig{UUID: uuid, Value: value})
	return b
}

// WithScanAdvertisements makes the mocked Scan deliver the given
// advertisements to the handler before blocking on context cancellation.
func (b *PeripheralBuilder) WithScanAdvertisements(ads ...ble.Advertisement) *PeripheralBuilder {
	b.scanAdvertisements = append(b.scanAdvertisements, ads...)
	return b
}

// FromJSON fills the profile from JSON. Panics on invalid JSON; this is test
// setup.
func (b *PeripheralBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var config PeripheralConfig
	if err := json.Unmarshal([]byte(jsonStr), &config); err != nil {
		panic(fmt.Sprintf("PeripheralBuilder.FromJSON: failed to unmarshal: %v", err))
	}
	b.profile = config
	return b
}

func parseCharacteristicProperties(props string) ble.Property {
	if props == "" {
		return ble.CharRead | ble.CharWrite | ble.CharNotify
	}

	var property ble.Property
	for _, p := range strings.Split(props, ",") {
		switch strings.TrimSpace(p) {
		case "broadcast":
			property |= ble.CharBroadcast
		case "read":
			property |= ble.CharRead
		case "write-without-response":
			property |= ble.CharWriteNR
		case "write":
			property |= ble.CharWrite
		case "notify":
			property |= ble.CharNotify
		case "indicate":
			property |= ble.CharIndicate
		default:
			panic(fmt.Sprintf("parseCharacteristicProperties: unknown property %q", p))
		}
	}
	return property
}

// Build wires up the mock device, client, and GATT database.
func (b *PeripheralBuilder) Build() *MockPeripheral {
	p := &MockPeripheral{
		Device:   &mocks.MockDevice{},
		Client:   &mocks.MockClient{},
		handlers: make(map[string]ble.NotificationHandler),
		writes:   make(map[string][][]byte),
	}

	var bleServices []*ble.Service
	for _, svcConfig := range b.profile.Services {
		svc := &ble.Service{UUID: ble.MustParse(svcConfig.UUID)}

		for _, charConfig := range svcConfig.Characteristics {
			char := &ble.Characteristic{
				UUID:     ble.MustParse(charConfig.UUID),
				Property: parseCharacteristicProperties(charConfig.Properties),
				Value:    charConfig.Value,
			}
			for _, descConfig := range charConfig.Descriptors {
				char.Descriptors = append(char.Descriptors, &ble.Descriptor{
					UUID:  ble.MustParse(descConfig.UUID),
					Value: descConfig.Value,
				})
			}
			svc.Characteristics = append(svc.Characteristics, char)
		}
		bleServices = append(bleServices, svc)
	}

	p.Device.On("Dial", mock.Anything, mock.Anything).Return(p.Client, nil)
	p.Device.On("Stop").Return(nil)

	p.Device.On("Scan", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			handler := args.Get(2).(ble.AdvHandler)
			for _, adv := range b.scanAdvertisements {
				handler(adv)
			}
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil)

	p.Client.On("DiscoverServices", mock.Anything).Return(bleServices, nil)
	p.Client.On("CancelConnection").Return(nil)
	p.Client.On("Name").Return("mock-peripheral")

	for _, svc := range bleServices {
		p.Client.On("DiscoverCharacteristics", mock.Anything, svc).Return(svc.Characteristics, nil)

		for _, char := range svc.Characteristics {
			char := char
			key := char.UUID.String()

			p.Client.On("DiscoverDescriptors", mock.Anything, char).Return(char.Descriptors, nil)

			for _, desc := range char.Descriptors {
				p.Client.On("ReadDescriptor", desc).Return(desc.Value, nil)
			}

			if char.Property&ble.CharRead != 0 {
				p.Client.On("ReadCharacteristic", char).Return(char.Value, nil)
			} else {
				p.Client.On("ReadCharacteristic", char).
					Return(nil, fmt.Errorf("characteristic does not support read"))
			}

			p.Client.On("WriteCharacteristic", char, mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) {
					data := append([]byte(nil), args.Get(1).([]byte)...)
					p.mu.Lock()
					p.writes[key] = append(p.writes[key], data)
					p.mu.Unlock()
				}).
				Return(nil)

			p.Client.On("Subscribe", char, false, mock.Anything).
				Run(func(args mock.Arguments) {
					h := args.Get(2).(ble.NotificationHandler)
					p.mu.Lock()
					p.handlers[key] = h
					p.mu.Unlock()
				}).
				Return(nil)

			p.Client.On("Unsubscribe", char, false).
				Run(func(mock.Arguments) {
					p.mu.Lock()
					delete(p.handlers, key)
					p.mu.Unlock()
				}).
				Return(nil)
		}
	}

	return p
}
