package bleio

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/bleio/internal/bledb"
)

// Characteristic wraps one discovered GATT characteristic. The UUID is an
// immutable identity; the remote value is fetched on demand, never cached
// by the wrapper.
type Characteristic struct {
	char   *ble.Characteristic
	client ble.Client
	uuid   string
	logger *logrus.Logger
}

func newCharacteristic(c *ble.Characteristic, client ble.Client, logger *logrus.Logger) *Characteristic {
	return &Characteristic{
		char:   c,
		client: client,
		uuid:   bledb.NormalizeUUID(c.UUID.String()),
		logger: logger,
	}
}

// UUID returns the normalized characteristic UUID.
func (c *Characteristic) UUID() string {
	return c.uuid
}

// KnownName returns the Bluetooth SIG name for well-known characteristics,
// or "".
func (c *Characteristic) KnownName() string {
	return bledb.LookupCharacteristic(c.uuid)
}

// Properties decodes the characteristic's capability flags. ok is false
// when the platform value cannot be decoded; check it before gating
// read/write/notify decisions on the result.
func (c *Characteristic) Properties() (Properties, bool) {
	props, err := DecodeProperties(uint32(c.char.Property))
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"characteristic": c.uuid,
			"error":          err,
		}).Debug("Failed to decode characteristic properties")
		return 0, false
	}
	return props, true
}

// Descriptors enumerates the characteristic's descriptors in discovery
// order.
func (c *Characteristic) Descriptors() ([]*Descriptor, error) {
	c.logger.WithField("characteristic", c.uuid).Debug("Discovering descriptors...")

	descs, err := c.client.DiscoverDescriptors(nil, c.char)
	if err != nil {
		return nil, fmt.Errorf("failed to discover descriptors of characteristic %s: %w", c.uuid, err)
	}

	result := make([]*Descriptor, 0, len(descs))
	for _, d := range descs {
		result = append(result, newDescriptor(d, c.client))
	}
	return result, nil
}

// IO returns a byte-stream handle over this characteristic. Notifications
// are configured automatically when the characteristic supports them.
//
// At most one IO handle may be live per characteristic at a time; callers
// must serialize handle lifetimes.
func (c *Characteristic) IO() (*CharacteristicIO, error) {
	return newCharacteristicIO(c)
}

// read issues one direct platform read, bypassing any cached value.
func (c *Characteristic) read() ([]byte, error) {
	c.logger.WithField("characteristic", c.uuid).Debug("Reading characteristic value")

	data, err := c.client.ReadCharacteristic(c.char)
	if err != nil {
		return nil, fmt.Errorf("failed to read characteristic %s: %w", c.uuid, err)
	}
	return data, nil
}

// write issues one direct platform write of exactly data.
func (c *Characteristic) write(data []byte) error {
	c.logger.WithFields(logrus.Fields{
		"characteristic": c.uuid,
		"len":            len(data),
	}).Debug("Writing characteristic value")

	if err := c.client.WriteCharacteristic(c.char, data, false); err != nil {
		return fmt.Errorf("failed to write characteristic %s: %w", c.uuid, err)
	}
	return nil
}
