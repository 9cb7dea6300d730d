package bleio

import (
	"fmt"

	"github.com/go-ble/ble"

	"github.com/srg/bleio/internal/bledb"
)

// Descriptor wraps one discovered GATT descriptor.
type Descriptor struct {
	desc   *ble.Descriptor
	client ble.Client
	uuid   string
}

func newDescriptor(d *ble.Descriptor, client ble.Client) *Descriptor {
	return &Descriptor{
		desc:   d,
		client: client,
		uuid:   bledb.NormalizeUUID(d.UUID.String()),
	}
}

// UUID returns the normalized descriptor UUID.
func (d *Descriptor) UUID() string {
	return d.uuid
}

// KnownName returns the Bluetooth SIG name for well-known descriptors, or "".
func (d *Descriptor) KnownName() string {
	return bledb.LookupDescriptor(d.uuid)
}

// Read fetches the descriptor value from the device.
func (d *Descriptor) Read() ([]byte, error) {
	data, err := d.client.ReadDescriptor(d.desc)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor %s: %w", d.uuid, err)
	}
	return data, nil
}
