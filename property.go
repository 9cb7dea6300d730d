package bleio

import (
	"fmt"
	"strings"
)

// Properties is a bitmask set of characteristic capability flags. The bit
// layout matches the GATT characteristic properties field, extended
// properties included.
type Properties uint32

const (
	PropertyBroadcast Properties = 1 << iota
	PropertyRead
	PropertyWriteWithoutResponse
	PropertyWrite
	PropertyNotify
	PropertyIndicate
	PropertyAuthenticatedSignedWrites
	PropertyExtendedProperties
	PropertyReliableWrites
	PropertyWritableAuxiliaries
)

// propertyTable fixes the (name, bit) pairs; decode and formatting both
// walk it so the two can never disagree.
var propertyTable = []struct {
	bit  Properties
	name string
}{
	{PropertyBroadcast, "Broadcast"},
	{PropertyRead, "Read"},
	{PropertyWriteWithoutResponse, "WriteWithoutResponse"},
	{PropertyWrite, "Write"},
	{PropertyNotify, "Notify"},
	{PropertyIndicate, "Indicate"},
	{PropertyAuthenticatedSignedWrites, "AuthenticatedSignedWrites"},
	{PropertyExtendedProperties, "ExtendedProperties"},
	{PropertyReliableWrites, "ReliableWrites"},
	{PropertyWritableAuxiliaries, "WritableAuxiliaries"},
}

// knownPropertyBits is the union of all defined flags.
var knownPropertyBits = func() Properties {
	var all Properties
	for _, e := range propertyTable {
		all |= e.bit
	}
	return all
}()

// DecodeProperties decodes a raw platform bitmask into a Properties set.
// Unrecognized bits are rejected rather than dropped, so a caller can trust
// that every observed flag is meaningful.
func DecodeProperties(raw uint32) (Properties, error) {
	p := Properties(raw)
	if unknown := p &^ knownPropertyBits; unknown != 0 {
		return 0, fmt.Errorf("unknown characteristic property bits 0x%x in 0x%x", uint32(unknown), raw)
	}
	return p, nil
}

// Contains reports whether every flag in flags is set.
func (p Properties) Contains(flags Properties) bool {
	return p&flags == flags
}

// Names returns the human-readable names of the set flags, in bit order.
func (p Properties) Names() []string {
	var names []string
	for _, e := range propertyTable {
		if p&e.bit != 0 {
			names = append(names, e.name)
		}
	}
	return names
}

func (p Properties) String() string {
	names := p.Names()
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}
