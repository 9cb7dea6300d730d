package bleio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Address parsing errors. Use errors.Is to distinguish them.
var (
	// ErrIncorrectSegments indicates the address text did not split into
	// exactly six colon-separated segments.
	ErrIncorrectSegments = errors.New("address has incorrect number of segments")

	// ErrInvalidNumber indicates a segment was not a valid base-16 byte.
	ErrInvalidNumber = errors.New("address segment is not a valid base-16 number")
)

// Address is a 48-bit Bluetooth MAC address stored in the low six bytes of
// a uint64. It is an immutable value type: comparison and map keying work
// by numeric value.
type Address uint64

// ParseAddress parses a colon-separated MAC address such as
// "C8:FD:19:12:7F:CD". The text lists bytes most-significant first; hex
// digits may be upper or lower case.
func ParseAddress(s string) (Address, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return 0, fmt.Errorf("%w: expected 6, got %d in %q", ErrIncorrectSegments, len(parts), s)
	}

	var addr uint64
	for i, part := range parts {
		val, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: segment %q", ErrInvalidNumber, part)
		}
		// Text is most-significant first; assemble little-endian so that
		// segment index 5 lands in the low byte.
		addr |= val << (8 * (5 - i))
	}

	return Address(addr), nil
}

// Bytes returns the six address bytes, most-significant first.
func (a Address) Bytes() [6]byte {
	var b [6]byte
	for i := 0; i < 6; i++ {
		b[i] = byte(a >> (8 * (5 - i)))
	}
	return b
}

// String formats the address as six uppercase hex byte pairs joined by
// colons, most-significant byte first. ParseAddress(a.String()) == a.
func (a Address) String() string {
	b := a.Bytes()
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[0], b[1], b[2], b[3], b[4], b[5])
}
