package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/bleio"
	"github.com/srg/bleio/internal/bledb"
)

// connectDevice parses the address and dials it within the connect timeout.
// The returned cancel releases the dial context; callers still Close the
// device.
func connectDevice(ctx context.Context, address string, timeout time.Duration, logger *logrus.Logger) (*bleio.Device, context.CancelFunc, error) {
	addr, err := bleio.ParseAddress(address)
	if err != nil {
		return nil, nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	dev, err := bleio.Dial(dialCtx, addr, logger)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return dev, cancel, nil
}

// resolveCharacteristic finds a characteristic by UUID, optionally scoped to
// one service. Ambiguous matches across services require --service.
//
// Arguments go through the same normalization the enumeration wrappers apply
// to every UUID they report, so the full SIG base form ("00002a19-...")
// matches the short form shown by inspect.
func resolveCharacteristic(dev *bleio.Device, serviceUUID, charUUID string) (*bleio.Characteristic, error) {
	wantSvc := bledb.NormalizeUUID(serviceUUID)
	wantChar := bledb.NormalizeUUID(charUUID)

	svcs, err := dev.Services()
	if err != nil {
		return nil, err
	}

	var matches []*bleio.Characteristic
	for _, svc := range svcs {
		if wantSvc != "" && svc.UUID() != wantSvc {
			continue
		}
		chars, err := svc.Characteristics()
		if err != nil {
			return nil, err
		}
		for _, char := range chars {
			if char.UUID() == wantChar {
				matches = append(matches, char)
			}
		}
	}

	switch len(matches) {
	case 0:
		if wantSvc != "" {
			return nil, fmt.Errorf("characteristic %s not found in service %s", charUUID, serviceUUID)
		}
		return nil, fmt.Errorf("characteristic %s not found", charUUID)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("characteristic %s is ambiguous (%d matches), disambiguate with --service", charUUID, len(matches))
	}
}
