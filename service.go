package bleio

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/bleio/internal/bledb"
)

// Service wraps one discovered GATT service.
type Service struct {
	svc    *ble.Service
	client ble.Client
	uuid   string
	logger *logrus.Logger
}

func newService(s *ble.Service, client ble.Client, logger *logrus.Logger) *Service {
	return &Service{
		svc:    s,
		client: client,
		uuid:   bledb.NormalizeUUID(s.UUID.String()),
		logger: logger,
	}
}

// UUID returns the normalized service UUID.
func (s *Service) UUID() string {
	return s.uuid
}

// KnownName returns the Bluetooth SIG name for well-known services, or "".
func (s *Service) KnownName() string {
	return bledb.LookupService(s.uuid)
}

// Characteristics enumerates the service's characteristics in discovery
// order.
func (s *Service) Characteristics() ([]*Characteristic, error) {
	s.logger.WithField("service", s.uuid).Debug("Discovering characteristics...")

	chars, err := s.client.DiscoverCharacteristics(nil, s.svc)
	if err != nil {
		return nil, fmt.Errorf("failed to discover characteristics of service %s: %w", s.uuid, err)
	}

	result := make([]*Characteristic, 0, len(chars))
	for _, c := range chars {
		result = append(result, newCharacteristic(c, s.client, s.logger))
	}
	return result, nil
}
