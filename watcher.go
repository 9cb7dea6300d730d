package bleio

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/bleio/internal/groutine"
	"github.com/srg/bleio/internal/stream"
)

// AdvertisementWatcher listens for BLE advertisements and exposes them as a
// lazy, infinite, pull-based sequence. The platform delivers advertisements
// on its own goroutine; the watcher's bridge turns them into Next calls.
//
// A watcher cannot be restarted: once Stop is called (or the underlying
// scan terminates), Next drains whatever is queued and then reports closure.
type AdvertisementWatcher struct {
	dev    ble.Device
	bridge *stream.Bridge[Advertisement]
	cancel context.CancelFunc
	logger *logrus.Logger
}

// NewAdvertisementWatcher starts listening for advertisements. A nil logger
// falls back to a default logrus instance.
func NewAdvertisementWatcher(logger *logrus.Logger) (*AdvertisementWatcher, error) {
	if logger == nil {
		logger = logrus.New()
	}

	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &AdvertisementWatcher{
		dev:    dev,
		cancel: cancel,
		logger: logger,
	}
	w.bridge = stream.New[Advertisement]("advertisement-watcher", func() error {
		cancel()
		return dev.Stop()
	}, logger)

	logger.Debug("Starting advertisement watcher")
	groutine.Go(ctx, "ble-adv-watcher", func(ctx context.Context) {
		err := dev.Scan(ctx, true, w.handleAdvertisement)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Advertisement scan terminated")
		}
		w.bridge.Close()
	})

	return w, nil
}

// handleAdvertisement runs on the platform's scan goroutine. Its only job
// is to snapshot the event and enqueue it; it must never fail the dispatch.
func (w *AdvertisementWatcher) handleAdvertisement(a ble.Advertisement) {
	adv, err := newAdvertisement(a, w.logger)
	if err != nil {
		w.logger.WithFields(logrus.Fields{
			"addr":  a.Addr().String(),
			"error": err,
		}).Debug("Skipping advertisement with unparseable address")
		return
	}
	w.bridge.Emit(adv)
}

// Next blocks until an advertisement is available, returning ok=false only
// once the watcher has been stopped and the queue drained. Delivery order
// matches callback order.
func (w *AdvertisementWatcher) Next() (Advertisement, bool) {
	return w.bridge.Next()
}

// Stop halts the underlying scan. It is idempotent and best-effort: stop
// failures are logged, not returned, since there is no caller to receive a
// result during teardown.
func (w *AdvertisementWatcher) Stop() {
	w.logger.Debug("Stopping advertisement watcher")
	w.bridge.Close()
}
