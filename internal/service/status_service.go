package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/keyrelay/keyrelay/internal/metrics"
	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/registry"
	"golang.org/x/sync/errgroup"
)

// DefaultOnlineWindow is how recently a device must have polled its relay to count as online.
const DefaultOnlineWindow = 60 * time.Second

const maxConcurrentPolls = 16

// ActivitySource reports when a device last contacted its relay.
type ActivitySource interface {
	LastActive(ctx context.Context, relayURL, pubkey string) (time.Time, error)
}

// StatusService polls relays for device liveness.
type StatusService struct {
	registry *registry.Registry
	source   ActivitySource
	window   time.Duration
	interval time.Duration
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

// NewStatusService builds StatusService. m and log may be nil.
func NewStatusService(reg *registry.Registry, source ActivitySource, window, interval time.Duration, m *metrics.Metrics, log *slog.Logger) *StatusService {
	if window <= 0 {
		window = DefaultOnlineWindow
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &StatusService{
		registry: reg,
		source:   source,
		window:   window,
		interval: interval,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// IsOnline reports whether last is no more than window before now, counted in
// whole seconds since relays report last activity at second precision.
func IsOnline(last, now time.Time, window time.Duration) bool {
	return now.Sub(last)/time.Second <= window/time.Second
}

// Check polls every device concurrently. A failure for one device marks only
// that device offline; the result keeps registry order.
func (s *StatusService) Check(ctx context.Context) ([]model.DeviceStatus, error) {
	devices, err := s.registry.List(ctx)
	if err != nil {
		return nil, mapRegistryError(err)
	}

	results := make([]model.DeviceStatus, len(devices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPolls)
	for i, device := range devices {
		g.Go(func() error {
			results[i] = s.checkOne(gctx, device)
			return nil
		})
	}
	_ = g.Wait()

	online := 0
	for _, r := range results {
		if r.Online() {
			online++
		}
	}
	if s.metrics != nil {
		s.metrics.DevicesOnline.Set(float64(online))
		s.metrics.DevicesPolled.Set(float64(len(results)))
	}
	return results, nil
}

func (s *StatusService) checkOne(ctx context.Context, device *model.Device) model.DeviceStatus {
	status := model.DeviceStatus{
		Pubkey:     device.Pubkey,
		DeviceName: device.DeviceName,
		Status:     model.DeviceStatusOffline,
	}
	last, err := s.source.LastActive(ctx, device.RelayURL, device.Pubkey)
	if err != nil {
		s.log.Debug("status check failed", "device", device.DeviceName, "err", err)
		status.Error = err.Error()
		return status
	}
	status.LastActive = &last
	if IsOnline(last, s.now(), s.window) {
		status.Status = model.DeviceStatusOnline
	}
	return status
}

// Watch polls immediately and then every interval, handing each result to fn,
// until ctx is cancelled. No poll starts after cancellation.
func (s *StatusService) Watch(ctx context.Context, fn func([]model.DeviceStatus)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		statuses, err := s.Check(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.log.Warn("status poll failed", "err", err)
		} else {
			fn(statuses)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
