package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/keyrelay/keyrelay/internal/apperr"
	"github.com/keyrelay/keyrelay/internal/crypto"
	"github.com/keyrelay/keyrelay/internal/metrics"
	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/registry"
	"github.com/keyrelay/keyrelay/internal/relayclient"
	"github.com/keyrelay/keyrelay/internal/storage"
)

// DeviceService registers, edits and removes devices.
type DeviceService struct {
	registry *registry.Registry
	vault    *crypto.Vault
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// RegisterRequest describes a new device. PrivateKey is the scanned or typed hex key.
type RegisterRequest struct {
	Name       string `json:"deviceName"`
	RelayURL   string `json:"relayUrl"`
	PrivateKey string `json:"privateKey"`
	PIN        string `json:"pin"`
}

// EditRequest replaces the non-nil fields.
type EditRequest struct {
	Name     *string `json:"deviceName,omitempty"`
	RelayURL *string `json:"relayUrl,omitempty"`
}

// NewDeviceService constructs DeviceService. m and log may be nil.
func NewDeviceService(reg *registry.Registry, vault *crypto.Vault, m *metrics.Metrics, log *slog.Logger) *DeviceService {
	if log == nil {
		log = slog.Default()
	}
	return &DeviceService{registry: reg, vault: vault, metrics: m, log: log}
}

// Register derives the public key, seals the private key under the PIN and
// stores the device. Nothing is written unless every step succeeds.
func (s *DeviceService) Register(ctx context.Context, req RegisterRequest) (*model.Device, error) {
	device, err := s.register(ctx, req)
	s.observe("add", err)
	if err != nil {
		s.log.Warn("device registration rejected", "device", strings.TrimSpace(req.Name), "err", err)
		return nil, err
	}
	s.log.Info("device registered", "device", device.DeviceName, "pubkey", device.Pubkey)
	return device, nil
}

func (s *DeviceService) register(ctx context.Context, req RegisterRequest) (*model.Device, error) {
	name, err := ValidateName(req.Name)
	if err != nil {
		return nil, apperr.InvalidArg("Device name is required", err)
	}
	relayURL, err := relayclient.NormalizeRelayURL(req.RelayURL)
	if err != nil {
		return nil, apperr.InvalidArg("Invalid relay URL", err)
	}
	if err := ValidatePIN(req.PIN); err != nil {
		return nil, apperr.InvalidArg("PIN must be 6 digits", err)
	}
	keyHex, err := crypto.ParseScannedKey(req.PrivateKey)
	if err != nil {
		return nil, apperr.InvalidArg("Invalid private key", err)
	}

	raw, err := crypto.HexToBytes(keyHex)
	if err != nil {
		return nil, apperr.InvalidArg("Invalid private key", err)
	}
	pubkey, err := crypto.PublicKeyFromPrivate(raw)
	for i := range raw {
		raw[i] = 0
	}
	if err != nil {
		return nil, apperr.InvalidArg("Invalid private key", err)
	}

	blob, err := s.vault.Encrypt(keyHex, req.PIN)
	if err != nil {
		return nil, apperr.Internal("Could not protect the private key", err)
	}

	device := &model.Device{
		Pubkey:           pubkey,
		DeviceName:       name,
		RelayURL:         relayURL,
		EncryptedPrivKey: blob,
	}
	if err := s.registry.Add(ctx, device); err != nil {
		return nil, mapRegistryError(err)
	}
	return device, nil
}

// Edit renames a device or moves it to another relay.
func (s *DeviceService) Edit(ctx context.Context, pubkey string, req EditRequest) (*model.Device, error) {
	var upd model.DeviceUpdate
	if req.Name != nil {
		name, err := ValidateName(*req.Name)
		if err != nil {
			return nil, apperr.InvalidArg("Device name is required", err)
		}
		upd.DeviceName = &name
	}
	if req.RelayURL != nil {
		relayURL, err := relayclient.NormalizeRelayURL(*req.RelayURL)
		if err != nil {
			return nil, apperr.InvalidArg("Invalid relay URL", err)
		}
		upd.RelayURL = &relayURL
	}
	device, err := s.registry.Update(ctx, pubkey, upd)
	s.observe("update", err)
	if err != nil {
		return nil, mapRegistryError(err)
	}
	s.log.Info("device updated", "device", device.DeviceName, "pubkey", device.Pubkey)
	return device, nil
}

// Delete removes a device.
func (s *DeviceService) Delete(ctx context.Context, pubkey string) error {
	err := s.registry.Remove(ctx, pubkey)
	s.observe("remove", err)
	if err != nil {
		return mapRegistryError(err)
	}
	s.log.Info("device removed", "pubkey", pubkey)
	return nil
}

// Get returns a device by public key.
func (s *DeviceService) Get(ctx context.Context, pubkey string) (*model.Device, error) {
	device, err := s.registry.Find(ctx, pubkey)
	if err != nil {
		return nil, mapRegistryError(err)
	}
	return device, nil
}

// List returns all devices.
func (s *DeviceService) List(ctx context.Context) ([]*model.Device, error) {
	devices, err := s.registry.List(ctx)
	if err != nil {
		return nil, mapRegistryError(err)
	}
	return devices, nil
}

// ListViews returns masked device views.
func (s *DeviceService) ListViews(ctx context.Context) ([]*model.DeviceView, error) {
	devices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*model.DeviceView, 0, len(devices))
	for _, device := range devices {
		views = append(views, ToView(device))
	}
	return views, nil
}

func (s *DeviceService) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RegistryOps.WithLabelValues(op, metrics.Result(err)).Inc()
}

func mapRegistryError(err error) error {
	var appErr *apperr.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, registry.ErrDuplicateName):
		return apperr.AlreadyExists("A device with this name already exists", err)
	case errors.Is(err, registry.ErrDuplicatePubkey):
		return apperr.AlreadyExists("This key is already registered", err)
	case errors.Is(err, registry.ErrNotFound):
		return apperr.NotFound("Device not found", err)
	case errors.Is(err, registry.ErrInvalidDevice):
		return apperr.InvalidArg("Invalid device", err)
	case errors.Is(err, storage.ErrCorrupt):
		return apperr.Internal("The device list is unreadable", err)
	default:
		return apperr.Internal("Could not access the device list", err)
	}
}

// ToView masks the sealed key for display.
func ToView(device *model.Device) *model.DeviceView {
	if device == nil {
		return nil
	}
	return &model.DeviceView{
		Pubkey:           device.Pubkey,
		DeviceName:       device.DeviceName,
		RelayURL:         device.RelayURL,
		EncryptedPrivKey: maskValue(device.EncryptedPrivKey),
	}
}

func maskValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	length := len(runes)
	if length <= 4 {
		return value
	}
	return string(runes[:4]) + strings.Repeat("*", length-4)
}
