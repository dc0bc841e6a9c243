package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/keyrelay/keyrelay/internal/apperr"
	"github.com/keyrelay/keyrelay/internal/command"
	"github.com/keyrelay/keyrelay/internal/crypto"
	"github.com/keyrelay/keyrelay/internal/metrics"
	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/platform/ratelimiter"
	"github.com/keyrelay/keyrelay/internal/registry"
)

const msgInvalidPIN = "Invalid PIN"

// errKeyMismatch reports a decrypted key that does not belong to the device,
// which happens when a wrong PIN yields valid padding over garbage.
var errKeyMismatch = errors.New("decrypted key does not match device public key")

// CommandTransport delivers a signed command to a relay.
type CommandTransport interface {
	SendCommand(ctx context.Context, relayURL string, cmd *model.SignedCommand) error
}

// CommandService unlocks a device key, signs a command and hands it to the relay.
type CommandService struct {
	registry  *registry.Registry
	vault     *crypto.Vault
	transport CommandTransport
	limiter   *ratelimiter.MapLimiter
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// SendRequest identifies the device, the PIN that unlocks it and the action.
type SendRequest struct {
	Pubkey string `json:"pubkey"`
	PIN    string `json:"pin"`
	Action string `json:"action"`
}

// NewCommandService builds CommandService. limiter, m and log may be nil.
func NewCommandService(reg *registry.Registry, vault *crypto.Vault, transport CommandTransport, limiter *ratelimiter.MapLimiter, m *metrics.Metrics, log *slog.Logger) *CommandService {
	if log == nil {
		log = slog.Default()
	}
	return &CommandService{
		registry:  reg,
		vault:     vault,
		transport: transport,
		limiter:   limiter,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Send signs req.Action with the device key and delivers it. The signed
// command is returned for display and is not kept anywhere.
func (s *CommandService) Send(ctx context.Context, req SendRequest) (*model.SignedCommand, error) {
	device, cmd, err := s.sign(ctx, req)
	if err != nil {
		s.countCommand(req.Action, "rejected")
		return nil, err
	}
	if err := s.transport.SendCommand(ctx, device.RelayURL, cmd); err != nil {
		s.countCommand(req.Action, "failure")
		s.log.Warn("command delivery failed", "device", device.DeviceName, "action", req.Action, "err", err)
		return nil, apperr.Wrap(apperr.CodeUnavailable, "Could not reach the relay", err)
	}
	s.countCommand(req.Action, "success")
	s.log.Info("command delivered", "device", device.DeviceName, "action", req.Action, "pubkey", device.Pubkey)
	return cmd, nil
}

// Preview runs the unlock and signing steps of Send without delivering anything.
func (s *CommandService) Preview(ctx context.Context, req SendRequest) (*model.SignedCommand, error) {
	_, cmd, err := s.sign(ctx, req)
	return cmd, err
}

func (s *CommandService) sign(ctx context.Context, req SendRequest) (*model.Device, *model.SignedCommand, error) {
	action, err := command.ParseAction(req.Action)
	if err != nil {
		return nil, nil, apperr.InvalidArg("Unknown action", err)
	}
	if err := ValidatePIN(req.PIN); err != nil {
		return nil, nil, apperr.InvalidArg("PIN must be 6 digits", err)
	}
	now := s.now()
	if !s.limiter.Allow(req.Pubkey, now) {
		if s.metrics != nil {
			s.metrics.UnlockThrottled.Inc()
		}
		return nil, nil, apperr.New(apperr.CodeResourceExhausted, "Too many attempts, try again later")
	}

	device, err := s.registry.Find(ctx, req.Pubkey)
	if err != nil {
		return nil, nil, mapRegistryError(err)
	}

	keyHex, err := s.vault.Decrypt(device.EncryptedPrivKey, req.PIN)
	if err != nil {
		return nil, nil, s.unlockFailed(device, err)
	}
	cmd, err := command.Sign(action, keyHex, now)
	if err != nil {
		if errors.Is(err, command.ErrClockFormat) {
			return nil, nil, apperr.Internal("Could not sign the command", err)
		}
		return nil, nil, s.unlockFailed(device, err)
	}
	if !strings.EqualFold(cmd.Pubkey, device.Pubkey) {
		return nil, nil, s.unlockFailed(device, errKeyMismatch)
	}
	return device, cmd, nil
}

// unlockFailed collapses every decrypt and key validation failure into one message.
func (s *CommandService) unlockFailed(device *model.Device, cause error) error {
	if s.metrics != nil {
		s.metrics.UnlockFailures.Inc()
	}
	s.log.Debug("unlock failed", "device", device.DeviceName, "reason", cause.Error())
	return apperr.Unauthorized(msgInvalidPIN, cause)
}

func (s *CommandService) countCommand(action, result string) {
	if s.metrics == nil {
		return
	}
	a, err := command.ParseAction(action)
	label := string(a)
	if err != nil {
		label = "unknown"
	}
	s.metrics.Commands.WithLabelValues(label, result).Inc()
}
