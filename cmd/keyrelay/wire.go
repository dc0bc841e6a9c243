package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/keyrelay/keyrelay/internal/config"
	"github.com/keyrelay/keyrelay/internal/crypto"
	"github.com/keyrelay/keyrelay/internal/metrics"
	"github.com/keyrelay/keyrelay/internal/platform/privacylog"
	"github.com/keyrelay/keyrelay/internal/platform/ratelimiter"
	"github.com/keyrelay/keyrelay/internal/registry"
	"github.com/keyrelay/keyrelay/internal/relayclient"
	"github.com/keyrelay/keyrelay/internal/service"
	"github.com/keyrelay/keyrelay/internal/storage"
	"github.com/keyrelay/keyrelay/internal/storage/bolt"
	"github.com/keyrelay/keyrelay/internal/storage/file"
)

// app holds everything one invocation needs.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    storage.Store
	metrics  *metrics.Metrics
	devices  *service.DeviceService
	commands *service.CommandService
	status   *service.StatusService
	auth     *service.AuthService
}

func newApp(cfg *config.Config) (*app, error) {
	log := privacylog.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	store, err := openStore(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	reg := registry.New(store)
	vault := crypto.NewVault(cfg.Vault.PBKDF2Iterations)
	relay := relayclient.New(cfg.Relay.RequestTimeout)
	limiter := ratelimiter.New(cfg.Security.UnlockRPS, cfg.Security.UnlockBurst, 30*time.Minute)

	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		metrics:  m,
		devices:  service.NewDeviceService(reg, vault, m, log),
		commands: service.NewCommandService(reg, vault, relay, limiter, m, log),
		status:   service.NewStatusService(reg, relay, cfg.Status.OnlineWindow, cfg.Status.PollInterval, m, log),
		auth:     service.NewAuthService(cfg),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func openStore(driver, path string) (storage.Store, error) {
	switch driver {
	case config.DriverFile:
		return file.New(path)
	case config.DriverBolt:
		return bolt.New(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
