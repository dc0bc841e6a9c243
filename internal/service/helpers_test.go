package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/keyrelay/keyrelay/internal/crypto"
	"github.com/keyrelay/keyrelay/internal/metrics"
	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/registry"
	"github.com/keyrelay/keyrelay/internal/storage/file"
	"github.com/stretchr/testify/require"
)

const (
	fixtureKey    = "0101010101010101010101010101010101010101010101010101010101010101"
	fixturePubkey = "041b84c5567b126440995d3ed5aaba0565d71e1834604819ff9c17f5e9d5dd078f70beaf8f588b541507fed6a642c5ab42dfdf8120a7f639de5122d47a69a8e8d1"
	otherKey      = "0202020202020202020202020202020202020202020202020202020202020202"
	fixturePIN    = "123456"
)

type fixture struct {
	store    *file.Store
	registry *registry.Registry
	vault    *crypto.Vault
	metrics  *metrics.Metrics
	devices  *DeviceService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := file.New(filepath.Join(t.TempDir(), "devices.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := registry.New(store)
	vault := crypto.NewVault(crypto.DefaultIterations)
	m := metrics.New()
	return &fixture{
		store:    store,
		registry: reg,
		vault:    vault,
		metrics:  m,
		devices:  NewDeviceService(reg, vault, m, discardLogger()),
	}
}

func (f *fixture) register(t *testing.T, name, key string) *model.Device {
	t.Helper()
	device, err := f.devices.Register(context.Background(), RegisterRequest{
		Name:       name,
		RelayURL:   "https://relay.example.com",
		PrivateKey: key,
		PIN:        fixturePIN,
	})
	require.NoError(t, err)
	return device
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
