package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "./data/devices.json", cfg.Storage.Path)
	assert.Equal(t, 1000, cfg.Vault.PBKDF2Iterations)
	assert.Equal(t, 10*time.Second, cfg.Relay.RequestTimeout)
	assert.Equal(t, 60*time.Second, cfg.Status.OnlineWindow)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.Status.PollInterval)
	assert.Equal(t, ":8090", cfg.HTTP.Addr)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  driver: bolt
  path: /var/lib/keyrelay/devices.db
status:
  poll_interval: 30s
vault:
  pbkdf2_iterations: 5000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("KEYRELAY_RELAY_REQUEST_TIMEOUT", "3s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverBolt, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/keyrelay/devices.db", cfg.Storage.Path)
	assert.Equal(t, 30*time.Second, cfg.Status.PollInterval)
	assert.Equal(t, 5000, cfg.Vault.PBKDF2Iterations)
	assert.Equal(t, 3*time.Second, cfg.Relay.RequestTimeout)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: sqlite\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("storage: [\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
