package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keyrelay/keyrelay/internal/apperr"
	"github.com/keyrelay/keyrelay/internal/storage/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "0101010101010101010101010101010101010101010101010101010101010101"
	testPubkey = "041b84c5567b126440995d3ed5aaba0565d71e1834604819ff9c17f5e9d5dd078f70beaf8f588b541507fed6a642c5ab42dfdf8120a7f639de5122d47a69a8e8d1"
)

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cliApp := newCLI()
	cliApp.Writer = &out
	cliApp.ErrWriter = &out
	argv := append([]string{"keyrelay", "--config", filepath.Join(dir, "absent.yaml")}, args...)
	err := cliApp.Run(argv)
	return out.String(), err
}

func TestDeviceCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYRELAY_STORAGE_PATH", filepath.Join(dir, "devices.json"))
	t.Setenv("KEYRELAY_LOG_LEVEL", "error")

	out, err := run(t, dir, "device", "add", "--name", "kitchen", "--relay", "https://relay.example.com", "--key", testKey, "--pin", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, testPubkey)

	out, err = run(t, dir, "device", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "kitchen")
	assert.Contains(t, out, "https://relay.example.com")

	out, err = run(t, dir, "device", "edit", "--name", "pantry", testPubkey)
	require.NoError(t, err)
	assert.Contains(t, out, "updated pantry")

	_, err = run(t, dir, "device", "rm", testPubkey)
	require.NoError(t, err)

	_, err = run(t, dir, "device", "rm", testPubkey)
	require.Error(t, err)
	assert.Equal(t, "Device not found", userMessage(err))
}

func TestSendDryRunUsesPINFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KEYRELAY_STORAGE_PATH", filepath.Join(dir, "devices.json"))
	t.Setenv("KEYRELAY_LOG_LEVEL", "error")

	_, err := run(t, dir, "device", "add", "--name", "kitchen", "--relay", "https://relay.example.com", "--key", testKey, "--pin", "123456")
	require.NoError(t, err)

	t.Setenv("KEYRELAY_PIN", "123456")
	out, err := run(t, dir, "send", "--action", "sleep", "--dry-run", testPubkey)
	require.NoError(t, err)
	assert.Contains(t, out, "command:   sleep+")
	for _, line := range strings.Split(out, "\n") {
		if sig, ok := strings.CutPrefix(line, "signature: "); ok {
			assert.Len(t, sig, 128)
		}
	}

	t.Setenv("KEYRELAY_PIN", "654321")
	_, err = run(t, dir, "send", "--action", "sleep", "--dry-run", testPubkey)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
	assert.Equal(t, "Invalid PIN", userMessage(err))
}

func TestHelpDoesNotOpenStore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "devices.db")
	t.Setenv("KEYRELAY_STORAGE_DRIVER", "bolt")
	t.Setenv("KEYRELAY_STORAGE_PATH", dbPath)

	// a running server holds the bolt file lock
	held, err := bolt.New(dbPath)
	require.NoError(t, err)
	defer held.Close()

	out, err := run(t, dir, "device", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "add")

	out, err = run(t, dir, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "serve")

	_, err = run(t, dir, "device", "ls")
	assert.Error(t, err)
}
