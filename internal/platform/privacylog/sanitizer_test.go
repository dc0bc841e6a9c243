package privacylog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")

	logger.Info("unlock",
		"pin", "123456",
		"private_key", "0101",
		"encryptedPrivKey", "blob",
		"pubkey", "04ABCD",
		"device", "desk",
	)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, redactedValue, rec["pin"])
	assert.Equal(t, redactedValue, rec["private_key"])
	assert.Equal(t, redactedValue, rec["encryptedPrivKey"])
	assert.Equal(t, "desk", rec["device"])
	assert.NotContains(t, rec, "pubkey")
	assert.Equal(t, Fingerprint("04abcd"), rec["pubkey_fp"])
	assert.NotContains(t, buf.String(), "123456")
}

func TestWithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "text").With("jwt_secret", "s3cr3t")
	logger.Info("grouped", slog.Group("req", slog.String("pin", "000000"), slog.String("action", "sleep")))

	out := buf.String()
	assert.False(t, strings.Contains(out, "s3cr3t"))
	assert.False(t, strings.Contains(out, "000000"))
	assert.Contains(t, out, "req.action=sleep")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "text")
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFingerprintStable(t *testing.T) {
	assert.Equal(t, Fingerprint("04aa"), Fingerprint(" 04AA "))
	assert.NotEqual(t, Fingerprint("04aa"), Fingerprint("04bb"))
	assert.Empty(t, Fingerprint(""))
}
