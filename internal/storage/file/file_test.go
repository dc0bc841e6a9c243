package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "state", "devices.json"))
	require.NoError(t, err)
	return s
}

func TestLoadMissingFile(t *testing.T) {
	s := newStore(t)
	devices, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestSaveWritesIndentedJSON(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	devices := []*model.Device{{
		Pubkey:           "04ab",
		DeviceName:       "desk",
		RelayURL:         "https://relay.example/",
		EncryptedPrivKey: "salt-iv-body",
	}}
	require.NoError(t, s.Save(ctx, devices))

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	want := `[
  {
    "pubkey": "04ab",
    "deviceName": "desk",
    "relayUrl": "https://relay.example/",
    "encryptedPrivKey": "salt-iv-body"
  }
]
`
	assert.Equal(t, want, string(raw))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, devices, loaded)
}

func TestSaveEmptyCollection(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save(context.Background(), nil))
	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestLoadCorrupt(t *testing.T) {
	s := newStore(t)
	cases := []string{
		"{",
		`{"pubkey":"x"}`,
		`[null]`,
		`[{"pubkey": 5}]`,
		`[{}]`,
		`[{"deviceName":"a","encryptedPrivKey":"blob"}]`,
		`[{"pubkey":"04aa","encryptedPrivKey":"blob"}]`,
		`[{"pubkey":"04aa","deviceName":"a"}]`,
	}
	for _, content := range cases {
		require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o600))
		_, err := s.Load(context.Background())
		assert.ErrorIs(t, err, storage.ErrCorrupt, content)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save(context.Background(), []*model.Device{{Pubkey: "04aa", DeviceName: "a", EncryptedPrivKey: "blob"}}))
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
}
