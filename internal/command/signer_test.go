package command

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/keyrelay/keyrelay/internal/crypto"
	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fixtureKey    = "0101010101010101010101010101010101010101010101010101010101010101"
	fixturePubkey = "041b84c5567b126440995d3ed5aaba0565d71e1834604819ff9c17f5e9d5dd078f70beaf8f588b541507fed6a642c5ab42dfdf8120a7f639de5122d47a69a8e8d1"
)

var fixtureTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func verify(t *testing.T, cmd *model.SignedCommand) bool {
	t.Helper()
	pubBytes, err := hex.DecodeString(cmd.Pubkey)
	require.NoError(t, err)
	pub, err := secp256k1.ParsePubKey(pubBytes)
	require.NoError(t, err)

	sigBytes, err := hex.DecodeString(cmd.Signature)
	require.NoError(t, err)
	require.Len(t, sigBytes, 64)
	var r, s secp256k1.ModNScalar
	require.False(t, r.SetByteSlice(sigBytes[:32]))
	require.False(t, s.SetByteSlice(sigBytes[32:]))

	hash := Hash(cmd.Command)
	return ecdsa.NewSignature(&r, &s).Verify(hash[:], pub)
}

func TestSignFixture(t *testing.T) {
	fixtures := map[Action]string{
		ActionShutdown: "658df745ef310dd2f6454f5556c68583e18a92e352cce5dbf9f708797019d644" +
			"1889a1600e4bf3de44030acf0e04693298c6cbe089468f2a969b1c165728898a",
		ActionSignOut: "010bcfa5b740aa611a85adb42f44ed361e4749e63ed0ddb8dc6f4feb04eeeeb8" +
			"250ff2e889acf9aefb31ce50b788ebf78145a9c8dbb2e3e524f720cdbf63283f",
	}
	for action, want := range fixtures {
		t.Run(string(action), func(t *testing.T) {
			cmd, err := Sign(action, fixtureKey, fixtureTime)
			require.NoError(t, err)
			assert.Equal(t, string(action)+"+20240101000000", cmd.Command)
			assert.Equal(t, fixturePubkey, cmd.Pubkey)
			assert.Equal(t, want, cmd.Signature)
			assert.True(t, verify(t, cmd))
		})
	}
}

func TestSignDeterministic(t *testing.T) {
	now := time.Date(2031, 7, 4, 12, 30, 45, 999, time.UTC)
	for _, action := range Actions() {
		a, err := Sign(action, fixtureKey, now)
		require.NoError(t, err)
		b, err := Sign(action, fixtureKey, now)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a.Signature, 128)
		assert.True(t, verify(t, a))
	}
}

func TestSignDiffersPerSecond(t *testing.T) {
	a, err := Sign(ActionSleep, fixtureKey, fixtureTime)
	require.NoError(t, err)
	b, err := Sign(ActionSleep, fixtureKey, fixtureTime.Add(time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, a.Signature, b.Signature)

	// Sub-second precision is dropped.
	c, err := Sign(ActionSleep, fixtureKey, fixtureTime.Add(400*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestSignUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	cmd, err := Sign(ActionRestart, fixtureKey, fixtureTime.In(loc))
	require.NoError(t, err)
	assert.Equal(t, "restart+20240101000000", cmd.Command)
}

func TestSignPublicKeyMatchesKeyPair(t *testing.T) {
	raw, err := crypto.HexToBytes(fixtureKey)
	require.NoError(t, err)
	pub, err := crypto.PublicKeyFromPrivate(raw)
	require.NoError(t, err)

	cmd, err := Sign(ActionShutdown, strings.ToUpper(fixtureKey), fixtureTime)
	require.NoError(t, err)
	assert.Equal(t, pub, cmd.Pubkey)
}

func TestSignErrors(t *testing.T) {
	_, err := Sign("reboot", fixtureKey, fixtureTime)
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = Sign(ActionShutdown, fixtureKey[:10], fixtureTime)
	assert.ErrorIs(t, err, crypto.ErrFormat)

	_, err = Sign(ActionShutdown, strings.Repeat("0", 64), fixtureTime)
	assert.ErrorIs(t, err, crypto.ErrInvalidScalar)

	_, err = Sign(ActionShutdown, fixtureKey, time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrClockFormat)
}
