package crypto

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexToBytes(t *testing.T) {
	b, err := HexToBytes(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{1}, 32), b)
	assert.Equal(t, testKeyHex, BytesToHex(b))

	upper := strings.ToUpper("abcdef" + testKeyHex[6:])
	b, err = HexToBytes(upper)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(upper), BytesToHex(b))
}

func TestHexToBytesRejects(t *testing.T) {
	for _, s := range []string{
		"",
		testKeyHex[:62],
		testKeyHex + "00",
		"g" + testKeyHex[1:],
		" " + testKeyHex[1:],
	} {
		_, err := HexToBytes(s)
		assert.ErrorIs(t, err, ErrFormat, "input %q", s)
	}
}

func TestParseScannedKey(t *testing.T) {
	got, err := ParseScannedKey("  " + strings.ToUpper(testKeyHex) + "\n")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	for _, raw := range []string{"", "hello", "bitcoin:" + testKeyHex, testKeyHex[:63]} {
		_, err := ParseScannedKey(raw)
		assert.ErrorIs(t, err, ErrFormat)
	}
}
