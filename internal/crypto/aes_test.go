package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCBCRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	iv := bytes.Repeat([]byte{9}, 16)
	for _, size := range []int{0, 1, 15, 16, 17, 64} {
		plaintext := bytes.Repeat([]byte{'a'}, size)
		ciphertext, err := EncryptCBC(plaintext, key, iv)
		require.NoError(t, err)
		assert.Zero(t, len(ciphertext)%16)
		assert.Greater(t, len(ciphertext), size)

		got, err := DecryptCBC(ciphertext, key, iv)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptCBCDoesNotAliasInput(t *testing.T) {
	key := bytes.Repeat([]byte{1}, 32)
	iv := bytes.Repeat([]byte{2}, 16)
	buf := make([]byte, 5, 64)
	copy(buf, "hello")
	_, err := EncryptCBC(buf, key, iv)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 59), buf[5:64])
}

func TestCBCRejectsBadParameters(t *testing.T) {
	_, err := EncryptCBC([]byte("x"), []byte("short"), make([]byte, 16))
	assert.Error(t, err)
	_, err = EncryptCBC([]byte("x"), make([]byte, 32), make([]byte, 8))
	assert.Error(t, err)
	_, err = DecryptCBC(make([]byte, 15), make([]byte, 32), make([]byte, 16))
	assert.Error(t, err)
}

func TestPKCS7Unpad(t *testing.T) {
	valid := append(bytes.Repeat([]byte{'x'}, 12), 4, 4, 4, 4)
	out, err := pkcs7Unpad(valid, 16)
	require.NoError(t, err)
	assert.Len(t, out, 12)

	bad := [][]byte{
		append(bytes.Repeat([]byte{'x'}, 15), 0),
		append(bytes.Repeat([]byte{'x'}, 15), 17),
		append(bytes.Repeat([]byte{'x'}, 13), 2, 3, 3),
		{},
	}
	for _, b := range bad {
		_, err := pkcs7Unpad(b, 16)
		assert.ErrorIs(t, err, errBadPadding)
	}
}
