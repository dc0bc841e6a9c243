package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor existing blobs were written with.
	DefaultIterations = 1000

	saltSize  = 16
	ivSize    = 16
	keySize   = 32
	pinLength = 6

	headerLen = (saltSize + ivSize) * 2
)

// Vault seals private keys under a numeric PIN.
//
// Blob layout: hex(salt) ‖ hex(iv) ‖ base64(AES-256-CBC(PKCS7(keyHex))).
// The key is PBKDF2-HMAC-SHA256(pad6(pin), salt, iterations, 32).
type Vault struct {
	iterations int
	rand       io.Reader
}

// NewVault returns a Vault using iterations PBKDF2 rounds, or DefaultIterations when iterations <= 0.
func NewVault(iterations int) *Vault {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Vault{iterations: iterations, rand: rand.Reader}
}

// Iterations reports the configured PBKDF2 work factor.
func (v *Vault) Iterations() int {
	return v.iterations
}

// Encrypt seals privateKeyHex under pin with a fresh salt and IV.
func (v *Vault) Encrypt(privateKeyHex, pin string) (string, error) {
	random := make([]byte, saltSize+ivSize)
	if _, err := io.ReadFull(v.rand, random); err != nil {
		return "", fmt.Errorf("read random salt/iv: %w", err)
	}
	salt, iv := random[:saltSize], random[saltSize:]

	key := v.deriveKey(pin, salt)
	defer zeroBytes(key)

	plaintext := []byte(privateKeyHex)
	defer zeroBytes(plaintext)
	ciphertext, err := EncryptCBC(plaintext, key, iv)
	if err != nil {
		return "", fmt.Errorf("encrypt private key: %w", err)
	}

	var b strings.Builder
	b.Grow(headerLen + base64.StdEncoding.EncodedLen(len(ciphertext)))
	b.WriteString(hex.EncodeToString(salt))
	b.WriteString(hex.EncodeToString(iv))
	b.WriteString(base64.StdEncoding.EncodeToString(ciphertext))
	return b.String(), nil
}

// Decrypt opens a blob produced by Encrypt. Every failure wraps ErrDecrypt.
//
// A wrong PIN usually fails the padding check but can occasionally produce
// valid padding over garbage, so callers must still validate the result.
func (v *Vault) Decrypt(blob, pin string) (string, error) {
	if len(blob) <= headerLen {
		return "", fmt.Errorf("%w: blob too short", ErrDecrypt)
	}
	salt, err := hex.DecodeString(blob[:saltSize*2])
	if err != nil {
		return "", fmt.Errorf("%w: malformed salt", ErrDecrypt)
	}
	iv, err := hex.DecodeString(blob[saltSize*2 : headerLen])
	if err != nil {
		return "", fmt.Errorf("%w: malformed iv", ErrDecrypt)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(blob[headerLen:])
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", ErrDecrypt)
	}

	key := v.deriveKey(pin, salt)
	defer zeroBytes(key)

	plaintext, err := DecryptCBC(ciphertext, key, iv)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	defer zeroBytes(plaintext)
	return string(plaintext), nil
}

func (v *Vault) deriveKey(pin string, salt []byte) []byte {
	return pbkdf2.Key([]byte(PadPIN(pin)), salt, v.iterations, keySize, sha256.New)
}

// PadPIN left-pads pin with zeros to six characters. Longer input is returned unchanged.
func PadPIN(pin string) string {
	if len(pin) >= pinLength {
		return pin
	}
	return strings.Repeat("0", pinLength-len(pin)) + pin
}
