package crypto

import (
	"encoding/hex"
	"fmt"
	"regexp"
)

// PrivateKeySize is the length of a secp256k1 private scalar in bytes.
const PrivateKeySize = 32

var privateKeyHexPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// HexToBytes decodes a 64-character hex private key.
func HexToBytes(s string) ([]byte, error) {
	if !privateKeyHexPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: expected %d hex characters", ErrFormat, PrivateKeySize*2)
	}
	return hex.DecodeString(s)
}

// BytesToHex is the lower-case inverse of HexToBytes.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}
