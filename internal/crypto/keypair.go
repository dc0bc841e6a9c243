package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ParsePrivateKey converts 32 raw bytes into a secp256k1 private key,
// rejecting zero and values not below the group order.
func ParsePrivateKey(privateKey []byte) (*secp256k1.PrivateKey, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes", ErrFormat, PrivateKeySize)
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(privateKey); overflow {
		scalar.Zero()
		return nil, ErrInvalidScalar
	}
	if scalar.IsZero() {
		return nil, ErrInvalidScalar
	}
	return secp256k1.NewPrivateKey(&scalar), nil
}

// PublicKeyFromPrivate returns the uncompressed public key ("04" ‖ X ‖ Y) as 130 hex characters.
func PublicKeyFromPrivate(privateKey []byte) (string, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	defer key.Zero()
	return PublicKeyHex(key), nil
}

// PublicKeyHex encodes the public half of key in uncompressed form.
func PublicKeyHex(key *secp256k1.PrivateKey) string {
	return hex.EncodeToString(key.PubKey().SerializeUncompressed())
}
