package command

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/keyrelay/keyrelay/internal/crypto"
	"github.com/keyrelay/keyrelay/internal/model"
)

// Build joins action and timestamp as "<action>+<timestamp>".
func Build(action Action, timestamp string) string {
	return string(action) + "+" + timestamp
}

// Hash returns SHA-256 over the UTF-8 bytes of command.
func Hash(command string) [32]byte {
	return sha256.Sum256([]byte(command))
}

// Sign authorizes action at now with the private key in privateKeyHex.
//
// The signature is RFC6979 deterministic ECDSA over secp256k1 in compact R‖S
// form, so equal (action, timestamp, key) always produce equal output. The
// public key is re-derived from the private key rather than taken from storage.
func Sign(action Action, privateKeyHex string, now time.Time) (*model.SignedCommand, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	timestamp, err := FormatTimestamp(now)
	if err != nil {
		return nil, err
	}

	raw, err := crypto.HexToBytes(privateKeyHex)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ParsePrivateKey(raw)
	for i := range raw {
		raw[i] = 0
	}
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	cmd := Build(action, timestamp)
	hash := Hash(cmd)
	sig := ecdsa.Sign(key, hash[:])

	return &model.SignedCommand{
		Pubkey:    crypto.PublicKeyHex(key),
		Signature: compactHex(sig),
		Command:   cmd,
	}, nil
}

func compactHex(sig *ecdsa.Signature) string {
	r, s := sig.R(), sig.S()
	rb, sb := r.Bytes(), s.Bytes()
	return hex.EncodeToString(rb[:]) + hex.EncodeToString(sb[:])
}
