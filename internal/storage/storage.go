package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/keyrelay/keyrelay/internal/model"
)

// ErrCorrupt reports persisted content that cannot be parsed. Stores never
// drop or repair records on their own.
var ErrCorrupt = errors.New("device store is corrupt")

// Store persists the whole device collection at once.
type Store interface {
	// Load returns every stored device in saved order, or an empty slice when nothing was saved yet.
	Load(ctx context.Context) ([]*model.Device, error)
	// Save replaces the stored collection with devices.
	Save(ctx context.Context, devices []*model.Device) error
	Close() error
}

// CheckRecord rejects a decoded record missing a field every device has.
func CheckRecord(location string, d *model.Device) error {
	switch {
	case d == nil:
		return Corrupt(location, errors.New("null device"))
	case d.Pubkey == "":
		return Corrupt(location, errors.New("missing pubkey"))
	case d.DeviceName == "":
		return Corrupt(location, errors.New("missing deviceName"))
	case d.EncryptedPrivKey == "":
		return Corrupt(location, errors.New("missing encryptedPrivKey"))
	}
	return nil
}

// Corrupt wraps cause with ErrCorrupt.
func Corrupt(location string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, location, cause)
}
