package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/storage"
)

var (
	ErrNotFound        = errors.New("device not found")
	ErrDuplicateName   = errors.New("a device with this name already exists")
	ErrDuplicatePubkey = errors.New("a device with this public key already exists")
	ErrInvalidDevice   = errors.New("invalid device")
)

// Registry enforces unique names and public keys over a storage.Store.
//
// Every mutation reads the whole collection, changes it in memory and writes
// it back. There is no locking: two processes mutating the same store race
// and the last writer wins.
type Registry struct {
	store storage.Store
}

// New builds a Registry backed by store.
func New(store storage.Store) *Registry {
	return &Registry{store: store}
}

// List returns every device in stored order.
func (r *Registry) List(ctx context.Context) ([]*model.Device, error) {
	return r.store.Load(ctx)
}

// Find returns the device with pubkey.
func (r *Registry) Find(ctx context.Context, pubkey string) (*model.Device, error) {
	devices, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(devices, pubkey); i >= 0 {
		return devices[i], nil
	}
	return nil, ErrNotFound
}

// Add appends device. Nothing is written when a duplicate is found.
func (r *Registry) Add(ctx context.Context, device *model.Device) error {
	if device == nil || strings.TrimSpace(device.DeviceName) == "" || device.Pubkey == "" {
		return ErrInvalidDevice
	}
	devices, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if d.DeviceName == device.DeviceName {
			return ErrDuplicateName
		}
		if strings.EqualFold(d.Pubkey, device.Pubkey) {
			return ErrDuplicatePubkey
		}
	}
	return r.store.Save(ctx, append(devices, device.Clone()))
}

// Update replaces the fields set in upd on the device with pubkey and returns the new record.
func (r *Registry) Update(ctx context.Context, pubkey string, upd model.DeviceUpdate) (*model.Device, error) {
	devices, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(devices, pubkey)
	if i < 0 {
		return nil, ErrNotFound
	}
	next := devices[i].Clone()
	if upd.DeviceName != nil {
		if strings.TrimSpace(*upd.DeviceName) == "" {
			return nil, ErrInvalidDevice
		}
		for j, d := range devices {
			if j != i && d.DeviceName == *upd.DeviceName {
				return nil, ErrDuplicateName
			}
		}
		next.DeviceName = *upd.DeviceName
	}
	if upd.RelayURL != nil {
		next.RelayURL = *upd.RelayURL
	}
	devices[i] = next
	if err := r.store.Save(ctx, devices); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// Remove deletes the device with pubkey, or returns ErrNotFound.
func (r *Registry) Remove(ctx context.Context, pubkey string) error {
	devices, err := r.store.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(devices, pubkey)
	if i < 0 {
		return ErrNotFound
	}
	return r.store.Save(ctx, append(devices[:i], devices[i+1:]...))
}

func indexOf(devices []*model.Device, pubkey string) int {
	for i, d := range devices {
		if strings.EqualFold(d.Pubkey, pubkey) {
			return i
		}
	}
	return -1
}
