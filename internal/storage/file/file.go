package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps devices in a single pretty-printed JSON file.
type Store struct {
	path string
}

// New returns a file store rooted at path. The file is created on first Save.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return &Store{path: path}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the whole collection.
func (s *Store) Load(ctx context.Context) ([]*model.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*model.Device{}, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []*model.Device{}, nil
	}
	var devices []*model.Device
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, storage.Corrupt(s.path, err)
	}
	for i, d := range devices {
		if err := storage.CheckRecord(fmt.Sprintf("%s[%d]", s.path, i), d); err != nil {
			return nil, err
		}
	}
	return devices, nil
}

// Save writes the collection to a temp file and renames it over the old one.
func (s *Store) Save(ctx context.Context, devices []*model.Device) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if devices == nil {
		devices = []*model.Device{}
	}
	payload, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return err
	}
	payload = append(payload, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Close is a no-op; the file is only open during Load and Save.
func (s *Store) Close() error {
	return nil
}
