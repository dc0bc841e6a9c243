package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/storage"
	bolt "go.etcd.io/bbolt"
)

var _ storage.Store = (*Store)(nil)

var bucketDevices = []byte("devices")

// Store is a BoltDB-backed Store implementation. Devices are keyed by their
// position so Load returns them in saved order.
type Store struct {
	db *bolt.DB
}

// New initialises the Bolt store.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDevices)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes underlying Bolt DB.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns all devices.
func (s *Store) Load(ctx context.Context) ([]*model.Device, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	devices := []*model.Device{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketDevices)
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, v []byte) error {
			location := fmt.Sprintf("bolt record %x", k)
			var device model.Device
			if err := json.Unmarshal(v, &device); err != nil {
				return storage.Corrupt(location, err)
			}
			if err := storage.CheckRecord(location, &device); err != nil {
				return err
			}
			devices = append(devices, &device)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// Save replaces the bucket contents in a single transaction.
func (s *Store) Save(ctx context.Context, devices []*model.Device) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketDevices) != nil {
			if err := tx.DeleteBucket(bucketDevices); err != nil {
				return err
			}
		}
		bkt, err := tx.CreateBucket(bucketDevices)
		if err != nil {
			return err
		}
		for i, device := range devices {
			payload, err := json.Marshal(device)
			if err != nil {
				return err
			}
			if err := bkt.Put(positionKey(i), payload); err != nil {
				return err
			}
		}
		return nil
	})
}

func positionKey(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}
