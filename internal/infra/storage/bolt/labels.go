// Package bolt persists user-assigned address labels in an embedded bbolt
// database: a single bucket mapping lowercased address to label text. Reads
// happen once at startup; writes are synchronous so a label survives even an
// unclean exit.
package bolt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

const labelsBucket = "labels"

// LabelStore is the persisted address→label table.
type LabelStore struct {
	db *bolt.DB
}

// Open creates or opens the label database at path, creating parent
// directories as needed.
func Open(path string) (*LabelStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("label store dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open label store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(labelsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init label store: %w", err)
	}

	return &LabelStore{db: db}, nil
}

// ReadAll returns every stored label keyed by lowercased address.
func (s *LabelStore) ReadAll() (map[string]string, error) {
	labels := make(map[string]string)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(labelsBucket)).ForEach(func(k, v []byte) error {
			labels[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return labels, nil
}

// Put stores or replaces the label for an address.
func (s *LabelStore) Put(address, label string) error {
	key := strings.ToLower(address)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(labelsBucket)).Put([]byte(key), []byte(label))
	})
}

// Delete removes the label for an address. Deleting an absent key is a no-op.
func (s *LabelStore) Delete(address string) error {
	key := strings.ToLower(address)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(labelsBucket)).Delete([]byte(key))
	})
}

// Close releases the database file.
func (s *LabelStore) Close() error {
	return s.db.Close()
}
