package edge

import (
	"fmt"

	"github.com/nicolagi/edgekv/storage"
)

// KVStore is a handle to a named KV store.
type KVStore struct {
	name    string
	backend storage.Store
}

func (s *KVStore) Name() string {
	return s.name
}

// Lookup returns the entry for key, or nil if there is none.
func (s *KVStore) Lookup(key string) (*Entry, error) {
	return lookup(s.backend, s.name, key)
}

// Insert adds or updates the value for key.
func (s *KVStore) Insert(key string, value []byte) error {
	return insert(s.backend, s.name, key, value)
}

// Delete removes key. Deleting a missing key succeeds.
func (s *KVStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := s.backend.Delete([]byte(key)); err != nil {
		return fmt.Errorf("delete %q in %q: %w", key, s.name, err)
	}
	return nil
}
