package edge

import (
	"github.com/nicolagi/edgekv/storage"
)

// ObjectStore is a handle to a named object store.
type ObjectStore struct {
	name    string
	backend storage.Store
}

func (s *ObjectStore) Name() string {
	return s.name
}

// Lookup returns the object stored at key, or nil if there is none.
func (s *ObjectStore) Lookup(key string) (*Entry, error) {
	return lookup(s.backend, s.name, key)
}

// LookupString is like Lookup, returning the object as a string. The boolean
// reports whether the object exists.
func (s *ObjectStore) LookupString(key string) (string, bool, error) {
	entry, err := s.Lookup(key)
	if err != nil || entry == nil {
		return "", false, err
	}
	return entry.String(), true, nil
}

// Insert adds or updates the object at key.
func (s *ObjectStore) Insert(key string, value []byte) error {
	return insert(s.backend, s.name, key, value)
}
