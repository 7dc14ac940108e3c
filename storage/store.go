package storage

import (
	"errors"
)

// Store represents a key-value store.
type Store interface {
	// Put creates or overwrites the value for key.
	Put(key, value []byte) (err error)

	// Get should return ErrNotFound if the key is not in the store.
	Get(key []byte) (value []byte, err error)

	// Delete removes the key. Deleting a key that is not in the store is not an
	// error.
	Delete(key []byte) (err error)
}

var (
	// ErrNotFound indicates a key is not in the store.
	ErrNotFound = errors.New("not found")
)

// dup copies b so that stores never retain caller-owned memory. A nil slice
// becomes an empty one.
func dup(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
