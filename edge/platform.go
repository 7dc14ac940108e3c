// Package edge provides the store APIs available to request handlers: named
// KV stores and named object stores, each backed by a storage.Store.
//
// Handles are cheap and are meant to be opened on every request. Writes made
// through one handle may not be visible right away to lookups made through
// another (or the same) handle, depending on the backend.
package edge

import (
	"fmt"
	"sort"

	"github.com/nicolagi/edgekv/storage"
)

const maxStoreNameLen = 255

type Option func(*Platform)

// WithKVStore links a backend to the platform as the KV store called name.
func WithKVStore(name string, backend storage.Store) Option {
	return func(p *Platform) {
		p.kvStores[name] = backend
	}
}

// WithObjectStore links a backend to the platform as the object store called
// name.
func WithObjectStore(name string, backend storage.Store) Option {
	return func(p *Platform) {
		p.objectStores[name] = backend
	}
}

// Platform holds the stores linked to a service. KV stores and object stores
// live in separate namespaces.
type Platform struct {
	kvStores     map[string]storage.Store
	objectStores map[string]storage.Store
}

func NewPlatform(opts ...Option) *Platform {
	p := &Platform{
		kvStores:     make(map[string]storage.Store),
		objectStores: make(map[string]storage.Store),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// OpenKVStore returns a handle to the KV store called name. It returns an
// error wrapping ErrStoreNotFound if there is no such store.
func (p *Platform) OpenKVStore(name string) (*KVStore, error) {
	backend, err := open(p.kvStores, name)
	if err != nil {
		return nil, err
	}
	return &KVStore{name: name, backend: backend}, nil
}

// OpenObjectStore returns a handle to the object store called name. It returns
// an error wrapping ErrStoreNotFound if there is no such store.
func (p *Platform) OpenObjectStore(name string) (*ObjectStore, error) {
	backend, err := open(p.objectStores, name)
	if err != nil {
		return nil, err
	}
	return &ObjectStore{name: name, backend: backend}, nil
}

// KVStoreNames returns the names of the linked KV stores, sorted.
func (p *Platform) KVStoreNames() []string {
	return sortedNames(p.kvStores)
}

// ObjectStoreNames returns the names of the linked object stores, sorted.
func (p *Platform) ObjectStoreNames() []string {
	return sortedNames(p.objectStores)
}

func open(stores map[string]storage.Store, name string) (storage.Store, error) {
	if name == "" || len(name) > maxStoreNameLen {
		return nil, fmt.Errorf("%.40q: %w", name, ErrInvalidStoreName)
	}
	backend, ok := stores[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrStoreNotFound)
	}
	return backend, nil
}

func sortedNames(stores map[string]storage.Store) []string {
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
