package edge

import "errors"

var (
	// ErrStoreNotFound indicates no store with the requested name is linked to
	// the platform.
	ErrStoreNotFound = errors.New("store not found")

	// ErrInvalidStoreName indicates a store name that can never be opened.
	ErrInvalidStoreName = errors.New("invalid store name")

	// ErrInvalidKey indicates a key rejected before reaching the backend.
	ErrInvalidKey = errors.New("invalid key")
)
