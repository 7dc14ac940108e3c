package edge

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/nicolagi/edgekv/storage"
)

// Entry is the value found for a key.
type Entry struct {
	value []byte
}

// Body returns a reader over the value, for streaming it to a client.
func (e *Entry) Body() io.Reader {
	return bytes.NewReader(e.value)
}

func (e *Entry) Bytes() []byte {
	return e.value
}

func (e *Entry) String() string {
	return string(e.value)
}

func (e *Entry) Len() int {
	return len(e.value)
}

const maxKeyLen = 1024

// validateKey rejects keys the platform would never accept.
func validateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("empty key: %w", ErrInvalidKey)
	case len(key) > maxKeyLen:
		return fmt.Errorf("%.40q...: longer than %d bytes: %w", key, maxKeyLen, ErrInvalidKey)
	case !utf8.ValidString(key):
		return fmt.Errorf("%q: not valid UTF-8: %w", key, ErrInvalidKey)
	case key == "." || key == "..":
		return fmt.Errorf("%q: %w", key, ErrInvalidKey)
	case strings.HasPrefix(key, ".well-known/acme-challenge/"):
		return fmt.Errorf("%q: reserved prefix: %w", key, ErrInvalidKey)
	case strings.ContainsAny(key, "\r\n#;?^|"):
		return fmt.Errorf("%q: contains a forbidden character: %w", key, ErrInvalidKey)
	}
	return nil
}

// lookup maps storage.ErrNotFound to a nil entry.
func lookup(backend storage.Store, store, key string) (*Entry, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	value, err := backend.Get([]byte(key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %q in %q: %w", key, store, err)
	}
	return &Entry{value: value}, nil
}

func insert(backend storage.Store, store, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := backend.Put([]byte(key), value); err != nil {
		return fmt.Errorf("insert %q in %q: %w", key, store, err)
	}
	return nil
}
