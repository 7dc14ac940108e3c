package storage

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore implements Store with one file per key under a directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

func (s *DiskStore) Put(key, value []byte) (err error) {
	valpath := s.pathFor(key)
	err = s.writeFile(valpath, value)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("could not write %q: %w", valpath, err)
	}
	if err = os.MkdirAll(filepath.Dir(valpath), 0700); err != nil {
		return fmt.Errorf("could not make dir for %q: %w", valpath, err)
	}
	return s.writeFile(valpath, value)
}

// writeFile goes through a temporary file and a rename, so that concurrent
// readers see either the old or the new value, never a partial one.
func (s *DiskStore) writeFile(valpath string, value []byte) error {
	f, err := os.CreateTemp(filepath.Dir(valpath), ".tmp-")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(value); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, valpath); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *DiskStore) Get(key []byte) (value []byte, err error) {
	value, err = os.ReadFile(s.pathFor(key))
	if os.IsNotExist(err) {
		err = fmt.Errorf("%x: %w", key, ErrNotFound)
	}
	return
}

func (s *DiskStore) Delete(key []byte) (err error) {
	err = os.Remove(s.pathFor(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *DiskStore) pathFor(key []byte) string {
	// Hex names never contain an underscore.
	if len(key) == 0 {
		return filepath.Join(s.dir, "__", "empty")
	}
	// Prevent ENAMETOOLONG, while retaining low probability of clashes.
	if len(key) > sha512.Size {
		hash := sha512.Sum512(key)
		key = hash[:]
	}
	name := hex.EncodeToString(key)
	return filepath.Join(s.dir, name[:2], name)
}
