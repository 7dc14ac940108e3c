package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/nicolagi/edgekv/edge"
	"github.com/nicolagi/edgekv/storage"
	log "github.com/sirupsen/logrus"
)

// Build opens the backends of all configured stores and links them to a new
// platform. The returned cleanup function closes databases; it must be
// called even if Build fails.
func (c *Config) Build() (platform *edge.Platform, cleanup func(), err error) {
	var closers []func() error
	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.WithField("err", err).Warn("Could not close store cleanly")
			}
		}
	}
	var opts []edge.Option
	for name, sc := range c.KVStores {
		store, closer, err := BuildStore(sc)
		if closer != nil {
			closers = append(closers, closer)
		}
		if err != nil {
			return nil, cleanup, fmt.Errorf("kv store %q: %w", name, err)
		}
		opts = append(opts, edge.WithKVStore(name, store))
		log.WithFields(log.Fields{"name": name, "type": sc.Type}).Info("Linked KV store")
	}
	for name, sc := range c.ObjectStores {
		store, closer, err := BuildStore(sc)
		if closer != nil {
			closers = append(closers, closer)
		}
		if err != nil {
			return nil, cleanup, fmt.Errorf("object store %q: %w", name, err)
		}
		opts = append(opts, edge.WithObjectStore(name, store))
		log.WithFields(log.Fields{"name": name, "type": sc.Type}).Info("Linked object store")
	}
	return edge.NewPlatform(opts...), cleanup, nil
}

// BuildStore opens the backend described by sc, wraps it for the configured
// propagation delay, and seeds it with the configured entries. The closer, if
// not nil, releases the backend.
func BuildStore(sc *StoreConfig) (store storage.Store, closer func() error, err error) {
	if sc == nil {
		sc = &StoreConfig{}
		sc.applyDefaultsForMissingProperties()
	}
	store, closer, err = buildBackend(sc)
	if err != nil {
		return nil, closer, err
	}
	// Seeded entries are visible from the start, so they skip the delay.
	for key, value := range sc.Entries {
		if err := store.Put([]byte(key), []byte(value)); err != nil {
			return nil, closer, fmt.Errorf("could not seed %q: %w", key, err)
		}
	}
	if sc.PropagationDelay != "" {
		delay, err := time.ParseDuration(sc.PropagationDelay)
		if err != nil {
			return nil, closer, fmt.Errorf("propagation_delay: %w", err)
		}
		store = storage.NewDelayed(store, delay)
	}
	return store, closer, nil
}

func buildBackend(sc *StoreConfig) (storage.Store, func() error, error) {
	switch sc.Type {
	case "memory":
		return storage.NewInMemoryStore(), nil, nil
	case "disk":
		if err := requireProperty("path", sc.Path); err != nil {
			return nil, nil, err
		}
		return storage.NewDiskStore(sc.Path), nil, nil
	case "bolt":
		if err := requireProperty("path", sc.Path); err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(sc.Path), 0700); err != nil {
			return nil, nil, fmt.Errorf("could not ensure directory for %q exists: %w", sc.Path, err)
		}
		db, err := bolt.Open(sc.Path, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, nil, fmt.Errorf("could not open database %q: %w", sc.Path, err)
		}
		store, err := storage.NewBoltStore(db)
		return store, db.Close, err
	case "badger":
		store, err := storage.NewBadgerStore(sc.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "sqlite":
		if err := requireProperty("path", sc.Path); err != nil {
			return nil, nil, err
		}
		store, err := storage.NewSQLiteStore(sc.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "s3":
		if err := requireProperty("bucket", sc.Bucket); err != nil {
			return nil, nil, err
		}
		return storage.NewS3(sc.Profile, sc.Region, sc.Bucket), nil, nil
	case "dynamodb":
		if err := requireProperty("table", sc.Table); err != nil {
			return nil, nil, err
		}
		store, err := storage.NewDynamoDBStore(sc.Profile, sc.Region, sc.Table)
		return store, nil, err
	case "remote":
		if err := requireProperty("address", sc.Address); err != nil {
			return nil, nil, err
		}
		return storage.NewRemoteStore(sc.Address), nil, nil
	case "paired":
		if sc.Fast == nil {
			return nil, nil, fmt.Errorf("fast: %w", ErrMissingProperty)
		}
		if sc.Slow == nil {
			return nil, nil, fmt.Errorf("slow: %w", ErrMissingProperty)
		}
		fast, fastCloser, err := buildBackend(sc.Fast)
		if err != nil {
			return nil, fastCloser, fmt.Errorf("fast: %w", err)
		}
		slow, slowCloser, err := buildBackend(sc.Slow)
		closer := joinClosers(fastCloser, slowCloser)
		if err != nil {
			return nil, closer, fmt.Errorf("slow: %w", err)
		}
		return storage.NewPaired(fast, slow), closer, nil
	default:
		return nil, nil, fmt.Errorf("%q: %w", sc.Type, ErrUnknownStoreType)
	}
}

func requireProperty(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s: %w", name, ErrMissingProperty)
	}
	return nil
}

func joinClosers(closers ...func() error) func() error {
	var nonNil []func() error
	for _, c := range closers {
		if c != nil {
			nonNil = append(nonNil, c)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	return func() error {
		var first error
		for _, c := range nonNil {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}
