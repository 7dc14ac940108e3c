// Package config loads the rjson configuration shared by the edgekv binaries
// and builds the stores it describes.
package config

import (
	"errors"
	"os"

	"github.com/rogpeppe/rjson"
)

var (
	// ErrUnknownStoreType is returned for a store whose type is not supported.
	ErrUnknownStoreType = errors.New("unknown store type")

	// ErrMissingProperty is returned when a store type requires a property that
	// was not set.
	ErrMissingProperty = errors.New("missing property")
)

const (
	DefaultAddress   = "127.0.0.1:7676"
	DefaultStoreName = "my-store"
)

type Config struct {
	Address        string `json:"address"`
	MetricsAddress string `json:"metrics_address"`
	Debug          bool   `json:"debug"`
	LogPath        string `json:"log_path"`

	KVStores     map[string]*StoreConfig `json:"kv_stores"`
	ObjectStores map[string]*StoreConfig `json:"object_stores"`

	// Store is the backend served by storeserver.
	Store *StoreConfig `json:"store"`
}

// StoreConfig describes the backend of one store.
type StoreConfig struct {
	Type string `json:"type"`

	// Properties for "disk", "bolt", "badger" and "sqlite" types.
	Path string `json:"path"`

	// Properties for "s3" and "dynamodb" types.
	Profile string `json:"profile"`
	Region  string `json:"region"`
	Bucket  string `json:"bucket"`
	Table   string `json:"table"`

	// Properties for "remote" type.
	Address string `json:"address"`

	// Properties for "paired" type.
	Fast *StoreConfig `json:"fast"`
	Slow *StoreConfig `json:"slow"`

	// How long writes take to become visible, e.g. "1s". Empty means
	// immediately.
	PropagationDelay string `json:"propagation_delay"`

	// Entries put in the store at startup.
	Entries map[string]string `json:"entries"`
}

func Load(pathname string) (*Config, error) {
	f, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	var c *Config
	if err := rjson.NewDecoder(f).Decode(&c); err != nil {
		return nil, err
	}
	if c == nil {
		c = new(Config)
	}
	c.applyDefaultsForMissingProperties()
	return c, nil
}

func (c *Config) applyDefaultsForMissingProperties() {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if len(c.KVStores) == 0 {
		c.KVStores = map[string]*StoreConfig{DefaultStoreName: {}}
	}
	if len(c.ObjectStores) == 0 {
		c.ObjectStores = map[string]*StoreConfig{DefaultStoreName: {}}
	}
	if c.Store == nil {
		c.Store = new(StoreConfig)
	}
	applyDefaultsToStores(c.KVStores)
	applyDefaultsToStores(c.ObjectStores)
	c.Store.applyDefaultsForMissingProperties()
}

// A store listed as null gets all the defaults, like one listed as {}.
func applyDefaultsToStores(stores map[string]*StoreConfig) {
	for name, sc := range stores {
		if sc == nil {
			sc = new(StoreConfig)
			stores[name] = sc
		}
		sc.applyDefaultsForMissingProperties()
	}
}

func (sc *StoreConfig) applyDefaultsForMissingProperties() {
	if sc == nil {
		return
	}
	if sc.Type == "" {
		sc.Type = "memory"
	}
	sc.Path = os.ExpandEnv(sc.Path)
	sc.Fast.applyDefaultsForMissingProperties()
	sc.Slow.applyDefaultsForMissingProperties()
}
