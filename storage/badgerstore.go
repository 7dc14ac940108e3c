package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v3"
	log "github.com/sirupsen/logrus"
)

// BadgerStore is an implementation of Store backed by a Badger database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (creating if needed) a Badger database in dir. An empty
// dir opens an in-memory database.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open badger database at %q: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Put(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dup(key), dup(value)); err != nil {
			return fmt.Errorf("could not put %.40q with %.40q: %w", key, value, err)
		}
		return nil
	})
}

func (s *BadgerStore) Get(key []byte) (value []byte, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%.40q: %w", key, ErrNotFound)
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *BadgerStore) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(dup(key))
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger implements badger.Logger, sending badger's logs to logrus.
type badgerLogger struct{}

func (badgerLogger) Errorf(msg string, args ...interface{}) {
	log.WithField("db", "badger").Errorf(strings.TrimSpace(msg), args...)
}

func (badgerLogger) Warningf(msg string, args ...interface{}) {
	log.WithField("db", "badger").Warnf(strings.TrimSpace(msg), args...)
}

func (badgerLogger) Infof(msg string, args ...interface{}) {
	log.WithField("db", "badger").Debugf(strings.TrimSpace(msg), args...)
}

func (badgerLogger) Debugf(msg string, args ...interface{}) {
	log.WithField("db", "badger").Debugf(strings.TrimSpace(msg), args...)
}
