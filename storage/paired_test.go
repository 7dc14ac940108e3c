package storage_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nicolagi/edgekv/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaired(t *testing.T) {
	t.Run("puts eventually reach the slow store", func(t *testing.T) {
		slow := storage.NewInMemoryStore()
		paired := storage.NewPaired(storage.NewInMemoryStore(), slow)
		require.Nil(t, paired.Put([]byte("hello"), []byte("world")))
		assert.Eventually(t, func() bool {
			value, err := slow.Get([]byte("hello"))
			return err == nil && string(value) == "world"
		}, 5*time.Second, 10*time.Millisecond)
	})
	t.Run("gets fall back to the slow store and warm the fast one", func(t *testing.T) {
		fast := storage.NewInMemoryStore()
		slow := storage.NewInMemoryStore()
		require.Nil(t, slow.Put([]byte("readme"), []byte("hi")))
		paired := storage.NewPaired(fast, slow)
		value, err := paired.Get([]byte("readme"))
		require.Nil(t, err)
		assert.Equal(t, []byte("hi"), value)
		value, err = fast.Get([]byte("readme"))
		require.Nil(t, err)
		assert.Equal(t, []byte("hi"), value)
	})
	t.Run("deletes are not undone by the slow store", func(t *testing.T) {
		slow := storage.NewInMemoryStore()
		require.Nil(t, slow.Put([]byte("k"), []byte("v")))
		paired := storage.NewPaired(storage.NewInMemoryStore(), slow)
		require.Nil(t, paired.Delete([]byte("k")))
		_, err := paired.Get([]byte("k"))
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		assert.Eventually(t, func() bool {
			_, err := slow.Get([]byte("k"))
			return errors.Is(err, storage.ErrNotFound)
		}, 5*time.Second, 10*time.Millisecond)
	})
	t.Run("write-back retries until the slow store accepts", func(t *testing.T) {
		slow := &flakyStore{Store: storage.NewInMemoryStore(), failures: 2}
		paired := storage.NewPaired(storage.NewInMemoryStore(), slow)
		require.Nil(t, paired.Put([]byte("hello"), []byte("world")))
		assert.Eventually(t, func() bool {
			value, err := slow.Store.Get([]byte("hello"))
			return err == nil && string(value) == "world"
		}, 10*time.Second, 10*time.Millisecond)
	})
	t.Run("writes fail fast once the write-back queue is full", func(t *testing.T) {
		fast := storage.NewInMemoryStore()
		paired := storage.NewPaired(fast, brokenStore{})
		errc := make(chan error, 1)
		go func() {
			for i := 0; i < 100; i++ {
				if err := paired.Put([]byte(fmt.Sprintf("k%d", i)), []byte("v")); err != nil {
					errc <- err
					return
				}
			}
			errc <- nil
		}()
		select {
		case err := <-errc:
			assert.True(t, errors.Is(err, storage.ErrWritebackFull))
		case <-time.After(5 * time.Second):
			t.Fatal("put blocked on a full write-back queue")
		}
		// A rejected write leaves the fast store untouched.
		err := paired.Delete([]byte("k0"))
		assert.True(t, errors.Is(err, storage.ErrWritebackFull))
		value, err := paired.Get([]byte("k0"))
		require.Nil(t, err)
		assert.Equal(t, []byte("v"), value)
	})
}

// flakyStore fails the first few puts.
type flakyStore struct {
	storage.Store
	failures int
}

func (s *flakyStore) Put(key, value []byte) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("unavailable")
	}
	return s.Store.Put(key, value)
}
