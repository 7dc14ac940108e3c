package handler_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nicolagi/edgekv/edge"
	"github.com/nicolagi/edgekv/handler"
	"github.com/nicolagi/edgekv/storage"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore counts the writes reaching the backend.
type recordingStore struct {
	storage.Store
	puts int
}

func (s *recordingStore) Put(key, value []byte) error {
	s.puts++
	return s.Store.Put(key, value)
}

type failingStore struct {
	storage.Store
	failGet bool
	failPut bool
}

func (s *failingStore) Get(key []byte) ([]byte, error) {
	if s.failGet {
		return nil, errors.New("store unavailable")
	}
	return s.Store.Get(key)
}

func (s *failingStore) Put(key, value []byte) error {
	if s.failPut {
		return errors.New("store unavailable")
	}
	return s.Store.Put(key, value)
}

func serve(t *testing.T, h *handler.Handler, path string) (int, string) {
	t.Helper()
	resp, err := h.Handle(httptest.NewRequest(http.MethodGet, path, nil))
	require.Nil(t, err)
	body, err := io.ReadAll(resp.Body)
	require.Nil(t, err)
	return resp.Status, string(body)
}

func kvHandler(backend storage.Store, opts ...handler.Option) *handler.Handler {
	p := edge.NewPlatform(edge.WithKVStore(handler.DefaultStoreName, backend))
	return handler.New(handler.KVStores(p), opts...)
}

func TestReadme(t *testing.T) {
	t.Run("missing readme is 404", func(t *testing.T) {
		status, body := serve(t, kvHandler(storage.NewInMemoryStore()), "/readme")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Not Found", body)
	})
	t.Run("readme is streamed back", func(t *testing.T) {
		backend := storage.NewInMemoryStore()
		require.Nil(t, backend.Put([]byte("readme"), []byte("hi")))
		status, body := serve(t, kvHandler(backend), "/readme")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "hi", body)
	})
	t.Run("no write happens", func(t *testing.T) {
		backend := &recordingStore{Store: storage.NewInMemoryStore()}
		serve(t, kvHandler(backend), "/readme")
		assert.Equal(t, 0, backend.puts)
		_, err := backend.Get([]byte("hello"))
		assert.True(t, errors.Is(err, storage.ErrNotFound))
	})
	t.Run("lookup failure is fatal", func(t *testing.T) {
		h := kvHandler(&failingStore{Store: storage.NewInMemoryStore(), failGet: true})
		resp, err := h.Handle(httptest.NewRequest(http.MethodGet, "/readme", nil))
		assert.Nil(t, resp)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "store unavailable")
	})
}

func TestHello(t *testing.T) {
	t.Run("insert then lookup", func(t *testing.T) {
		backend := storage.NewInMemoryStore()
		for _, path := range []string{"/", "/hello", "/readme/", "/anything/else"} {
			status, body := serve(t, kvHandler(backend), path)
			assert.Equal(t, http.StatusOK, status, path)
			assert.Equal(t, "world", body, path)
		}
	})
	t.Run("overwrites a previous value", func(t *testing.T) {
		backend := storage.NewInMemoryStore()
		require.Nil(t, backend.Put([]byte("hello"), []byte("there")))
		_, body := serve(t, kvHandler(backend), "/")
		assert.Equal(t, "world", body)
	})
	t.Run("repeated upserts leave world", func(t *testing.T) {
		backend := &recordingStore{Store: storage.NewInMemoryStore()}
		h := kvHandler(backend)
		for i := 0; i < 3; i++ {
			serve(t, h, "/")
		}
		assert.Equal(t, 3, backend.puts)
		value, err := backend.Get([]byte("hello"))
		require.Nil(t, err)
		assert.Equal(t, []byte("world"), value)
	})
	t.Run("write not yet propagated is 404", func(t *testing.T) {
		now := time.Unix(1600000000, 0)
		backend := storage.NewDelayed(storage.NewInMemoryStore(), time.Second, storage.WithClock(func() time.Time { return now }))
		h := kvHandler(backend)
		status, body := serve(t, h, "/")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Not Found", body)

		now = now.Add(time.Second)
		status, body = serve(t, h, "/")
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "world", body)

		// Converged: a plain lookup sees the value.
		value, err := backend.Get([]byte("hello"))
		require.Nil(t, err)
		assert.Equal(t, []byte("world"), value)
	})
	t.Run("responses are either world or 404", func(t *testing.T) {
		backend := storage.NewDelayed(storage.NewInMemoryStore(), time.Millisecond)
		h := kvHandler(backend)
		for i := 0; i < 2; i++ {
			status, body := serve(t, h, "/hello")
			switch status {
			case http.StatusOK:
				assert.Equal(t, "world", body)
			case http.StatusNotFound:
				assert.Equal(t, "Not Found", body)
			default:
				t.Errorf("unexpected status %d", status)
			}
		}
		assert.Eventually(t, func() bool {
			value, err := backend.Get([]byte("hello"))
			return err == nil && string(value) == "world"
		}, time.Second, time.Millisecond)
	})
	t.Run("insert failure is fatal", func(t *testing.T) {
		h := kvHandler(&failingStore{Store: storage.NewInMemoryStore(), failPut: true})
		resp, err := h.Handle(httptest.NewRequest(http.MethodPut, "/", nil))
		assert.Nil(t, resp)
		assert.NotNil(t, err)
	})
}

func TestOpenFailures(t *testing.T) {
	t.Run("unknown store", func(t *testing.T) {
		h := kvHandler(storage.NewInMemoryStore(), handler.WithStoreName("missing"))
		resp, err := h.Handle(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Nil(t, resp)
		assert.True(t, errors.Is(err, edge.ErrStoreNotFound))
	})
	t.Run("invalid store name", func(t *testing.T) {
		h := kvHandler(storage.NewInMemoryStore(), handler.WithStoreName(""))
		_, err := h.Handle(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.True(t, errors.Is(err, edge.ErrInvalidStoreName))
	})
	t.Run("object store is not a kv store", func(t *testing.T) {
		p := edge.NewPlatform(edge.WithObjectStore(handler.DefaultStoreName, storage.NewInMemoryStore()))
		_, err := handler.New(handler.KVStores(p)).Handle(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.True(t, errors.Is(err, edge.ErrStoreNotFound))
	})
}

func TestObjectStores(t *testing.T) {
	backend := storage.NewInMemoryStore()
	require.Nil(t, backend.Put([]byte("readme"), []byte("hi")))
	p := edge.NewPlatform(edge.WithObjectStore("objects", backend))
	h := handler.New(handler.ObjectStores(p), handler.WithStoreName("objects"))
	status, body := serve(t, h, "/readme")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hi", body)
	status, body = serve(t, h, "/")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "world", body)
}

func TestServiceVersionLogging(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	t.Run("logged when set", func(t *testing.T) {
		hook.Reset()
		serve(t, kvHandler(storage.NewInMemoryStore(), handler.WithServiceVersion("42")), "/readme")
		var found bool
		for _, e := range hook.AllEntries() {
			if e.Message == "FASTLY_SERVICE_VERSION: 42" && e.Level == log.InfoLevel {
				found = true
			}
		}
		assert.True(t, found)
	})
	t.Run("silent when unset", func(t *testing.T) {
		hook.Reset()
		serve(t, kvHandler(storage.NewInMemoryStore()), "/readme")
		for _, e := range hook.AllEntries() {
			assert.NotContains(t, e.Message, "FASTLY_SERVICE_VERSION")
		}
	})
}

func TestServeHTTP(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		backend := storage.NewInMemoryStore()
		require.Nil(t, backend.Put([]byte("readme"), []byte("hi")))
		rec := httptest.NewRecorder()
		kvHandler(backend).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readme", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hi", rec.Body.String())
	})
	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		kvHandler(storage.NewInMemoryStore()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readme", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Not Found", rec.Body.String())
	})
	t.Run("fatal errors become 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h := kvHandler(storage.NewInMemoryStore(), handler.WithStoreName("missing"))
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
