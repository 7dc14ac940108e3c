package service_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/nicolagi/edgekv/edge"
	"github.com/nicolagi/edgekv/handler"
	"github.com/nicolagi/edgekv/service"
	"github.com/nicolagi/edgekv/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDisposableServer(t *testing.T, opts ...service.Option) (srv *service.Server, address string, cleanup func()) {
	p := edge.NewPlatform(edge.WithKVStore(handler.DefaultStoreName, storage.NewInMemoryStore()))
	opts = append([]service.Option{
		service.WithAddress("localhost:0"),
		service.WithHandler(handler.New(handler.KVStores(p))),
	}, opts...)
	srv = service.New(opts...)
	address, err := srv.Listen()
	require.Nil(t, err)
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve()
	}()
	return srv, address, func() {
		assert.Nil(t, srv.Shutdown())
		assert.Nil(t, <-errc)
	}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.Nil(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	require.Nil(t, err)
	return resp, string(body)
}

func TestServer(t *testing.T) {
	t.Run("can be shutdown right after start", func(t *testing.T) {
		_, _, cleanup := newDisposableServer(t)
		cleanup()
	})
	t.Run("shutdown twice", func(t *testing.T) {
		srv, _, cleanup := newDisposableServer(t)
		cleanup()
		assert.Nil(t, srv.Shutdown())
	})
	t.Run("every path reaches the handler", func(t *testing.T) {
		_, address, cleanup := newDisposableServer(t)
		defer cleanup()

		resp, body := get(t, "http://"+address+"/readme")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Not Found", body)
		assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

		resp, body = get(t, "http://"+address+"/metrics")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "world", body)
	})
	t.Run("paths are not cleaned or redirected", func(t *testing.T) {
		_, address, cleanup := newDisposableServer(t)
		defer cleanup()
		client := &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		for _, path := range []string{"//readme", "/a/../readme", "/x//y"} {
			resp, err := client.Get("http://" + address + path)
			require.Nil(t, err, path)
			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			require.Nil(t, err, path)
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
			assert.Empty(t, resp.Header.Get("Location"), path)
			assert.Equal(t, "world", string(body), path)
		}
	})
	t.Run("request id is propagated", func(t *testing.T) {
		_, address, cleanup := newDisposableServer(t)
		defer cleanup()
		req, err := http.NewRequest(http.MethodGet, "http://"+address+"/", nil)
		require.Nil(t, err)
		req.Header.Set("X-Request-Id", "abc123")
		resp, err := http.DefaultClient.Do(req)
		require.Nil(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, "abc123", resp.Header.Get("X-Request-Id"))
	})
	t.Run("metrics on their own listener", func(t *testing.T) {
		srv, address, cleanup := newDisposableServer(t, service.WithMetricsAddress("localhost:0"))
		defer cleanup()
		get(t, "http://"+address+"/")
		require.NotEmpty(t, srv.MetricsAddr())
		resp, body := get(t, "http://"+srv.MetricsAddr()+"/metrics")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "edgekv_http_requests_total")
		assert.Contains(t, body, "edgekv_http_request_duration_seconds")
	})
	t.Run("no metrics listener by default", func(t *testing.T) {
		srv, _, cleanup := newDisposableServer(t)
		defer cleanup()
		assert.Empty(t, srv.MetricsAddr())
	})
}
