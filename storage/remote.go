package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RemoteStore implements Store. It requires to connect to a store server, see
// NewRemoteHandler.
type RemoteStore struct {
	address string
	client  *http.Client
}

// NewRemoteStore returns a client for the store server at address, which is
// either host:port or a base URL.
func NewRemoteStore(address string) *RemoteStore {
	return &RemoteStore{address: address, client: http.DefaultClient}
}

func (r *RemoteStore) Put(key, value []byte) (err error) {
	_, err = r.do(http.MethodPut, key, bytes.NewReader(dup(value)))
	return err
}

func (r *RemoteStore) Get(key []byte) (value []byte, err error) {
	value, err = r.do(http.MethodGet, key, nil)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (r *RemoteStore) Delete(key []byte) (err error) {
	_, err = r.do(http.MethodDelete, key, nil)
	return err
}

func (r *RemoteStore) do(method string, key []byte, body io.Reader) ([]byte, error) {
	request, err := http.NewRequest(method, r.pathFor(key), body)
	if err != nil {
		return nil, err
	}
	response, err := r.client.Do(request)
	if response != nil && response.Body != nil {
		defer func() {
			_ = response.Body.Close()
		}()
	}
	if err != nil {
		return nil, err
	}
	if response.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%.40x: %w", key, ErrNotFound)
	}
	b, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		return nil, errors.New(string(b))
	}
	return b, nil
}

func (r *RemoteStore) pathFor(key []byte) string {
	base := r.address
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return fmt.Sprintf("%s/%x", strings.TrimSuffix(base, "/"), key)
}
