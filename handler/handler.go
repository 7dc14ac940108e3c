// Package handler implements the demo request handler: it persists a fixed
// key/value pair in a named store and reads it back.
//
// A request for /readme looks up the key "readme" and returns its value, or
// 404 if there is none. Any other request upserts "hello" = "world" and then
// looks up "hello". Stores are eventually consistent, so that lookup may miss
// the write just made, in which case the response is 404 too.
package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nicolagi/edgekv/edge"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultStoreName = "my-store"

	readmePath = "/readme"
	readmeKey  = "readme"
	helloKey   = "hello"
	helloValue = "world"
	notFound   = "Not Found"
)

// Store is what the handler needs from a store handle.
type Store interface {
	Lookup(key string) (*edge.Entry, error)
	Insert(key string, value []byte) error
}

// OpenFunc opens the store called name.
type OpenFunc func(name string) (Store, error)

// KVStores opens KV stores on p.
func KVStores(p *edge.Platform) OpenFunc {
	return func(name string) (Store, error) {
		s, err := p.OpenKVStore(name)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// ObjectStores opens object stores on p.
func ObjectStores(p *edge.Platform) OpenFunc {
	return func(name string) (Store, error) {
		s, err := p.OpenObjectStore(name)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

type Option func(*options)

type options struct {
	storeName      string
	serviceVersion string
}

func WithStoreName(value string) Option {
	return func(o *options) {
		o.storeName = value
	}
}

// WithServiceVersion sets the deployment version logged on every request.
// The empty string disables the log line.
func WithServiceVersion(value string) Option {
	return func(o *options) {
		o.serviceVersion = value
	}
}

// Response is what Handle produces for a request.
type Response struct {
	Status int
	Body   io.Reader
}

func newResponse(entry *edge.Entry) *Response {
	if entry == nil {
		return &Response{Status: http.StatusNotFound, Body: strings.NewReader(notFound)}
	}
	return &Response{Status: http.StatusOK, Body: entry.Body()}
}

type Handler struct {
	opts options
	open OpenFunc
}

func New(open OpenFunc, opts ...Option) *Handler {
	h := &Handler{open: open}
	h.opts.storeName = DefaultStoreName
	for _, o := range opts {
		o(&h.opts)
	}
	return h
}

// Handle serves one request. A non-nil error means the request failed in a way
// the handler cannot turn into a response: the store could not be opened, or a
// store operation failed for a reason other than a missing key.
func (h *Handler) Handle(r *http.Request) (*Response, error) {
	// Knowing which deployment answered is useful when debugging.
	if h.opts.serviceVersion != "" {
		log.Infof("FASTLY_SERVICE_VERSION: %s", h.opts.serviceVersion)
	}

	store, err := h.open(h.opts.storeName)
	if err != nil {
		return nil, fmt.Errorf("could not open store %q: %w", h.opts.storeName, err)
	}

	if r.URL.Path == readmePath {
		entry, err := store.Lookup(readmeKey)
		if err != nil {
			return nil, err
		}
		return newResponse(entry), nil
	}

	if err := store.Insert(helloKey, []byte(helloValue)); err != nil {
		return nil, err
	}
	// The insert may not be visible yet.
	entry, err := store.Lookup(helloKey)
	if err != nil {
		return nil, err
	}
	return newResponse(entry), nil
}

// ServeHTTP implements http.Handler. Errors from Handle are logged and
// answered with a generic 500.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"store":  h.opts.storeName,
	})
	resp, err := h.Handle(r)
	if err != nil {
		logger.WithField("err", err).Error("Request failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(resp.Status)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.WithField("err", err).Error("Failed writing response")
	}
}
