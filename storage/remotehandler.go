package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// NewRemoteHandler serves store over HTTP for RemoteStore clients.
//
// Valid requests are GETs, PUTs and DELETEs to paths of the form "/b33f",
// that is, slash followed by a hexadecimal string encoding the key. A path that
// is not valid hex gets 400, other verbs get 405.
//
// If a key is not found, GETs return 404 with no body, which the client
// propagates as ErrNotFound. Any other error returns 500 and the textual error
// message in the response body. On success the status is 200 and, for GETs,
// the body is the value.
func NewRemoteHandler(store Store) http.Handler {
	r := mux.NewRouter()
	h := &remoteHandler{store: store}
	r.HandleFunc("/{key}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/{key}", h.put).Methods(http.MethodPut)
	r.HandleFunc("/{key}", h.delete).Methods(http.MethodDelete)
	return r
}

type remoteHandler struct {
	store Store
}

func (h *remoteHandler) get(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(logger *log.Entry, key []byte) (int, []byte) {
		value, err := h.store.Get(key)
		if errors.Is(err, ErrNotFound) {
			logger.WithField("err", err).Debug("Not found")
			return http.StatusNotFound, nil
		}
		if err != nil {
			logger.WithField("err", err).Error()
			return http.StatusInternalServerError, []byte(err.Error())
		}
		logger.Debug("Success")
		return http.StatusOK, value
	})
}

func (h *remoteHandler) put(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(logger *log.Entry, key []byte) (int, []byte) {
		value, err := io.ReadAll(r.Body)
		if err != nil {
			logger.WithField("err", err).Error()
			return http.StatusInternalServerError, []byte(err.Error())
		}
		if err := h.store.Put(key, value); err != nil {
			logger.WithField("err", err).Error()
			return http.StatusInternalServerError, []byte(err.Error())
		}
		logger.Debug("Success")
		return http.StatusOK, nil
	})
}

func (h *remoteHandler) delete(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(logger *log.Entry, key []byte) (int, []byte) {
		if err := h.store.Delete(key); err != nil {
			logger.WithField("err", err).Error()
			return http.StatusInternalServerError, []byte(err.Error())
		}
		logger.Debug("Success")
		return http.StatusOK, nil
	})
}

func (h *remoteHandler) serve(w http.ResponseWriter, r *http.Request, fn func(*log.Entry, []byte) (int, []byte)) {
	hkey := mux.Vars(r)["key"]
	logger := log.WithFields(log.Fields{
		"op":  r.Method,
		"key": hkey,
	})
	var status int
	var body []byte
	key, err := hex.DecodeString(hkey)
	if err != nil {
		logger.Warn("Bad request")
		status, body = http.StatusBadRequest, []byte(fmt.Sprintf("%q: not a valid path, expecting hex key only", r.URL.Path))
	} else {
		status, body = fn(logger, key)
	}
	w.WriteHeader(status)
	if body != nil {
		if _, err := w.Write(body); err != nil {
			logger.WithField("err", err).Error("Failed writing response")
		}
	}
}
