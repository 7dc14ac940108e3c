package service

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-Id"

// instrument logs one line per request and records request metrics.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		m := httpsnoop.CaptureMetrics(next, w, r)
		requestsMetric.WithLabelValues(strconv.Itoa(m.Code), r.Method).Inc()
		durationMetric.WithLabelValues(r.Method).Observe(m.Duration.Seconds())
		log.WithFields(log.Fields{
			"id":       id,
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   m.Code,
			"bytes":    m.Written,
			"duration": m.Duration,
			"remote":   r.RemoteAddr,
		}).Debug("Served")
	})
}
