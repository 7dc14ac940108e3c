// Package service hosts a request handler on an HTTP listener, with an
// optional second listener for Prometheus metrics.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type Option func(*options)

type options struct {
	address        string
	metricsAddress string
	handler        http.Handler
}

func WithAddress(value string) Option {
	return func(o *options) {
		o.address = value
	}
}

// WithMetricsAddress enables the metrics listener. Metrics get their own
// listener so that no path of the handler is shadowed.
func WithMetricsAddress(value string) Option {
	return func(o *options) {
		o.metricsAddress = value
	}
}

func WithHandler(value http.Handler) Option {
	return func(o *options) {
		o.handler = value
	}
}

type Server struct {
	opts options

	srv *http.Server
	ln  net.Listener

	metricsSrv *http.Server
	metricsLn  net.Listener

	mu     sync.Mutex
	closed bool
}

func New(opts ...Option) *Server {
	s := &Server{}
	s.opts.address = "127.0.0.1:7676"
	s.opts.handler = http.NotFoundHandler()
	for _, o := range opts {
		o(&s.opts)
	}
	r := mux.NewRouter()
	// The handler sees the raw path: "//readme" is not "/readme".
	r.SkipClean(true)
	r.Use(instrument)
	r.PathPrefix("/").Handler(s.opts.handler)
	s.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.opts.metricsAddress != "" {
		s.metricsSrv = &http.Server{
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s
}

// Listen binds the listeners and returns the address of the main one.
func (s *Server) Listen() (addr string, err error) {
	s.ln, err = net.Listen("tcp", s.opts.address)
	if err != nil {
		return
	}
	addr = s.ln.Addr().String()
	if s.metricsSrv != nil {
		s.metricsLn, err = net.Listen("tcp", s.opts.metricsAddress)
		if err != nil {
			_ = s.ln.Close()
			return "", err
		}
	}
	return
}

// MetricsAddr returns the address of the metrics listener, or the empty string
// if there is none.
func (s *Server) MetricsAddr() string {
	if s.metricsLn == nil {
		return ""
	}
	return s.metricsLn.Addr().String()
}

// Serve serves requests until Shutdown is called, after which it returns nil.
// Listen must have been called.
func (s *Server) Serve() error {
	if s.metricsSrv != nil {
		go func() {
			if err := s.metricsSrv.Serve(s.metricsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithField("err", err).Error("Metrics listener failed")
			}
		}()
	}
	err := s.srv.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones, up to a
// deadline. Serve returns once this method has been called.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	if s.metricsSrv != nil {
		if merr := s.metricsSrv.Shutdown(ctx); merr != nil && err == nil {
			err = merr
		}
	}
	return err
}
