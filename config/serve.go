package config

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/nicolagi/edgekv/service"
	log "github.com/sirupsen/logrus"
)

// Serve hosts h on the configured addresses until the process receives
// SIGINT or SIGTERM. It also starts a gops agent for the lifetime of the call.
func (c *Config) Serve(h http.Handler, fields log.Fields) error {
	if err := agent.Listen(agent.Options{}); err != nil {
		log.WithField("err", err).Warn("Could not start gops agent")
	} else {
		defer agent.Close()
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)
	return c.serve(h, fields, sigc, nil)
}

// serve returns after a value is received from sigc and the server has shut
// down. If listening is not nil, it is called with the bound address.
func (c *Config) serve(h http.Handler, fields log.Fields, sigc <-chan os.Signal, listening func(addr string)) error {
	srv := service.New(
		service.WithAddress(c.Address),
		service.WithMetricsAddress(c.MetricsAddress),
		service.WithHandler(h),
	)
	addr, err := srv.Listen()
	if err != nil {
		return err
	}
	log.WithFields(fields).WithFields(log.Fields{
		"addr":    addr,
		"metrics": srv.MetricsAddr(),
	}).Info("Listening")
	if listening != nil {
		listening(addr)
	}

	go func() {
		sig := <-sigc
		log.WithField("signal", sig).Info("Shutting down server")
		// Will make srv.Serve() return, and allow deferred clean-up functions to
		// execute.
		if err := srv.Shutdown(); err != nil {
			log.WithField("err", err).Warn("Could not shut down the server cleanly")
		}
	}()

	return srv.Serve()
}
