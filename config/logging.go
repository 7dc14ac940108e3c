package config

import (
	"fmt"
	golog "log"
	"os"

	log "github.com/sirupsen/logrus"
)

// SetupLogging applies the debug flag and, if a log path is configured, sends
// logs to that file. The returned function closes the file.
func (c *Config) SetupLogging() (cleanup func()) {
	if c.Debug {
		log.SetLevel(log.DebugLevel)
	}
	golog.SetOutput(log.StandardLogger().Writer())
	if c.LogPath == "" {
		return func() {}
	}
	pathname := os.ExpandEnv(c.LogPath)
	logger := log.WithField("pathname", pathname)
	f, err := os.OpenFile(pathname, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
	if err != nil {
		logger.WithField("err", err).Fatal("Could not open log file")
	}
	logger.Info("Lines after this one will logged to a file")
	log.SetOutput(f)
	return func() {
		if err := f.Close(); err != nil {
			// Can't use the logger here!
			_, _ = fmt.Fprintf(os.Stderr, "Could not close log file cleanly %q: %v", pathname, err)
		}
	}
}
