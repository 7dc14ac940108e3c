package main

import (
	"os"

	"github.com/nicolagi/edgekv/config"
	"github.com/nicolagi/edgekv/storage"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	defaultConfigFile := os.ExpandEnv("$HOME/lib/edgekv/storeserver.config")
	configFile := flag.String("config", defaultConfigFile, "location of configuration file")
	flag.Parse()

	c, err := config.Load(*configFile)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"path": *configFile,
		}).Fatal("Could not load configuration")
	}

	cleanupLogging := c.SetupLogging()
	defer cleanupLogging()

	store, closer, err := config.BuildStore(c.Store)
	if closer != nil {
		defer func() {
			if err := closer(); err != nil {
				log.WithField("err", err).Warn("Could not close store cleanly")
			}
		}()
	}
	if err != nil {
		log.WithField("err", err).Fatal("Could not build store")
	}

	if err := c.Serve(storage.NewRemoteHandler(store), log.Fields{"type": c.Store.Type}); err != nil {
		log.Error(err)
	}
}
