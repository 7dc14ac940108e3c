package main

import (
	"os"

	"github.com/nicolagi/edgekv/config"
	"github.com/nicolagi/edgekv/handler"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	defaultConfigFile := os.ExpandEnv("$HOME/lib/edgekv/objectstore.config")
	configFile := flag.String("config", defaultConfigFile, "location of configuration file")
	storeName := flag.String("store", config.DefaultStoreName, "name of the object store to use")
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

	platform, cleanup, err := c.Build()
	defer cleanup()
	if err != nil {
		log.WithField("err", err).Fatal("Could not build stores")
	}

	h := handler.New(
		handler.ObjectStores(platform),
		handler.WithStoreName(*storeName),
		handler.WithServiceVersion(os.Getenv("FASTLY_SERVICE_VERSION")),
	)
	if err := c.Serve(h, log.Fields{"store": *storeName}); err != nil {
		log.Error(err)
	}
}
