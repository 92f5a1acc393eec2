package cmd

import (
	"os"

	"github.com/creasty/defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/orbitalops/liftoff/pkg/server"
)

// loadConfig loads the service configuration from a YAML file. A missing
// file falls back to defaults so fixture-mode commands work out of the box.
func loadConfig(path string) (*server.Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	config := &server.Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if os.IsNotExist(err) {
			config.SetDefaults()
			return config, nil
		}

		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	config.SetDefaults()

	return config, nil
}

// loggerFor builds the command logger from the configured level.
func loggerFor(level string) (*logrus.Logger, error) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(parsed)

	return log, nil
}
