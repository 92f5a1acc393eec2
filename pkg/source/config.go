// Package source provides the HTTP client used to pull entity collections
// from the upstream catalogue.
package source

import (
	"errors"
	"time"
)

// Static errors for configuration validation
var (
	ErrBaseURLRequired = errors.New("base URL is required")
)

// Config contains upstream connection and retry settings
type Config struct {
	BaseURL      string        `yaml:"baseUrl" default:"https://api.spacexdata.com"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`
	// RetryOn4xx additionally retries 408 and 429 responses
	RetryOn4xx bool          `yaml:"retryOn4xx"`
	KeepAlive  time.Duration `yaml:"keepAlive"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLRequired
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}

	if c.Retries == 0 {
		c.Retries = 3
	}

	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}

	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
}
