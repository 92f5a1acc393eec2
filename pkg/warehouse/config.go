// Package warehouse provides the Postgres access layer: the shared pool,
// the raw and curated loaders, the watermark store and the schema precheck.
package warehouse

import (
	"errors"
	"time"
)

// Static errors for configuration validation
var (
	ErrDSNRequired = errors.New("warehouse DSN is required")
)

// Config contains warehouse connection settings
type Config struct {
	DSN            string        `yaml:"dsn"`
	MaxConns       int32         `yaml:"maxConns"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DSN == "" {
		return ErrDSNRequired
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}
