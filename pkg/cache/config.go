// Package cache provides an optional Redis cache in front of the
// watermark store.
package cache

import (
	"errors"
	"fmt"
	"time"
)

// Define static errors
var (
	ErrAddressRequired = errors.New("redis address is required")
)

// Config holds Redis cache configuration
type Config struct {
	Enabled bool          `yaml:"enabled"`
	Address string        `yaml:"address"`
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Address == "" {
		return ErrAddressRequired
	}

	return nil
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Prefix == "" {
		c.Prefix = "liftoff"
	}

	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
}

// PrefixKey adds the configured prefix to a Redis key
func (c *Config) PrefixKey(key string) string {
	if c.Prefix == "" {
		return key
	}

	return fmt.Sprintf("%s:%s", c.Prefix, key)
}
