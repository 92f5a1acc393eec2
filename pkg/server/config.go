// Package server wires the long-running ingestion service together: the
// warehouse pool, the source client, the scheduler, the status API and the
// observability endpoints.
package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/orbitalops/liftoff/pkg/api"
	"github.com/orbitalops/liftoff/pkg/cache"
	"github.com/orbitalops/liftoff/pkg/notify"
	"github.com/orbitalops/liftoff/pkg/pipeline"
	"github.com/orbitalops/liftoff/pkg/source"
	"github.com/orbitalops/liftoff/pkg/warehouse"
)

// Define static errors
var (
	ErrWarehouseConfigRequired = errors.New("warehouse configuration is required")
)

// Config holds the full configuration of the service.
type Config struct {
	// LoggingLevel is the logging level to use.
	LoggingLevel string `yaml:"logging" default:"info"`
	// MetricsAddr is the address to listen on for metrics.
	MetricsAddr string `yaml:"metricsAddr" default:":9090"`
	// HealthCheckAddr is the address to listen on for healthcheck.
	HealthCheckAddr *string `yaml:"healthCheckAddr"`
	// PProfAddr is the address to listen on for pprof.
	PProfAddr *string `yaml:"pprofAddr"`
	// ShutdownTimeout is the timeout for shutting down the server.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"10s"`

	// SpecsDir holds operator-provided entity specifications; empty means
	// built-in entities only.
	SpecsDir string `yaml:"specsDir,omitempty"`
	// SourceTag is recorded with every raw row.
	SourceTag string `yaml:"sourceTag" default:"spacex"`

	// Source is the upstream HTTP source configuration.
	Source *source.Config `yaml:"source"`
	// Warehouse is the warehouse pool configuration.
	Warehouse *warehouse.Config `yaml:"warehouse"`
	// Cache is the optional watermark cache configuration.
	Cache *cache.Config `yaml:"cache,omitempty"`
	// Notify is the failure notification configuration.
	Notify *notify.Config `yaml:"notify,omitempty"`
	// API is the status API configuration.
	API *api.Config `yaml:"api,omitempty"`
	// Pipeline is the scheduler configuration.
	Pipeline *pipeline.ServiceConfig `yaml:"pipeline,omitempty"`
}

// SetDefaults fills in absent sub-configurations.
func (c *Config) SetDefaults() {
	if c.Source == nil {
		c.Source = &source.Config{}
	}

	if c.Warehouse == nil {
		c.Warehouse = &warehouse.Config{}
	}

	if c.Cache == nil {
		c.Cache = &cache.Config{}
	}

	if c.Notify == nil {
		c.Notify = &notify.Config{}
	}

	if c.API == nil {
		c.API = &api.Config{}
	}

	if c.Pipeline == nil {
		c.Pipeline = &pipeline.ServiceConfig{}
	}

	c.Source.SetDefaults()
	c.Warehouse.SetDefaults()
	c.Cache.SetDefaults()
	c.Notify.SetDefaults()
	c.Pipeline.SetDefaults()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Warehouse == nil {
		return ErrWarehouseConfigRequired
	}

	if err := c.Warehouse.Validate(); err != nil {
		return fmt.Errorf("invalid warehouse configuration: %w", err)
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("invalid source configuration: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("invalid cache configuration: %w", err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("invalid api configuration: %w", err)
	}

	return nil
}
