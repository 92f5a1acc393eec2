package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// DB is the subset of pgxpool.Pool the loaders depend on. pgxmock
// satisfies it, which keeps the loaders unit-testable without a database.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Client owns the shared connection pool against the warehouse
type Client struct {
	log  logrus.FieldLogger
	cfg  *Config
	pool *pgxpool.Pool
}

// NewClient creates a warehouse client. The pool is opened on Start.
func NewClient(log logrus.FieldLogger, cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.SetDefaults()

	return &Client{
		log: log.WithField("component", "warehouse"),
		cfg: cfg,
	}, nil
}

// Start opens the pool and verifies connectivity.
func (c *Client) Start(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(c.cfg.DSN)
	if err != nil {
		return fmt.Errorf("invalid warehouse DSN: %w", err)
	}

	poolCfg.MaxConns = c.cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	c.pool = pool
	c.log.Info("Connected to warehouse")

	return nil
}

// Stop closes the pool.
func (c *Client) Stop() error {
	if c.pool != nil {
		c.pool.Close()
	}

	c.log.Info("Closed warehouse pool")

	return nil
}

// DB exposes the pool to the loaders.
func (c *Client) DB() DB {
	return c.pool
}
