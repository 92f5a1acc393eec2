package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Watermarks caches per-entity watermark values in Redis so repeated runs
// skip the curated max() query. Entries expire after the configured TTL and
// are invalidated on every successful upsert.
type Watermarks struct {
	log    logrus.FieldLogger
	client *redis.Client
	cfg    *Config
}

// NewWatermarks creates the cache. Returns nil when the cache is disabled;
// the watermark store treats a nil cache as absent.
func NewWatermarks(log logrus.FieldLogger, cfg *Config) (*Watermarks, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.SetDefaults()

	if !cfg.Enabled {
		return nil, nil
	}

	return &Watermarks{
		log:    log.WithField("component", "watermark-cache"),
		client: redis.NewClient(&redis.Options{Addr: cfg.Address}),
		cfg:    cfg,
	}, nil
}

// Get returns the cached watermark for an entity, if present.
func (w *Watermarks) Get(ctx context.Context, entity string) (time.Time, bool, error) {
	raw, err := w.client.Get(ctx, w.key(entity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, fmt.Errorf("failed to read cached watermark: %w", err)
	}

	value, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// A corrupt entry is treated as a miss
		w.log.WithError(err).WithField("entity", entity).Warn("Dropping unparseable cached watermark")

		return time.Time{}, false, nil
	}

	return value.UTC(), true, nil
}

// Set stores the watermark for an entity with the configured TTL.
func (w *Watermarks) Set(ctx context.Context, entity string, value time.Time) error {
	if err := w.client.Set(ctx, w.key(entity), value.UTC().Format(time.RFC3339Nano), w.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to cache watermark: %w", err)
	}

	return nil
}

// Invalidate removes the cached watermark for an entity.
func (w *Watermarks) Invalidate(ctx context.Context, entity string) error {
	if err := w.client.Del(ctx, w.key(entity)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate watermark: %w", err)
	}

	return nil
}

// Close releases the Redis connection.
func (w *Watermarks) Close() error {
	return w.client.Close()
}

func (w *Watermarks) key(entity string) string {
	return w.cfg.PrefixKey("watermark:" + entity)
}
