package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/orbitalops/liftoff/pkg/observability"
	"github.com/orbitalops/liftoff/pkg/registry"
)

// Epoch sentinel returned when the curated table is empty or unreadable.
var watermarkSentinel = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // fixed sentinel

// Sentinel returns the epoch sentinel watermark.
func Sentinel() time.Time {
	return watermarkSentinel
}

// WatermarkCache is an optional read-through cache in front of the curated
// max() query. pkg/cache provides a Redis-backed implementation.
type WatermarkCache interface {
	Get(ctx context.Context, entity string) (time.Time, bool, error)
	Set(ctx context.Context, entity string, value time.Time) error
	Invalidate(ctx context.Context, entity string) error
}

// WatermarkStore derives each entity's high-water mark from the curated
// table itself; it has no independent storage.
type WatermarkStore struct {
	log   logrus.FieldLogger
	db    DB
	cache WatermarkCache // may be nil
}

// NewWatermarkStore creates a watermark store. cache may be nil.
func NewWatermarkStore(log logrus.FieldLogger, db DB, cache WatermarkCache) *WatermarkStore {
	return &WatermarkStore{
		log:   log.WithField("component", "watermark"),
		db:    db,
		cache: cache,
	}
}

// Read returns max(watermark_column) of the entity's curated table in UTC.
// A null result or a query failure falls back to the epoch sentinel; the
// failure is logged but never fatal. Column and table names come from the
// registered spec only, which is the injection whitelist.
func (s *WatermarkStore) Read(ctx context.Context, spec *registry.EntitySpec) time.Time {
	if !spec.HasWatermark() {
		return watermarkSentinel
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, spec.Name); err == nil && ok {
			return cached.UTC()
		}
	}

	stmt := fmt.Sprintf(
		"SELECT max(%s) FROM %s",
		pgx.Identifier{spec.WatermarkColumn}.Sanitize(),
		pgx.Identifier{spec.CuratedTable}.Sanitize(),
	)

	var max *time.Time

	if err := s.db.QueryRow(ctx, stmt).Scan(&max); err != nil {
		s.log.WithError(err).WithField("entity", spec.Name).Warn("Watermark read failed, falling back to sentinel")
		observability.RecordWarehouseQuery("watermark", "error")
		observability.RecordError("watermark", "read_failure")

		return watermarkSentinel
	}

	observability.RecordWarehouseQuery("watermark", "success")

	if max == nil {
		return watermarkSentinel
	}

	value := max.UTC()

	if s.cache != nil {
		if err := s.cache.Set(ctx, spec.Name, value); err != nil {
			s.log.WithError(err).WithField("entity", spec.Name).Debug("Failed to cache watermark")
		}
	}

	return value
}

// Advance records the new high-water mark. The value itself is derived on
// the next Read; here we only invalidate the cache and update the gauge so
// the next Read observes the new max.
func (s *WatermarkStore) Advance(ctx context.Context, spec *registry.EntitySpec, value time.Time) {
	if !spec.HasWatermark() {
		return
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, spec.Name); err != nil {
			s.log.WithError(err).WithField("entity", spec.Name).Debug("Failed to invalidate watermark cache")
		}
	}

	observability.RecordWatermark(spec.Name, float64(value.UTC().Unix()))
}
