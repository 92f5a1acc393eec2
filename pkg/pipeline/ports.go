package pipeline

import (
	"context"
	"time"

	"github.com/orbitalops/liftoff/pkg/notify"
	"github.com/orbitalops/liftoff/pkg/observability"
	"github.com/orbitalops/liftoff/pkg/registry"
	"github.com/orbitalops/liftoff/pkg/transform"
)

// Metrics is the outbound metrics port. Both counters are monotonic.
type Metrics interface {
	RecordExtracted(entity string, n int)
	RecordLoaded(entity string, n int)
}

// Ports bundles the outbound collaborators injected into every pipeline.
type Ports struct {
	Metrics  Metrics
	Notifier notify.Notifier
}

// PrometheusMetrics implements the metrics port on the process-wide
// Prometheus registry.
type PrometheusMetrics struct{}

// RecordExtracted increments the extracted counter for an entity.
func (PrometheusMetrics) RecordExtracted(entity string, n int) {
	observability.RecordExtracted(entity, n)
}

// RecordLoaded increments the loaded counter for an entity.
func (PrometheusMetrics) RecordLoaded(entity string, n int) {
	observability.RecordLoaded(entity, n)
}

// RawAppender is the raw-layer port.
type RawAppender interface {
	Append(ctx context.Context, table, source string, records []map[string]any) (int, error)
}

// CuratedUpserter is the curated-layer port.
type CuratedUpserter interface {
	Upsert(ctx context.Context, spec *registry.EntitySpec, frame *transform.Frame) (int, error)
}

// WatermarkStore is the watermark port.
type WatermarkStore interface {
	Read(ctx context.Context, spec *registry.EntitySpec) time.Time
	Advance(ctx context.Context, spec *registry.EntitySpec, value time.Time)
}

// Extractor is the extraction port.
type Extractor interface {
	Extract(ctx context.Context, live bool) ([]map[string]any, error)
}

// SchemaChecker reports declared columns missing from a physical table.
// exists is false when the table itself is absent.
type SchemaChecker func(ctx context.Context, table string, declared []string) (missing []string, exists bool, err error)
