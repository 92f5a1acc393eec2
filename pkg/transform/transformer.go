package transform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/orbitalops/liftoff/pkg/registry"
)

// Define static errors
var (
	ErrSchemaViolation = errors.New("schema violation")
)

// Transformer runs the declarative normalisation pipeline described by an
// entity specification. It holds no per-run state and is safe for
// concurrent use across entities.
type Transformer struct {
	log logrus.FieldLogger
}

// New creates a transformer.
func New(log logrus.FieldLogger) *Transformer {
	return &Transformer{
		log: log.WithField("component", "transformer"),
	}
}

// Apply normalises extracted records into the curated shape. The steps run
// in a fixed order: build, rename, date parse, incremental filter, cast,
// schema check, projection, dedup. A nil watermark disables the filter.
func (t *Transformer) Apply(spec *registry.EntitySpec, records []map[string]any, watermark *time.Time) (*Frame, error) {
	frame := NewFrame(records)
	if frame.Len() == 0 {
		frame.Project(spec.Columns)
		return frame, nil
	}

	frame.Rename(spec.Renames)

	if temporal := spec.TemporalColumn(); temporal != "" {
		frame.ParseTime(temporal)
	}

	if watermark != nil && spec.HasWatermark() {
		before := frame.Len()
		frame.FilterAfter(spec.WatermarkColumn, watermark.UTC())

		t.log.WithFields(logrus.Fields{
			"entity":    spec.Name,
			"watermark": watermark.UTC(),
			"dropped":   before - frame.Len(),
		}).Debug("Applied incremental filter")
	}

	for col, typ := range spec.Casts {
		frame.Cast(col, typ)
	}

	if missing := frame.MissingColumns(spec.Columns); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s is missing columns after rename: %s",
			ErrSchemaViolation, spec.Name, strings.Join(missing, ", "))
	}

	frame.Project(spec.Columns)
	frame.DedupeByKey(spec.PrimaryKey)

	return frame, nil
}
