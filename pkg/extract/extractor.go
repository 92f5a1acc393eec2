// Package extract pulls entity collections from the upstream source and
// applies record-level validation before the transformer sees them.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/orbitalops/liftoff/pkg/observability"
	"github.com/orbitalops/liftoff/pkg/registry"
	"github.com/orbitalops/liftoff/pkg/source"
)

// Define static errors
var (
	ErrRecordValidation = errors.New("record validation failed")
)

// Extractor defines the per-entity extraction interface
type Extractor interface {
	// Extract fetches the entity collection. When live is false the
	// embedded fixture set is returned instead of calling the source.
	Extract(ctx context.Context, live bool) ([]map[string]any, error)
}

// extractor wraps the shared source client for one entity
type extractor struct {
	log    logrus.FieldLogger
	spec   *registry.EntitySpec
	client source.Client
}

// New creates an extractor for the given entity specification
func New(log logrus.FieldLogger, spec *registry.EntitySpec, client source.Client) Extractor {
	return &extractor{
		log:    log.WithField("component", "extractor").WithField("entity", spec.Name),
		spec:   spec,
		client: client,
	}
}

func (e *extractor) Extract(ctx context.Context, live bool) ([]map[string]any, error) {
	if !live {
		records, err := Fixture(e.spec.Name)
		if err != nil {
			return nil, err
		}

		// Fixtures are part of the repo; a bad record there is a bug,
		// so validation always fails fast.
		return e.validate(records, registry.PolicyFail)
	}

	records, err := e.client.FetchCollection(ctx, e.spec.Endpoint)
	if err != nil {
		return nil, err
	}

	return e.validate(records, e.spec.OnInvalid)
}

// validate checks each record against the entity schema. Depending on
// policy, offending records are dropped with a log line or abort the run.
func (e *extractor) validate(records []map[string]any, policy registry.InvalidRecordPolicy) ([]map[string]any, error) {
	valid := make([]map[string]any, 0, len(records))

	for i, record := range records {
		if err := e.checkRecord(record); err != nil {
			if policy == registry.PolicyFail {
				return nil, fmt.Errorf("%w: record %d of %s: %w", ErrRecordValidation, i, e.spec.Name, err)
			}

			e.log.WithError(err).WithField("record", i).Warn("Dropping invalid source record")
			observability.RecordDropped(e.spec.Name, "validation")

			continue
		}

		valid = append(valid, record)
	}

	return valid, nil
}

// checkRecord verifies that required source fields are present and non-null
// and that scalar-typed columns do not carry nested values.
func (e *extractor) checkRecord(record map[string]any) error {
	for _, col := range e.spec.Required {
		field := e.sourceField(col)

		value, ok := record[field]
		if !ok || value == nil {
			// The primary key may legitimately be null in the source;
			// the transformer drops such rows later.
			if col == e.spec.PrimaryKey {
				continue
			}

			return fmt.Errorf("missing required field %q", field)
		}
	}

	for col, typ := range e.spec.Casts {
		if typ == registry.TypeJSON {
			continue
		}

		value, ok := record[e.sourceField(col)]
		if !ok || value == nil {
			continue
		}

		switch value.(type) {
		case map[string]any, []any:
			return fmt.Errorf("field %q holds a nested value but column is %s", e.sourceField(col), typ)
		}
	}

	return nil
}

// sourceField maps a canonical column back to the source field name.
func (e *extractor) sourceField(col string) string {
	for src, dst := range e.spec.Renames {
		if dst == col {
			return src
		}
	}

	return col
}
