package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/orbitalops/liftoff/pkg/observability"
	"github.com/orbitalops/liftoff/pkg/registry"
	"github.com/orbitalops/liftoff/pkg/transform"
)

// CuratedLoader upserts typed rows into the curated layer, keyed by the
// entity's primary key.
type CuratedLoader struct {
	log logrus.FieldLogger
	db  DB
}

// NewCuratedLoader creates a curated loader over the shared pool.
func NewCuratedLoader(log logrus.FieldLogger, db DB) *CuratedLoader {
	return &CuratedLoader{
		log: log.WithField("component", "curated-loader"),
		db:  db,
	}
}

// Upsert writes the frame as a single batched INSERT ... ON CONFLICT
// statement inside one transaction. Replaying the same frame yields the
// same table state.
func (l *CuratedLoader) Upsert(ctx context.Context, spec *registry.EntitySpec, frame *transform.Frame) (int, error) {
	if frame.Len() == 0 {
		return 0, nil
	}

	stmt, args, err := buildUpsert(spec, frame)
	if err != nil {
		return 0, err
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		observability.RecordWarehouseQuery("upsert", "error")
		return 0, fmt.Errorf("%w: failed to begin upsert: %w", ErrPersistence, err)
	}

	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			l.log.WithError(rollbackErr).Debug("Failed to roll back upsert")
		}
	}()

	tag, err := tx.Exec(ctx, stmt, args...)
	if err != nil {
		observability.RecordWarehouseQuery("upsert", "error")
		return 0, fmt.Errorf("%w: upsert into %s failed: %w", ErrPersistence, spec.CuratedTable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		observability.RecordWarehouseQuery("upsert", "error")
		return 0, fmt.Errorf("%w: failed to commit upsert: %w", ErrPersistence, err)
	}

	observability.RecordWarehouseQuery("upsert", "success")

	affected := int(tag.RowsAffected())

	l.log.WithFields(logrus.Fields{
		"table": spec.CuratedTable,
		"rows":  affected,
	}).Debug("Upserted curated rows")

	return affected, nil
}

// buildUpsert renders the multi-row statement. When the primary key is the
// only column the conflict action degenerates to DO NOTHING.
func buildUpsert(spec *registry.EntitySpec, frame *transform.Frame) (string, []any, error) {
	columns := spec.Columns

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
	}

	var sb strings.Builder

	sb.WriteString("INSERT INTO ")
	sb.WriteString(pgx.Identifier{spec.CuratedTable}.Sanitize())
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, frame.Len()*len(columns))

	for row := 0; row < frame.Len(); row++ {
		if row > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString("(")

		for i, col := range columns {
			if i > 0 {
				sb.WriteString(", ")
			}

			value, err := bindValue(frame.Value(col, row))
			if err != nil {
				return "", nil, fmt.Errorf("%w: row %d column %s: %w", ErrPersistence, row, col, err)
			}

			args = append(args, value)

			sb.WriteString(fmt.Sprintf("$%d", len(args)))
		}

		sb.WriteString(")")
	}

	sb.WriteString(" ON CONFLICT (")
	sb.WriteString(pgx.Identifier{spec.PrimaryKey}.Sanitize())
	sb.WriteString(") ")

	nonKey := make([]string, 0, len(columns))

	for _, col := range columns {
		if col != spec.PrimaryKey {
			q := pgx.Identifier{col}.Sanitize()
			nonKey = append(nonKey, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
		}
	}

	if len(nonKey) == 0 {
		sb.WriteString("DO NOTHING")
	} else {
		sb.WriteString("DO UPDATE SET ")
		sb.WriteString(strings.Join(nonKey, ", "))
	}

	return sb.String(), args, nil
}

// bindValue serialises nested values to canonical JSON text; everything
// else binds as-is.
func bindValue(value any) (any, error) {
	switch value.(type) {
	case map[string]any, []any:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}

		return string(raw), nil
	default:
		return value, nil
	}
}
