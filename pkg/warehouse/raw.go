package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/orbitalops/liftoff/pkg/observability"
)

// Define static errors
var (
	ErrPersistence = errors.New("persistence error")
)

// RawLoader appends unmodified payloads into the raw layer. Rows are never
// updated or deleted by the core; the raw layer is a permanent audit log.
type RawLoader struct {
	log logrus.FieldLogger
	db  DB
}

// NewRawLoader creates a raw loader over the shared pool.
func NewRawLoader(log logrus.FieldLogger, db DB) *RawLoader {
	return &RawLoader{
		log: log.WithField("component", "raw-loader"),
		db:  db,
	}
}

// Append serialises each record and inserts it as one row
// (source, raw_data, ingested_at) inside a single transaction. Empty input
// returns 0 without touching the database.
func (l *RawLoader) Append(ctx context.Context, table, source string, records []map[string]any) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		observability.RecordWarehouseQuery("raw_append", "error")
		return 0, fmt.Errorf("%w: failed to begin raw append: %w", ErrPersistence, err)
	}

	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			l.log.WithError(rollbackErr).Debug("Failed to roll back raw append")
		}
	}()

	stmt := fmt.Sprintf(
		"INSERT INTO %s (source, raw_data, ingested_at) VALUES ($1, $2, $3)",
		pgx.Identifier{table}.Sanitize(),
	)

	ingestedAt := time.Now().UTC()

	for i, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			observability.RecordWarehouseQuery("raw_append", "error")
			return 0, fmt.Errorf("%w: failed to serialise record %d: %w", ErrPersistence, i, err)
		}

		if _, err := tx.Exec(ctx, stmt, source, string(payload), ingestedAt); err != nil {
			observability.RecordWarehouseQuery("raw_append", "error")
			return 0, fmt.Errorf("%w: failed to append record %d: %w", ErrPersistence, i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		observability.RecordWarehouseQuery("raw_append", "error")
		return 0, fmt.Errorf("%w: failed to commit raw append: %w", ErrPersistence, err)
	}

	observability.RecordWarehouseQuery("raw_append", "success")

	l.log.WithFields(logrus.Fields{
		"table": table,
		"rows":  len(records),
	}).Debug("Appended raw records")

	return len(records), nil
}
