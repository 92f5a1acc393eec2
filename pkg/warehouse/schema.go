package warehouse

import (
	"context"
	"fmt"
)

// TableColumns returns the column names of a table from information_schema.
// A missing table returns (nil, false, nil); DDL is an external concern.
func TableColumns(ctx context.Context, db DB, table string) (columns []string, exists bool, err error) {
	rows, err := db.Query(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = $1",
		table,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read schema of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, false, fmt.Errorf("failed to scan schema of %s: %w", table, err)
		}

		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read schema of %s: %w", table, err)
	}

	return columns, len(columns) > 0, nil
}

// MissingTableColumns reports the declared columns absent from the physical
// table. exists is false when the table itself is absent.
func MissingTableColumns(ctx context.Context, db DB, table string, declared []string) (missing []string, exists bool, err error) {
	columns, exists, err := TableColumns(ctx, db, table)
	if err != nil || !exists {
		return nil, exists, err
	}

	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}

	for _, col := range declared {
		if !present[col] {
			missing = append(missing, col)
		}
	}

	return missing, true, nil
}
