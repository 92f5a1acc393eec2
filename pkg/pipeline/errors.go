package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a run failure.
type ErrorKind string

const (
	// KindTransport covers upstream HTTP failures after retries
	KindTransport ErrorKind = "transport-error"
	// KindRecordValidation covers fatal record-level validation failures
	KindRecordValidation ErrorKind = "record-validation"
	// KindSchemaDrift covers curated tables missing declared columns
	KindSchemaDrift ErrorKind = "schema-drift"
	// KindSchemaViolation covers declared columns missing after rename
	KindSchemaViolation ErrorKind = "schema-violation"
	// KindPersistence covers raw/curated loader failures
	KindPersistence ErrorKind = "persistence-error"
	// KindInternal covers failures outside the declared taxonomy
	KindInternal ErrorKind = "internal-error"
)

// RunError is the single typed error a failed run surfaces to the caller.
type RunError struct {
	Entity string
	Kind   ErrorKind
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Entity, e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// AsRunError unwraps err into a RunError if it carries one.
func AsRunError(err error) (*RunError, bool) {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr, true
	}

	return nil, false
}
