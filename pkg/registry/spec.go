// Package registry holds the per-entity ingestion contracts and the
// process-wide catalogue they are registered in.
package registry

import (
	"errors"
	"fmt"
)

// Define static errors
var (
	ErrNameRequired       = errors.New("entity name is required")
	ErrEndpointRequired   = errors.New("entity endpoint is required")
	ErrPrimaryKeyRequired = errors.New("entity primary key is required")
	ErrColumnsRequired    = errors.New("entity columns are required")
	ErrUnknownColumnType  = errors.New("unknown column type")
	ErrColumnNotDeclared  = errors.New("column not declared in columns list")
)

// ColumnType is the semantic type a curated column is cast to.
type ColumnType string

const (
	// TypeString is a text column
	TypeString ColumnType = "string"
	// TypeInteger is a 64-bit integer column
	TypeInteger ColumnType = "integer"
	// TypeFloat is a double-precision column
	TypeFloat ColumnType = "float"
	// TypeBoolean is a boolean column
	TypeBoolean ColumnType = "boolean"
	// TypeTimestamp is a UTC timestamp column
	TypeTimestamp ColumnType = "timestamp"
	// TypeJSON is a serialised JSON text column
	TypeJSON ColumnType = "json"
)

// Valid reports whether t is one of the declared column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeTimestamp, TypeJSON:
		return true
	default:
		return false
	}
}

// InvalidRecordPolicy controls what the extractor does with a source record
// that fails schema validation.
type InvalidRecordPolicy string

const (
	// PolicyDrop drops the offending record and logs it
	PolicyDrop InvalidRecordPolicy = "drop"
	// PolicyFail aborts the run on the first offending record
	PolicyFail InvalidRecordPolicy = "fail"
)

// EntitySpec is the immutable contract for one ingested entity. It is the
// only place physical table names and source endpoints appear; every other
// component receives them from here.
type EntitySpec struct {
	Name            string                `yaml:"name"`
	Endpoint        string                `yaml:"endpoint"`
	PrimaryKey      string                `yaml:"primaryKey"`
	Columns         []string              `yaml:"columns"`
	Renames         map[string]string     `yaml:"renames,omitempty"`
	Casts           map[string]ColumnType `yaml:"casts,omitempty"`
	Required        []string              `yaml:"required,omitempty"`
	WatermarkColumn string                `yaml:"watermarkColumn,omitempty"`
	RawTable        string                `yaml:"rawTable,omitempty"`
	CuratedTable    string                `yaml:"curatedTable,omitempty"`
	OnInvalid       InvalidRecordPolicy   `yaml:"onInvalid,omitempty"`
}

// SetDefaults derives table names and the invalid-record policy when unset.
func (s *EntitySpec) SetDefaults() {
	if s.RawTable == "" && s.Name != "" {
		s.RawTable = "raw_" + s.Name
	}

	if s.CuratedTable == "" && s.Name != "" {
		s.CuratedTable = "curated_" + s.Name
	}

	if s.OnInvalid == "" {
		s.OnInvalid = PolicyDrop
	}
}

// Validate checks the structural consistency of the specification.
func (s *EntitySpec) Validate() error {
	if s.Name == "" {
		return ErrNameRequired
	}

	if s.Endpoint == "" {
		return fmt.Errorf("%w: %s", ErrEndpointRequired, s.Name)
	}

	if s.PrimaryKey == "" {
		return fmt.Errorf("%w: %s", ErrPrimaryKeyRequired, s.Name)
	}

	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: %s", ErrColumnsRequired, s.Name)
	}

	declared := make(map[string]bool, len(s.Columns))
	for _, col := range s.Columns {
		declared[col] = true
	}

	if !declared[s.PrimaryKey] {
		return fmt.Errorf("%w: primary key %q of %s", ErrColumnNotDeclared, s.PrimaryKey, s.Name)
	}

	for _, col := range s.Required {
		if !declared[col] {
			return fmt.Errorf("%w: required column %q of %s", ErrColumnNotDeclared, col, s.Name)
		}
	}

	if s.WatermarkColumn != "" && !declared[s.WatermarkColumn] {
		return fmt.Errorf("%w: watermark column %q of %s", ErrColumnNotDeclared, s.WatermarkColumn, s.Name)
	}

	for col, typ := range s.Casts {
		if !declared[col] {
			return fmt.Errorf("%w: cast column %q of %s", ErrColumnNotDeclared, col, s.Name)
		}

		if !typ.Valid() {
			return fmt.Errorf("%w: %q for column %q of %s", ErrUnknownColumnType, typ, col, s.Name)
		}
	}

	return nil
}

// HasWatermark reports whether the entity supports incremental runs.
func (s *EntitySpec) HasWatermark() bool {
	return s.WatermarkColumn != ""
}

// TemporalColumn is the column the transformer parses as a timestamp before
// filtering. Launch-style payloads carry date_utc; otherwise the watermark
// column is used.
func (s *EntitySpec) TemporalColumn() string {
	for _, col := range s.Columns {
		if col == "date_utc" {
			return col
		}
	}

	return s.WatermarkColumn
}

// ColumnTypeOf returns the declared cast type of col, defaulting to string.
func (s *EntitySpec) ColumnTypeOf(col string) ColumnType {
	if typ, ok := s.Casts[col]; ok {
		return typ
	}

	return TypeString
}

// IsRequired reports whether col must be non-null in curated rows.
func (s *EntitySpec) IsRequired(col string) bool {
	for _, c := range s.Required {
		if c == col {
			return true
		}
	}

	return false
}
