// Package transform normalises extracted records into the typed tabular
// form the curated layer expects. The Frame is the only value flowing
// between the pipeline stages after extraction.
package transform

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/orbitalops/liftoff/pkg/registry"
)

// Frame is a column-oriented table. Cell values are nil, string, int64,
// float64, bool, time.Time or raw nested JSON values prior to casting.
type Frame struct {
	columns []string
	index   map[string]int
	data    [][]any // data[colIdx][rowIdx]
}

// NewFrame builds a frame from extracted records. Columns are the union of
// all record fields in sorted order; missing fields become nil cells.
func NewFrame(records []map[string]any) *Frame {
	seen := make(map[string]bool)

	for _, record := range records {
		for field := range record {
			seen[field] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for field := range seen {
		columns = append(columns, field)
	}

	sort.Strings(columns)

	f := &Frame{
		columns: columns,
		index:   make(map[string]int, len(columns)),
		data:    make([][]any, len(columns)),
	}

	for i, col := range columns {
		f.index[col] = i
		f.data[i] = make([]any, len(records))

		for row, record := range records {
			f.data[i][row] = record[col]
		}
	}

	return f
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)

	return out
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if len(f.data) == 0 {
		return 0
	}

	return len(f.data[0])
}

// HasColumn reports whether the frame holds the named column.
func (f *Frame) HasColumn(col string) bool {
	_, ok := f.index[col]
	return ok
}

// Value returns the cell at (col, row), or nil when the column is absent.
func (f *Frame) Value(col string, row int) any {
	idx, ok := f.index[col]
	if !ok {
		return nil
	}

	return f.data[idx][row]
}

// Row materialises one row as a column→value map.
func (f *Frame) Row(row int) map[string]any {
	out := make(map[string]any, len(f.columns))
	for i, col := range f.columns {
		out[col] = f.data[i][row]
	}

	return out
}

// Rename maps source column names to canonical ones. Unknown sources are
// ignored; the schema check catches genuinely missing columns later.
func (f *Frame) Rename(renames map[string]string) {
	for src, dst := range renames {
		idx, ok := f.index[src]
		if !ok {
			continue
		}

		delete(f.index, src)
		f.columns[idx] = dst
		f.index[dst] = idx
	}
}

// ParseTime parses the named column from ISO-8601 (millisecond precision)
// into UTC time.Time cells. Unparseable cells become nil; timezone-naive
// inputs are treated as UTC.
func (f *Frame) ParseTime(col string) {
	idx, ok := f.index[col]
	if !ok {
		return
	}

	for row, cell := range f.data[idx] {
		f.data[idx][row] = parseTimestamp(cell)
	}
}

// FilterAfter keeps only rows whose col cell is a timestamp strictly greater
// than cutoff. Rows with nil or non-timestamp cells are dropped.
func (f *Frame) FilterAfter(col string, cutoff time.Time) {
	idx, ok := f.index[col]
	if !ok {
		return
	}

	keep := make([]int, 0, f.Len())

	for row, cell := range f.data[idx] {
		ts, ok := cell.(time.Time)
		if ok && ts.After(cutoff) {
			keep = append(keep, row)
		}
	}

	f.keepRows(keep)
}

// Cast converts every cell of col to the target type. Failed casts become
// nil cells; the cast itself never fails.
func (f *Frame) Cast(col string, typ registry.ColumnType) {
	idx, ok := f.index[col]
	if !ok {
		return
	}

	for row, cell := range f.data[idx] {
		f.data[idx][row] = castValue(cell, typ)
	}
}

// MissingColumns returns the entries of want absent from the frame.
func (f *Frame) MissingColumns(want []string) []string {
	var missing []string

	for _, col := range want {
		if !f.HasColumn(col) {
			missing = append(missing, col)
		}
	}

	return missing
}

// Project reorders and restricts the frame to exactly cols. Callers must
// have verified presence via MissingColumns first.
func (f *Frame) Project(cols []string) {
	newData := make([][]any, len(cols))
	newIndex := make(map[string]int, len(cols))

	for i, col := range cols {
		newIndex[col] = i

		if idx, ok := f.index[col]; ok {
			newData[i] = f.data[idx]
		} else {
			newData[i] = make([]any, f.Len())
		}
	}

	f.columns = append([]string(nil), cols...)
	f.index = newIndex
	f.data = newData
}

// DedupeByKey drops rows with a nil key cell and keeps the first occurrence
// of each key value.
func (f *Frame) DedupeByKey(key string) {
	idx, ok := f.index[key]
	if !ok {
		return
	}

	seen := make(map[string]bool, f.Len())
	keep := make([]int, 0, f.Len())

	for row, cell := range f.data[idx] {
		if cell == nil {
			continue
		}

		k := keyString(cell)
		if seen[k] {
			continue
		}

		seen[k] = true

		keep = append(keep, row)
	}

	f.keepRows(keep)
}

func (f *Frame) keepRows(rows []int) {
	for i := range f.data {
		next := make([]any, len(rows))
		for j, row := range rows {
			next[j] = f.data[i][row]
		}

		f.data[i] = next
	}
}

func keyString(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(raw)
	}
}

// Source timestamps are ISO-8601 with millisecond precision; naive
// variants without a zone designator are treated as UTC.
//
//nolint:gochecknoglobals // static lookup tables
var (
	zonedLayouts = []string{
		"2006-01-02T15:04:05.000Z07:00",
		time.RFC3339Nano,
		time.RFC3339,
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
)

func parseTimestamp(cell any) any {
	switch v := cell.(type) {
	case time.Time:
		return v.UTC()
	case string:
		for _, layout := range zonedLayouts {
			if ts, err := time.Parse(layout, v); err == nil {
				return ts.UTC()
			}
		}

		for _, layout := range naiveLayouts {
			if ts, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
				return ts
			}
		}

		return nil
	default:
		return nil
	}
}

func castValue(cell any, typ registry.ColumnType) any {
	if cell == nil {
		return nil
	}

	switch typ {
	case registry.TypeString:
		return castString(cell)
	case registry.TypeInteger:
		return castInteger(cell)
	case registry.TypeFloat:
		return castFloat(cell)
	case registry.TypeBoolean:
		return castBoolean(cell)
	case registry.TypeTimestamp:
		return parseTimestamp(cell)
	case registry.TypeJSON:
		raw, err := json.Marshal(cell)
		if err != nil {
			return nil
		}

		return string(raw)
	default:
		return nil
	}
}

func castString(cell any) any {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return nil
	}
}

func castInteger(cell any) any {
	switch v := cell.(type) {
	case float64:
		if v != float64(int64(v)) {
			return nil
		}

		return int64(v)
	case int64:
		return v
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}

		return n
	default:
		return nil
	}
}

func castFloat(cell any) any {
	switch v := cell.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}

		return n
	default:
		return nil
	}
}

func castBoolean(cell any) any {
	switch v := cell.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil
		}

		return b
	default:
		return nil
	}
}
