// Package bins holds the in-memory BIN table model together with the column
// mapper and filter engine that operate on it.
//
// Everything in this package is pure: functions take a table and return a
// new one, never mutating their inputs. Callers can therefore share a *Table
// across goroutines without locking.
package bins

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrColumnNotFound is returned when a requested column is not in the table.
var ErrColumnNotFound = errors.New("column not found")

// ErrRaggedColumns is returned when columns passed to NewTable differ in length.
var ErrRaggedColumns = errors.New("columns have different lengths")

// Value is a nullable text cell.
type Value struct {
	Str   string
	Valid bool
}

// Str returns a non-null Value.
func Str(s string) Value { return Value{Str: s, Valid: true} }

// Null returns a null Value.
func Null() Value { return Value{} }

// Text returns the cell contents, or "" for null.
func (v Value) Text() string {
	if !v.Valid {
		return ""
	}
	return v.Str
}

// MarshalJSON encodes null cells as JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Str)
}

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Table is an ordered set of equal-length columns.
// A Table is never modified after construction.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// NewTable builds a table from columns. Column names are used as given;
// loaders are expected to normalize them first with NormalizeColumnName.
func NewTable(columns []Column) (*Table, error) {
	t := &Table{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if i == 0 {
			t.rows = len(c.Values)
		} else if len(c.Values) != t.rows {
			return nil, fmt.Errorf("%w: %q has %d values, want %d", ErrRaggedColumns, c.Name, len(c.Values), t.rows)
		}
		// First occurrence wins for duplicate names.
		if _, dup := t.index[c.Name]; !dup {
			t.index[c.Name] = i
		}
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. Intended for tests and
// literals known to be well formed.
func MustTable(columns ...Column) *Table {
	t, err := NewTable(columns)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRecords builds a table from a header and row-major records. Short rows
// are padded with nulls. Cells are taken as non-null; use FromCells when
// nulls are already known.
func FromRecords(header []string, records [][]string) (*Table, error) {
	cells := make([][]Value, len(records))
	for i, rec := range records {
		row := make([]Value, len(rec))
		for j, s := range rec {
			row[j] = Str(s)
		}
		cells[i] = row
	}
	return FromCells(header, cells)
}

// FromCells builds a table from a header and row-major cells.
func FromCells(header []string, rows [][]Value) (*Table, error) {
	cols := make([]Column, len(header))
	for j, name := range header {
		vals := make([]Value, len(rows))
		for i, row := range rows {
			if j < len(row) {
				vals[i] = row[j]
			}
		}
		cols[j] = Column{Name: name, Values: vals}
	}
	return NewTable(cols)
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i].Values, true
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i]
	}
	return row
}

// Record returns row i keyed by column name. Duplicate names keep the
// first column's value.
func (t *Table) Record(i int) map[string]Value {
	rec := make(map[string]Value, len(t.columns))
	for _, c := range t.columns {
		if _, seen := rec[c.Name]; !seen {
			rec[c.Name] = c.Values[i]
		}
	}
	return rec
}

// Take returns a new table holding the given rows in the given order.
func (t *Table) Take(rows []int) *Table {
	cols := make([]Column, len(t.columns))
	for j, c := range t.columns {
		vals := make([]Value, len(rows))
		for k, r := range rows {
			vals[k] = c.Values[r]
		}
		cols[j] = Column{Name: c.Name, Values: vals}
	}
	return &Table{columns: cols, index: t.index, rows: len(rows)}
}

// Slice returns rows [start, end) clipped to the table bounds.
func (t *Table) Slice(start, end int) *Table {
	start = clamp(start, 0, t.rows)
	end = clamp(end, start, t.rows)
	rows := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, i)
	}
	return t.Take(rows)
}

// Project returns a table restricted to the named columns, in the order
// given. A name listed twice is kept once, at its first position. An empty
// list returns t unchanged.
func (t *Table) Project(names []string) (*Table, error) {
	if len(names) == 0 {
		return t, nil
	}
	cols := make([]Column, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		cols = append(cols, t.columns[i])
	}
	return NewTable(cols)
}

// Records returns every row keyed by column name.
func (t *Table) Records() []map[string]Value {
	out := make([]map[string]Value, t.rows)
	for i := range out {
		out[i] = t.Record(i)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeColumnName lowercases a header, strips accents and other
// non-ASCII characters, and replaces spaces and hyphens with underscores.
//
//	"Bank Name"  -> "bank_name"
//	"País"       -> "pais"
//	"Card-Type"  -> "card_type"
func NormalizeColumnName(name string) string {
	decomposed := norm.NFKD.String(name)
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, decomposed)
	ascii = strings.ToLower(strings.TrimSpace(ascii))
	ascii = strings.ReplaceAll(ascii, "-", "_")
	return strings.ReplaceAll(ascii, " ", "_")
}

// NormalizeColumnNames applies NormalizeColumnName to every name.
func NormalizeColumnNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeColumnName(n)
	}
	return out
}
