package table

import (
	"github.com/go-faster/errors"
)

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// Table is an ordered set of equal-length columns. Columns are kept in the
// order their names were first seen.
type Table struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New returns an empty table with no columns and no rows.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// FromColumns assembles a table from prebuilt columns, which must share a
// length and have distinct names.
func FromColumns(cols ...Column) (*Table, error) {
	t := New()
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			return nil, errors.Errorf("duplicate column %q", c.Name)
		}
		if i > 0 && len(c.Values) != t.rows {
			return nil, errors.Errorf("column %q has %d rows, want %d", c.Name, len(c.Values), t.rows)
		}
		t.rows = len(c.Values)
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, Column{Name: c.Name, Values: c.Values})
	}
	return t, nil
}

// NumRows returns the row count. A nil table has zero rows.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// NumColumns returns the column count.
func (t *Table) NumColumns() int {
	if t == nil {
		return 0
	}
	return len(t.columns)
}

// IsEmpty reports whether the table has no rows.
func (t *Table) IsEmpty() bool { return t.NumRows() == 0 }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether a column named name exists.
func (t *Table) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// Column returns the cells of the named column. The slice must not be
// modified.
func (t *Table) Column(name string) ([]Value, bool) {
	if t == nil {
		return nil, false
	}
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i].Values, true
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for c := range t.columns {
		row[c] = t.columns[c].Values[i]
	}
	return row
}

// Head returns a copy of the first n rows.
func (t *Table) Head(n int) *Table {
	out := New()
	if t == nil {
		return out
	}
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	for _, c := range t.columns {
		vals := make([]Value, n)
		copy(vals, c.Values[:n])
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, Column{Name: c.Name, Values: vals})
	}
	out.rows = n
	return out
}

// appendRow adds one row, creating columns for unseen keys and backfilling
// them with Absent for earlier rows.
func (t *Table) appendRow(fields []Field) {
	for i := range t.columns {
		t.columns[i].Values = append(t.columns[i].Values, Absent())
	}
	for _, f := range fields {
		i, ok := t.index[f.Key]
		if !ok {
			i = len(t.columns)
			t.index[f.Key] = i
			t.columns = append(t.columns, Column{Name: f.Key, Values: make([]Value, t.rows+1)})
		}
		t.columns[i].Values[t.rows] = f.Value
	}
	t.rows++
}
