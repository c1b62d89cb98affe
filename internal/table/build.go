package table

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// TimestampLayout is the DONKI timestamp wire format: minute precision, UTC,
// literal Z suffix.
const TimestampLayout = "2006-01-02T15:04Z"

// ErrTimestampParse is matched by every timestamp conversion failure.
var ErrTimestampParse = errors.New("timestamp parse")

// TimestampParseError reports the cell that could not be converted.
type TimestampParseError struct {
	Column string
	Row    int
	Value  Value
	Err    error
}

func (e *TimestampParseError) Error() string {
	msg := fmt.Sprintf("column %q row %d: cannot parse %s %q as %s", e.Column, e.Row, e.Value.Kind(), e.Value.String(), TimestampLayout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TimestampParseError) Unwrap() error { return e.Err }

func (e *TimestampParseError) Is(target error) bool { return target == ErrTimestampParse }

// ParseTimestamp parses s using TimestampLayout.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// ColumnMapping renames source keys to destination columns. Keys without an
// entry keep their name.
type ColumnMapping map[string]string

// FieldMap copies nested key From into column To.
type FieldMap struct {
	From string
	To   string
}

// Nested flattens fields of the objects listed under Source into the parent
// record.
type Nested struct {
	Source string
	Fields []FieldMap
}

// NestedSpec is applied in order; later entries overwrite earlier ones that
// target the same column.
type NestedSpec []Nested

// Records returns the elements of a list payload. Any other payload yields
// no records.
func Records(payload Value) []Value {
	return payload.Items()
}

// Build flattens records into a table.
//
// Non-object records are dropped. Keys are renamed through mapping, then each
// nested extraction is applied to the renamed record: for every object in the
// list held under Source, each FieldMap copies element[From] into record[To]
// (null when the element lacks From), so the last element wins. When
// timestampColumn names an existing column, its cells are parsed with
// TimestampLayout and any failure aborts the build.
//
// Build never modifies records.
func Build(records []Value, mapping ColumnMapping, nested NestedSpec, timestampColumn string) (*Table, error) {
	t := New()
	if len(records) == 0 {
		return t, nil
	}

	for _, rec := range records {
		if rec.Kind() != KindObject {
			continue
		}
		fields := rename(rec.Fields(), mapping)
		fields = extractNested(fields, nested)
		t.appendRow(fields)
	}

	if timestampColumn != "" && t.Has(timestampColumn) {
		if err := t.parseTimestamps(timestampColumn); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func rename(src []Field, mapping ColumnMapping) []Field {
	out := make([]Field, 0, len(src))
	for _, f := range src {
		key := f.Key
		if to, ok := mapping[key]; ok {
			key = to
		}
		out = setField(out, key, f.Value)
	}
	return out
}

func extractNested(fields []Field, nested NestedSpec) []Field {
	for _, n := range nested {
		src, ok := lookup(fields, n.Source)
		if !ok || src.Kind() != KindList {
			continue
		}
		for _, elem := range src.Items() {
			if elem.Kind() != KindObject {
				continue
			}
			for _, fm := range n.Fields {
				v, ok := elem.Get(fm.From)
				if !ok {
					v = Null()
				}
				fields = setField(fields, fm.To, v)
			}
		}
	}
	return fields
}

// parseTimestamps converts the named column in place. Absent and null cells
// are left as they are.
func (t *Table) parseTimestamps(name string) error {
	col := t.columns[t.index[name]].Values
	for i, v := range col {
		if v.IsAbsent() || v.IsNull() {
			continue
		}
		ts, err := ToTime(v)
		if err != nil {
			return &TimestampParseError{Column: name, Row: i, Value: v, Err: err}
		}
		col[i] = Time(ts)
	}
	return nil
}

// ToTime converts a cell to a timestamp. Time cells are returned as they
// are, strings are parsed with TimestampLayout, and absent or null cells
// return the zero time. Every other kind is an error.
func ToTime(v Value) (time.Time, error) {
	switch v.Kind() {
	case KindAbsent, KindNull:
		return time.Time{}, nil
	case KindTime:
		return v.t, nil
	case KindString:
		ts, err := ParseTimestamp(v.str)
		if err != nil {
			return time.Time{}, err
		}
		return ts, nil
	}
	return time.Time{}, errors.Errorf("%s is not a timestamp string", v.Kind())
}
