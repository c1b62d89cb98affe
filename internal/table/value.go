// Package table turns loosely-typed DONKI JSON payloads into ordered,
// column-oriented tables.
//
// JSON values are held in Value, a tagged union that keeps object key order
// so that column order follows the order keys appear in the payload.
package table

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Kind identifies which member of the Value union is set.
type Kind uint8

const (
	KindAbsent Kind = iota // missing cell, distinct from JSON null
	KindNull
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
	KindTime // parsed timestamp, never produced by the decoder
)

var kindNames = [...]string{
	KindAbsent: "absent",
	KindNull:   "null",
	KindString: "string",
	KindNumber: "number",
	KindBool:   "bool",
	KindList:   "list",
	KindObject: "object",
	KindTime:   "time",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Field is one key/value pair of an object. Objects are stored as ordered
// field slices.
type Field struct {
	Key   string
	Value Value
}

// Value is a JSON value or a table cell. The zero Value is Absent.
type Value struct {
	kind   Kind
	str    string
	num    float64
	b      bool
	items  []Value
	fields []Field
	t      time.Time
}

func Absent() Value                { return Value{} }
func Null() Value                  { return Value{kind: KindNull} }
func String(s string) Value        { return Value{kind: KindString, str: s} }
func Number(f float64) Value       { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value            { return Value{kind: KindBool, b: b} }
func Time(t time.Time) Value       { return Value{kind: KindTime, t: t.UTC()} }
func List(items ...Value) Value    { return Value{kind: KindList, items: items} }
func Object(fields ...Field) Value { return Value{kind: KindObject, fields: fields} }

// Kind reports which member of the union is set.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value marks a missing cell.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// IsNull reports whether the value is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the number payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the bool payload.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// TimeValue returns the timestamp payload.
func (v Value) TimeValue() (time.Time, bool) { return v.t, v.kind == KindTime }

// Items returns the elements of a list. The slice must not be modified.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.items
}

// Fields returns the fields of an object in key order. The slice must not be
// modified.
func (v Value) Fields() []Field {
	if v.kind != KindObject {
		return nil
	}
	return v.fields
}

// Get looks up key in an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	return lookup(v.fields, key)
}

func lookup(fields []Field, key string) (Value, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

// setField assigns key in place when it exists, otherwise appends it.
func setField(fields []Field, key string, v Value) []Field {
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = v
			return fields
		}
	}
	return append(fields, Field{Key: key, Value: v})
}

// String formats the value for display. Absent and null render as empty
// strings, lists and objects as compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindAbsent, KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(TimestampLayout)
	default:
		b, _ := v.MarshalJSON()
		return string(b)
	}
}

// MarshalJSON encodes the value keeping object key order. Times use
// TimestampLayout and absent values encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindAbsent, KindNull:
		buf.WriteString("null")
	case KindString:
		return writeJSONString(buf, v.str)
	case KindNumber:
		buf.WriteString(strconv.FormatFloat(v.num, 'g', -1, 64))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindTime:
		return writeJSONString(buf, v.t.Format(TimestampLayout))
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
