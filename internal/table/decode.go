package table

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/go-faster/errors"
)

// Decode reads exactly one JSON document from r. Object key order is
// preserved; duplicate keys keep their first position and last value.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errors.New("trailing data after JSON document")
	}
	return v, nil
}

// ParseJSON decodes a JSON document held in memory.
func ParseJSON(data []byte) (Value, error) {
	return Decode(bytes.NewReader(data))
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, errors.Wrap(err, "read token")
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, errors.Wrap(err, "close list")
			}
			return List(items...), nil
		case '{':
			fields := []Field{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, errors.Wrap(err, "read key")
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, errors.Errorf("unexpected object key %v", kt)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				fields = setField(fields, key, v)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, errors.Wrap(err, "close object")
			}
			return Object(fields...), nil
		}
		return Value{}, errors.Errorf("unexpected delimiter %q", t)
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, errors.Wrapf(err, "number %s", t)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, errors.Errorf("unexpected token %T", tok)
}
