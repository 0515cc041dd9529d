package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Parse decodes JSON bytes into a Value, preserving object key order from
// the source document. encoding/json's own map[string]any decoding does
// not preserve order, so this walks the token stream by hand.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return parseFromToken(dec, tok)
}

func parseFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("jsonvalue: invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Array(items...), nil
		case '{':
			obj := NewOrderedObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("jsonvalue: expected object key, got %v", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return ObjectOf(obj), nil
		default:
			return Value{}, fmt.Errorf("jsonvalue: unexpected delimiter %q", t)
		}
	default:
		return Value{}, fmt.Errorf("jsonvalue: unexpected token %v (%T)", tok, tok)
	}
}

// MarshalJSON implements json.Marshaler, writing objects in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) write(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(formatNumber(v.n))
	case KindString:
		encoded, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(encoded)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.write(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.obj.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyEncoded, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyEncoded)
			buf.WriteByte(':')
			item, _ := v.obj.Get(k)
			if err := item.write(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jsonvalue: unknown kind %v", v.kind)
	}
	return nil
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) && n < 1e15 && n > -1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// UnmarshalJSON implements json.Unmarshaler via Parse, so a Value field
// embedded in a larger struct still preserves nested object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
