package model

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind classifies a scalar attribute value.
type Kind int

const (
	KindInvalid Kind = iota // nested objects, arrays and null.
	KindBoolean
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	}
	return "invalid"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "boolean":
		*k = KindBoolean
	case "number":
		*k = KindNumber
	case "string":
		*k = KindString
	default:
		*k = KindInvalid
	}
	return nil
}

// Value is a scalar attribute value as reported by the cloud or written by a user.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) IsScalar() bool { return v.kind != KindInvalid }

// AsBool returns the boolean payload and whether the value is a boolean.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBoolean
}

// AsNumber returns the numeric payload and whether the value is a number.
func (v Value) AsNumber() (float64, bool) {
	return v.n, v.kind == KindNumber
}

// AsString returns the string payload and whether the value is a string.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// Any returns the value as a plain Go value (bool, float64, string or nil).
func (v Value) Any() any {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindString:
		return v.s
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue classifies a raw JSON value. Objects, arrays and null produce
// a KindInvalid value rather than an error.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	switch t := raw.(type) {
	case bool:
		return Bool(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(n), nil
	case string:
		return String(t), nil
	}
	return Value{}, nil
}

// ParsePayload interprets a free-form payload (an MQTT message body or a
// query value). Valid JSON scalars are classified, anything else is taken
// as a literal string.
func ParsePayload(payload []byte) Value {
	trimmed := bytes.TrimSpace(payload)
	if v, err := ParseValue(trimmed); err == nil && v.IsScalar() {
		return v
	}
	return String(string(payload))
}

// Coerce converts v to the given kind where a lossless conversion exists.
// It returns false when the value cannot be represented as kind.
func (v Value) Coerce(kind Kind) (Value, bool) {
	if v.kind == kind {
		return v, true
	}
	if v.kind != KindString {
		if kind == KindString {
			return String(v.String()), true
		}
		return Value{}, false
	}
	switch kind {
	case KindBoolean:
		b, err := strconv.ParseBool(v.s)
		if err != nil {
			return Value{}, false
		}
		return Bool(b), true
	case KindNumber:
		n, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return Value{}, false
		}
		return Number(n), true
	}
	return Value{}, false
}
