package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const NameAttribute = "name"

var errNotObject = errors.New("attributes must be a JSON object")

// Summary is one polling cycle's topology and state snapshot.
type Summary struct {
	Network Attributes   `json:"network"`
	Devices []Attributes `json:"devices"`
}

// NetworkName is the root identifier of the topology.
func (s *Summary) NetworkName() string {
	return s.Network.Name()
}

type Attribute struct {
	Key   string
	Value Value
}

// Attributes is an attribute mapping that keeps the order the keys were
// reported in.
type Attributes []Attribute

func (a Attributes) Get(key string) (Value, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return Value{}, false
}

// Name returns the string "name" attribute, or an empty string.
func (a Attributes) Name() string {
	v, ok := a.Get(NameAttribute)
	if !ok {
		return ""
	}
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.String()
}

func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(attr.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object token by token so that document order
// survives. Duplicate keys keep their first position and last value.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}

	attrs := Attributes{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		val, err := ParseValue(raw)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		if i, seen := index[key]; seen {
			attrs[i].Value = val
			continue
		}
		index[key] = len(attrs)
		attrs = append(attrs, Attribute{Key: key, Value: val})
	}
	*a = attrs
	return nil
}
