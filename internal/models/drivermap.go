package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

// DriverMap is a JSON object keyed by driver id which remembers key order.
// Decoding keeps the order of the document; a repeated key keeps its first
// position and takes the last value.
type DriverMap[V any] struct {
	keys   []string
	values map[string]V
}

func (m *DriverMap[V]) Set(id string, v V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, ok := m.values[id]; !ok {
		m.keys = append(m.keys, id)
	}
	m.values[id] = v
}

func (m DriverMap[V]) Get(id string) (V, bool) {
	v, ok := m.values[id]
	return v, ok
}

func (m DriverMap[V]) Len() int { return len(m.keys) }

// Keys returns the driver ids in order.
func (m DriverMap[V]) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m DriverMap[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Retain returns a copy holding only the given ids, in the original order.
func (m DriverMap[V]) Retain(ids []string) DriverMap[V] {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	ret := DriverMap[V]{}
	for _, k := range m.keys {
		if _, ok := keep[k]; ok {
			ret.Set(k, m.values[k])
		}
	}
	return ret
}

func (m *DriverMap[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	*m = DriverMap[V]{}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("driver map: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("driver map: value of %q: %w", key, err)
		}
		m.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

func (m DriverMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
