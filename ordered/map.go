// Package ordered provides an insertion-ordered string-keyed map whose JSON
// form keeps the order in which keys were inserted (or decoded).
package ordered

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"iter"

	json "github.com/goccy/go-json"
)

// Map is an insertion-ordered map from string keys to V.
// The zero value is an empty map ready to use.
type Map[V any] struct {
	keys []string
	vals map[string]V
}

// New returns an empty map.
func New[V any]() *Map[V] { return &Map[V]{} }

// Len reports the number of entries.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.vals[key]
	return ok
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Set stores v under key. New keys go to the end; existing keys keep their position.
func (m *Map[V]) Set(key string, v V) {
	if m.vals == nil {
		m.vals = make(map[string]V)
	}
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Delete removes key and reports whether it was present.
func (m *Map[V]) Delete(key string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.vals[key]; !ok {
		return false
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	if len(m.keys) == 0 {
		// keep empty maps identical to the zero value
		m.keys, m.vals = nil, nil
	}
	return true
}

// Rename moves the entry stored under from to key to, keeping its position.
// It returns false when from is missing or to is already taken by another entry.
func (m *Map[V]) Rename(from, to string) bool {
	if m == nil {
		return false
	}
	v, ok := m.vals[from]
	if !ok {
		return false
	}
	if from == to {
		return true
	}
	if _, taken := m.vals[to]; taken {
		return false
	}
	for i, k := range m.keys {
		if k == from {
			m.keys[i] = to
			break
		}
	}
	delete(m.vals, from)
	m.vals[to] = v
	return true
}

// Keys returns a copy of the keys in order.
func (m *Map[V]) Keys() []string {
	if m == nil || len(m.keys) == 0 {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// All iterates over the entries in order.
func (m *Map[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy.
func (m *Map[V]) Clone() *Map[V] {
	out := &Map[V]{}
	for k, v := range m.All() {
		out.Set(k, v)
	}
	return out
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (m *Map[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, fmt.Errorf("ordered: key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping its key order. A repeated key
// keeps its first position and its last value.
func (m *Map[V]) UnmarshalJSON(data []byte) error {
	m.keys, m.vals = nil, nil
	return Walk(data, func(key string, raw []byte) error {
		var v V
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("ordered: key %q: %w", key, err)
		}
		m.Set(key, v)
		return nil
	})
}

// Walk calls fn for every member of the JSON object in data, in document
// order, with the raw bytes of each value.
func Walk(data []byte, fn func(key string, raw []byte) error) error {
	dec := stdjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(stdjson.Delim); !ok || d != '{' {
		return fmt.Errorf("ordered: expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("ordered: expected object key, got %v", tok)
		}
		var raw stdjson.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("ordered: key %q: %w", key, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
