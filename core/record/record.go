// Package record provides an attribute-style view over one row of
// column/value pairs. The set of keys is fixed at construction; reading or
// writing any other key is an error.
package record

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"time"
)

// ErrUnknownAttribute is returned when a key was never declared.
var ErrUnknownAttribute = errors.New("unknown attribute")

// Record holds values for a fixed, ordered set of keys.
// Only populated keys carry a value; declared but unset keys read as nil.
type Record struct {
	keys   []string
	index  map[string]int
	values map[string]any
}

// New creates an empty record that accepts the given keys.
func New(keys ...string) *Record {
	r := &Record{
		keys:   append([]string(nil), keys...),
		index:  make(map[string]int, len(keys)),
		values: make(map[string]any, len(keys)),
	}
	for i, k := range r.keys {
		r.index[k] = i
	}
	return r
}

// FromMap creates a record whose keys are the map's keys in sorted order,
// all populated.
func FromMap(m map[string]any) *Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := New(keys...)
	maps.Copy(r.values, m)
	return r
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, error) {
	if _, ok := r.index[key]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, key)
	}
	return r.values[key], nil
}

// Set stores value under key.
func (r *Record) Set(key string, value any) error {
	if _, ok := r.index[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAttribute, key)
	}
	r.values[key] = value
	return nil
}

// Unset clears a populated key.
func (r *Record) Unset(key string) {
	delete(r.values, key)
}

// Has reports whether key is declared.
func (r *Record) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// IsSet reports whether key currently carries a value.
func (r *Record) IsSet(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the declared keys in declaration order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Map returns a copy of the populated values.
func (r *Record) Map() map[string]any {
	return maps.Clone(r.values)
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	c := New(r.keys...)
	maps.Copy(c.values, r.values)
	return c
}

// Equal compares populated values only. Two records with nothing set are
// equal regardless of their declared keys. Times are equal when they
// denote the same instant.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.values) != len(other.values) {
		return false
	}
	for k, v := range r.values {
		ov, ok := other.values[k]
		if !ok || !equalValue(v, ov) {
			return false
		}
	}
	return true
}

// equalValue compares times by instant, everything else deeply.
func equalValue(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
