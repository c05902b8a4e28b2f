// Package properties holds the validated key/value properties of an EO3
// dataset.
package properties

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Warner receives recoverable problems: overridden values, unknown keys,
// and rejections from Warn-policy normalisers.
type Warner func(format string, args ...interface{})

func LogWarner(format string, args ...interface{}) {
	log.Printf("warning: "+format, args...)
}

type InvalidPropertyError struct {
	Key    string
	Value  interface{}
	Reason string
}

func (e *InvalidPropertyError) Error() string {
	return fmt.Sprintf("invalid property %q (value %v): %s", e.Key, e.Value, e.Reason)
}

// Store is the property set of one dataset. Keys use the STAC style
// "namespace:key" names.
type Store struct {
	props map[string]interface{}
	known map[string]Field
	Warn  Warner
}

func New() *Store {
	return NewWithFields(KnownFields(), LogWarner)
}

func NewWithFields(known map[string]Field, warn Warner) *Store {
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}
	return &Store{
		props: make(map[string]interface{}),
		known: known,
		Warn:  warn,
	}
}

// FromMap loads properties as they were stored, without normalising or
// warning. Used when reading existing documents.
func FromMap(m map[string]interface{}) *Store {
	s := New()
	for k, v := range m {
		s.props[k] = v
	}
	return s
}

// Normalise applies the registered normaliser of key without storing
// anything.
func (s *Store) Normalise(key string, value interface{}) (interface{}, error) {
	field, known := s.known[key]
	if !known || field.Normalise == nil || value == nil {
		return value, nil
	}
	out := field.Normalise(value)
	if !out.Rejected() {
		return out.Value, nil
	}
	if field.Policy == Warn {
		s.Warn("property %q: %s", key, out.Reason)
		return value, nil
	}
	return nil, &InvalidPropertyError{Key: key, Value: value, Reason: out.Reason}
}

// Set normalises and stores a value. A nil value is stored as-is.
func (s *Store) Set(key string, value interface{}) error {
	if _, known := s.known[key]; !known {
		s.Warn("unknown property %q: expected one of the known EO3 properties or a custom namespace", key)
	}

	v, err := s.Normalise(key, value)
	if err != nil {
		return err
	}

	if old, exists := s.props[key]; exists {
		s.Warn("overriding property %q (from %v to %v)", key, old, v)
	}
	s.props[key] = v

	// Sentinel ids carry the datatake start time.
	if key == "sentinel:sentinel_tile_id" || key == "sentinel:datastrip_id" {
		if t, ok := datatakeStart(s.String(key)); ok && !s.Has("sentinel:datatake_start_datetime") {
			s.props["sentinel:datatake_start_datetime"] = t
		}
	}
	return nil
}

func (s *Store) Get(key string) (interface{}, bool) {
	v, ok := s.props[key]
	return v, ok
}

func (s *Store) Has(key string) bool {
	_, ok := s.props[key]
	return ok
}

func (s *Store) Delete(key string) {
	delete(s.props, key)
}

func (s *Store) Len() int {
	return len(s.props)
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.props))
	for k := range s.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnown reports whether key is in the store's known property table.
func (s *Store) IsKnown(key string) bool {
	_, ok := s.known[key]
	return ok
}

// Map returns a shallow copy of the stored properties.
func (s *Store) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(s.props))
	for k, v := range s.props {
		out[k] = v
	}
	return out
}

func (s *Store) Clone() *Store {
	c := NewWithFields(s.known, s.Warn)
	for k, v := range s.props {
		c.props[k] = v
	}
	return c
}

// Nested groups "a:b" keys into sub-maps, recursively: {"a:b": 1}
// becomes {"a": {"b": 1}}.
func (s *Store) Nested(separator string) (map[string]interface{}, error) {
	return nest(s.props, separator)
}

func nest(m map[string]interface{}, sep string) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	sections := make(map[string]map[string]interface{})
	for k, v := range m {
		i := strings.Index(k, sep)
		if i < 0 {
			out[k] = v
			continue
		}
		section, rest := k[:i], k[i+len(sep):]
		if sections[section] == nil {
			sections[section] = make(map[string]interface{})
		}
		sections[section][rest] = v
	}
	for section, sub := range sections {
		if _, clash := out[section]; clash {
			return nil, fmt.Errorf("property %q is both a value and a namespace", section)
		}
		nested, err := nest(sub, sep)
		if err != nil {
			return nil, err
		}
		out[section] = nested
	}
	return out, nil
}
