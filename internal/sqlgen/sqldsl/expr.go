package sqldsl

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
)

// Raw is a final SQL fragment. It is never quoted and never bound.
type Raw string

// SQL renders the raw SQL as-is.
func (r Raw) SQL() string {
	return string(r)
}

// Expr marks a string as an SQL expression.
//
// In column and table positions it renders verbatim. Where a value is
// expected (SET, ON CONFLICT DO UPDATE) it goes through the identifier
// quoter instead of being bound, so Expr("excluded.name") renders
// "excluded"."name".
type Expr string

// Const is a value that is bound as a parameter where a column reference
// would normally go, e.g. SELECT @p0.
type Const struct {
	Value any
}

// Alias pairs an identifier with an optional alias (ident AS name).
// A nil Name renders the identifier alone.
type Alias struct {
	Ident any
	Name  any
}

// Tuple is a fixed-order list of values bound as a single parameter.
// IN and NOT IN bind their operand as a Tuple.
type Tuple []any

// Pair is one key/value entry of a Map.
type Pair struct {
	Key   string
	Value any
}

// Map is an insertion-ordered mapping. Use it wherever iteration order of
// a mapping must be preserved in the generated SQL; plain Go maps are
// walked in sorted key order.
type Map []Pair

// Get returns the value stored under key.
func (m Map) Get(key string) (any, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Set replaces the value for key in place, or appends a new pair.
func (m Map) Set(key string, value any) Map {
	for i, p := range m {
		if p.Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, Pair{Key: key, Value: value})
}

// Keys returns the keys in order.
func (m Map) Keys() []string {
	keys := make([]string, len(m))
	for i, p := range m {
		keys[i] = p.Key
	}
	return keys
}

// MarshalJSON encodes the map as a JSON object, keeping key order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AsMap converts a mapping value to an ordered Map.
// Map values are returned unchanged; Go maps keyed by strings are walked
// in sorted key order so that builds are reproducible.
func AsMap(v any) (Map, bool) {
	switch m := v.(type) {
	case Map:
		return m, true
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Map, len(keys))
		for i, k := range keys {
			out[i] = Pair{Key: k, Value: m[k]}
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	out := make(Map, len(keys))
	for i, k := range keys {
		out[i] = Pair{Key: k.String(), Value: rv.MapIndex(k).Interface()}
	}
	return out, true
}

// AsSequence converts a non-string sequence to a slice of its elements.
// Strings and byte slices are scalars, not sequences.
func AsSequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil, string, []byte, Raw, Expr:
		return nil, false
	case []any:
		return s, true
	case Tuple:
		return s, true
	case Map:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// IsSequence reports whether v is a non-string sequence.
func IsSequence(v any) bool {
	_, ok := AsSequence(v)
	return ok
}

// isComposite reports whether v is a mapping or a non-string sequence.
func isComposite(v any) bool {
	if IsSequence(v) {
		return true
	}
	_, ok := AsMap(v)
	return ok
}
