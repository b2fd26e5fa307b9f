// Package value defines the fully resolved NOML value tree. A resolved tree
// contains only literal data: no interpolations, includes, environment
// lookups, or unexpanded typed literals survive resolution.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the concrete type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindSize
	KindDuration
	KindBinary
	KindArray
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSize:
		return "size"
	case KindDuration:
		return "duration"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// Value is the closed set of resolved NOML values. Every consumer switches
// exhaustively over the concrete types below.
type Value interface {
	Kind() Kind
	fmt.Stringer
}

// Null is the absence of a value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Integer is a 64-bit signed integer.
type Integer int64

// Float is a 64-bit floating point number.
type Float float64

// String is a text value.
type String string

// Size is a byte count produced by the @size typed literal.
type Size int64

// Duration is a span in seconds produced by the @duration typed literal.
type Duration float64

// Binary is raw bytes.
type Binary []byte

// Array is an ordered sequence of values.
type Array []Value

func (Null) Kind() Kind     { return KindNull }
func (Bool) Kind() Kind     { return KindBool }
func (Integer) Kind() Kind  { return KindInteger }
func (Float) Kind() Kind    { return KindFloat }
func (String) Kind() Kind   { return KindString }
func (Size) Kind() Kind     { return KindSize }
func (Duration) Kind() Kind { return KindDuration }
func (Binary) Kind() Kind   { return KindBinary }
func (Array) Kind() Kind    { return KindArray }
func (*Table) Kind() Kind   { return KindTable }

func (Null) String() string       { return "null" }
func (v Bool) String() string     { return strconv.FormatBool(bool(v)) }
func (v Integer) String() string  { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string    { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v String) String() string   { return string(v) }
func (v Size) String() string     { return FormatSize(int64(v)) }
func (v Duration) String() string { return FormatDuration(float64(v)) }
func (v Binary) String() string   { return fmt.Sprintf("<%d bytes>", len(v)) }

func (v Array) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = displayQuoted(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Table is an insertion-ordered map of string keys to values.
type Table struct {
	keys    []string
	entries map[string]Value
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]Value)}
}

// Set binds key to v, appending to the key order on first insertion.
func (t *Table) Set(key string, v Value) {
	if t.entries == nil {
		t.entries = make(map[string]Value)
	}
	if _, exists := t.entries[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.entries[key] = v
}

// Get returns the value bound to key.
func (t *Table) Get(key string) (Value, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Delete removes key, preserving the order of the remaining keys.
func (t *Table) Delete(key string) (Value, bool) {
	v, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	delete(t.entries, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.keys) }

// Keys returns the keys in insertion order. The slice is shared; callers
// must not mutate it.
func (t *Table) Keys() []string { return t.keys }

// Range calls fn for each entry in insertion order until fn returns false.
func (t *Table) Range(fn func(key string, v Value) bool) {
	for _, k := range t.keys {
		if !fn(k, t.entries[k]) {
			return
		}
	}
}

func (t *Table) String() string {
	parts := make([]string, 0, len(t.keys))
	for _, k := range t.keys {
		parts = append(parts, fmt.Sprintf("%s = %s", k, displayQuoted(t.entries[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// displayQuoted renders nested strings with quotes so containers are
// unambiguous; scalars use their plain rendering.
func displayQuoted(v Value) string {
	if s, ok := v.(String); ok {
		return strconv.Quote(string(s))
	}
	return v.String()
}

// FormatSize renders a byte count with the largest exact binary unit.
func FormatSize(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	f := float64(bytes)
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d%s", int64(f), units[i])
	}
	return fmt.Sprintf("%.2f%s", f, units[i])
}

// FormatDuration renders seconds with a natural unit.
func FormatDuration(seconds float64) string {
	switch {
	case seconds >= 86400:
		return fmt.Sprintf("%gd", seconds/86400)
	case seconds >= 3600:
		return fmt.Sprintf("%gh", seconds/3600)
	case seconds >= 60:
		return fmt.Sprintf("%gm", seconds/60)
	case seconds >= 1:
		return fmt.Sprintf("%gs", seconds)
	case seconds >= 0.001:
		return fmt.Sprintf("%gms", seconds*1000)
	default:
		return fmt.Sprintf("%gns", seconds*1e9)
	}
}
