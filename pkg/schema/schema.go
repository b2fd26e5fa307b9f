// Package schema validates resolved value trees against a declared shape.
package schema

import (
	"fmt"
	"sort"

	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/value"
)

// TypeKind enumerates the declarable field types.
type TypeKind int

const (
	Any TypeKind = iota
	String
	Integer
	Float
	Bool
	Binary
	Size
	Duration
	Array
	Table
	Union
)

func (k TypeKind) String() string {
	switch k {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Bool:
		return "boolean"
	case Binary:
		return "binary"
	case Size:
		return "size"
	case Duration:
		return "duration"
	case Array:
		return "array"
	case Table:
		return "table"
	case Union:
		return "union"
	default:
		return "any"
	}
}

// Type describes a field type. Elem is set for arrays, Table for nested
// table schemas, Alternatives for unions.
type Type struct {
	Kind         TypeKind
	Elem         *Type
	Table        *Schema
	Alternatives []Type
}

// Field describes one schema entry.
type Field struct {
	Type        Type
	Required    bool
	Description string
	Default     value.Value
}

// Schema is a set of named fields.
type Schema struct {
	Fields          map[string]Field
	AllowAdditional bool
}

// New returns an empty schema that rejects unknown keys.
func New() *Schema {
	return &Schema{Fields: make(map[string]Field)}
}

// Validate checks v against the schema. The first violation is returned as
// a schema error carrying the dotted path of the offending key.
func (s *Schema) Validate(v value.Value) error {
	return s.validateAt(v, "")
}

func (s *Schema) validateAt(v value.Value, path string) error {
	tbl, ok := v.(*value.Table)
	if !ok {
		return errs.NewSchemaError(path, fmt.Sprintf("expected table, found %s", v.Kind()), "table")
	}

	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := s.Fields[name]
		fieldPath := joinPath(path, name)
		got, present := tbl.Get(name)
		if !present {
			if field.Required {
				return errs.NewSchemaError(fieldPath, "required field is missing", field.Type.Kind.String())
			}
			continue
		}
		if err := field.Type.check(got, fieldPath); err != nil {
			return err
		}
	}

	if !s.AllowAdditional {
		for _, key := range tbl.Keys() {
			if _, declared := s.Fields[key]; !declared {
				return errs.NewSchemaError(joinPath(path, key), "unexpected field", "")
			}
		}
	}
	return nil
}

func (t Type) check(v value.Value, path string) error {
	switch t.Kind {
	case Any:
		return nil
	case String:
		if v.Kind() == value.KindString {
			return nil
		}
	case Integer:
		if v.Kind() == value.KindInteger || v.Kind() == value.KindSize {
			return nil
		}
	case Float:
		if v.Kind() == value.KindFloat || v.Kind() == value.KindInteger || v.Kind() == value.KindDuration {
			return nil
		}
	case Bool:
		if v.Kind() == value.KindBool {
			return nil
		}
	case Binary:
		if v.Kind() == value.KindBinary {
			return nil
		}
	case Size:
		if v.Kind() == value.KindSize || v.Kind() == value.KindInteger {
			return nil
		}
	case Duration:
		if v.Kind() == value.KindDuration || v.Kind() == value.KindFloat {
			return nil
		}
	case Array:
		arr, ok := v.(value.Array)
		if !ok {
			break
		}
		if t.Elem == nil {
			return nil
		}
		for i, el := range arr {
			if err := t.Elem.check(el, fmt.Sprintf("%s.%d", path, i)); err != nil {
				return err
			}
		}
		return nil
	case Table:
		if t.Table == nil {
			if v.Kind() == value.KindTable {
				return nil
			}
			break
		}
		return t.Table.validateAt(v, path)
	case Union:
		for _, alt := range t.Alternatives {
			if alt.check(v, path) == nil {
				return nil
			}
		}
	}
	return errs.NewSchemaError(path,
		fmt.Sprintf("expected %s, found %s", t.Kind, v.Kind()),
		t.Kind.String())
}

// ApplyDefaults fills absent fields that declare defaults. Nested table
// schemas apply recursively when the table is present.
func (s *Schema) ApplyDefaults(tbl *value.Table) {
	for name, field := range s.Fields {
		got, present := tbl.Get(name)
		if !present {
			if field.Default != nil {
				tbl.Set(name, field.Default)
			}
			continue
		}
		if field.Type.Kind == Table && field.Type.Table != nil {
			if sub, ok := got.(*value.Table); ok {
				field.Type.Table.ApplyDefaults(sub)
			}
		}
	}
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
