package schema

import "github.com/noml-lang/noml-go/pkg/value"

// Builder assembles a schema fluently.
type Builder struct {
	schema *Schema
}

// NewBuilder starts an empty schema.
func NewBuilder() *Builder {
	return &Builder{schema: New()}
}

func (b *Builder) field(name string, t Type, required bool) *Builder {
	b.schema.Fields[name] = Field{Type: t, Required: required}
	return b
}

// RequireString declares a mandatory string field.
func (b *Builder) RequireString(name string) *Builder {
	return b.field(name, Type{Kind: String}, true)
}

// RequireInteger declares a mandatory integer field.
func (b *Builder) RequireInteger(name string) *Builder {
	return b.field(name, Type{Kind: Integer}, true)
}

// RequireBool declares a mandatory boolean field.
func (b *Builder) RequireBool(name string) *Builder {
	return b.field(name, Type{Kind: Bool}, true)
}

// RequireTable declares a mandatory nested table with its own schema.
func (b *Builder) RequireTable(name string, sub *Schema) *Builder {
	return b.field(name, Type{Kind: Table, Table: sub}, true)
}

// OptionalString declares an optional string field.
func (b *Builder) OptionalString(name string) *Builder {
	return b.field(name, Type{Kind: String}, false)
}

// OptionalInteger declares an optional integer field.
func (b *Builder) OptionalInteger(name string) *Builder {
	return b.field(name, Type{Kind: Integer}, false)
}

// OptionalFloat declares an optional float field.
func (b *Builder) OptionalFloat(name string) *Builder {
	return b.field(name, Type{Kind: Float}, false)
}

// OptionalBool declares an optional boolean field.
func (b *Builder) OptionalBool(name string) *Builder {
	return b.field(name, Type{Kind: Bool}, false)
}

// OptionalArray declares an optional array with an element type.
func (b *Builder) OptionalArray(name string, elem Type) *Builder {
	return b.field(name, Type{Kind: Array, Elem: &elem}, false)
}

// Default sets a default value on an already-declared field.
func (b *Builder) Default(name string, v value.Value) *Builder {
	if f, ok := b.schema.Fields[name]; ok {
		f.Default = v
		b.schema.Fields[name] = f
	}
	return b
}

// Describe attaches a description to an already-declared field.
func (b *Builder) Describe(name, description string) *Builder {
	if f, ok := b.schema.Fields[name]; ok {
		f.Description = description
		b.schema.Fields[name] = f
	}
	return b
}

// AllowAdditional permits keys the schema does not declare.
func (b *Builder) AllowAdditional() *Builder {
	b.schema.AllowAdditional = true
	return b
}

// Build returns the assembled schema.
func (b *Builder) Build() *Schema {
	return b.schema
}
