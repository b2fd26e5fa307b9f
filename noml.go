// Package noml parses and resolves NOML configuration documents. NOML is a
// TOML-like language with environment lookups, file inclusion, string
// interpolation, and typed literals such as @size and @duration.
//
// The pipeline has three stages: the lexer turns source text into tokens,
// the parser builds a source-faithful AST, and the resolver eliminates all
// dynamic constructs into a plain value tree. Higher-level access lives in
// pkg/config; schema validation in pkg/schema; re-emitting documents in
// pkg/serializer.
package noml

import (
	"context"

	"github.com/noml-lang/noml-go/pkg/ast"
	"github.com/noml-lang/noml-go/pkg/parser"
	"github.com/noml-lang/noml-go/pkg/resolver"
	"github.com/noml-lang/noml-go/pkg/value"
)

// Version is the library version.
const Version = "0.9.0"

// Parse parses source text into a document without resolving it.
func Parse(source string) (*ast.Document, error) {
	return parser.Parse(source)
}

// ParseFile reads and parses a file without resolving it.
func ParseFile(path string) (*ast.Document, error) {
	return parser.ParseFile(path)
}

// Validate checks that source text is syntactically valid NOML.
func Validate(source string) error {
	_, err := parser.Parse(source)
	return err
}

// Resolve parses and resolves source text with default options, returning
// the final value tree.
func Resolve(ctx context.Context, source string) (value.Value, error) {
	doc, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return resolver.New(resolver.Options{}).Resolve(ctx, doc)
}

// ResolveFile parses and resolves a file with default options. Relative
// includes resolve against the file's directory.
func ResolveFile(ctx context.Context, path string) (value.Value, error) {
	doc, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return resolver.New(resolver.Options{}).Resolve(ctx, doc)
}
