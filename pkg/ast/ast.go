// Package ast defines the parsed representation of a NOML document. Nodes
// keep their source spans and attached comments so that tooling and the
// serializer can reconstruct the original text. Nodes are immutable once
// parsing completes; resolution builds a separate value tree.
package ast

import (
	"strings"

	"github.com/noml-lang/noml-go/pkg/token"
)

// Document is a parsed source file: the root table node plus the source it
// was parsed from, kept for span lookups and error snippets.
type Document struct {
	Root *Node

	// SourcePath is the file the document was read from, empty for
	// in-memory sources.
	SourcePath string

	// Source is the original text.
	Source string
}

// Comments are the comment lines attached to a node.
type Comments struct {
	// Before holds full-line comments preceding the node.
	Before []string

	// Inline is the trailing comment on the node's own line, if any.
	Inline string

	// After holds comments following the node before the next construct.
	After []string
}

// Empty reports whether no comments are attached.
func (c Comments) Empty() bool {
	return len(c.Before) == 0 && c.Inline == "" && len(c.After) == 0
}

// Node is a value with its source span and comments.
type Node struct {
	Value    Value
	Span     token.Span
	Comments Comments
}

// Value is the closed set of syntactic value forms. Resolution eliminates
// FunctionCall, Native, Interpolation, and Include; the serializer re-emits
// all of them.
type Value interface {
	astValue()
}

// Null is the null literal.
type Null struct{}

// Bool is a boolean literal.
type Bool struct {
	Value bool
}

// Integer is an integer literal. Raw preserves the source spelling,
// including base prefixes and digit separators.
type Integer struct {
	Value int64
	Raw   string
}

// Float is a floating point literal. Raw preserves the source spelling.
type Float struct {
	Value float64
	Raw   string
}

// String is a string literal with its quoting style.
type String struct {
	Value      string
	Style      token.StringStyle
	RawFence   int
	HasEscapes bool
}

// Array is a sequence literal. Multiline and TrailingComma are formatting
// facts only.
type Array struct {
	Elements      []*Node
	Multiline     bool
	TrailingComma bool
}

// TableEntry is one key-value binding in a table.
type TableEntry struct {
	Key   Key
	Value *Node
}

// Table is a set of entries, either a section or an inline {...} literal.
type Table struct {
	Entries []TableEntry
	Inline  bool
}

// FunctionCall is an unresolved env(...) call.
type FunctionCall struct {
	Name string
	Args []*Node
}

// Native is an unresolved @type(...) constructor.
type Native struct {
	TypeName string
	Args     []*Node
}

// Interpolation is an unresolved ${path} reference.
type Interpolation struct {
	Path []string
}

// Include is an unresolved include "path" directive.
type Include struct {
	Path string
}

func (Null) astValue()          {}
func (Bool) astValue()          {}
func (Integer) astValue()       {}
func (Float) astValue()         {}
func (String) astValue()        {}
func (Array) astValue()         {}
func (Table) astValue()         {}
func (FunctionCall) astValue()  {}
func (Native) astValue()        {}
func (Interpolation) astValue() {}
func (Include) astValue()       {}

// EntryIndex returns the position of the entry whose plain segment names
// join to name, or -1. Quoting does not affect the match, so [a] and ["a"]
// address the same entry. Used by the parser to merge repeated table
// headers.
func (t *Table) EntryIndex(name string) int {
	for i, e := range t.Entries {
		if strings.Join(e.Key.Names(), ".") == name {
			return i
		}
	}
	return -1
}

// KeySegment is one component of a possibly dotted key.
type KeySegment struct {
	Name   string
	Quoted bool
	Style  token.StringStyle
}

// Key is an ordered list of segments forming a dotted key.
type Key struct {
	Segments []KeySegment
	Span     token.Span
}

// Simple builds an unquoted single-segment key.
func Simple(name string, span token.Span) Key {
	return Key{Segments: []KeySegment{{Name: name}}, Span: span}
}

// String reconstructs the dotted form, re-quoting quoted segments.
func (k Key) String() string {
	parts := make([]string, len(k.Segments))
	for i, seg := range k.Segments {
		if seg.Quoted {
			quote := `"`
			if seg.Style == token.StyleSingle {
				quote = `'`
			}
			parts[i] = quote + seg.Name + quote
		} else {
			parts[i] = seg.Name
		}
	}
	return strings.Join(parts, ".")
}

// Names returns the plain segment names.
func (k Key) Names() []string {
	out := make([]string, len(k.Segments))
	for i, seg := range k.Segments {
		out[i] = seg.Name
	}
	return out
}

// FindNodeAtOffset returns the innermost node whose span contains the byte
// offset, for editor tooling. Returns nil when the offset is outside the
// document.
func (d *Document) FindNodeAtOffset(offset int) *Node {
	return findAt(d.Root, offset)
}

func findAt(n *Node, offset int) *Node {
	if n == nil || !n.Span.Contains(offset) {
		return nil
	}
	switch v := n.Value.(type) {
	case Table:
		for _, e := range v.Entries {
			if inner := findAt(e.Value, offset); inner != nil {
				return inner
			}
		}
	case Array:
		for _, el := range v.Elements {
			if inner := findAt(el, offset); inner != nil {
				return inner
			}
		}
	case FunctionCall:
		for _, a := range v.Args {
			if inner := findAt(a, offset); inner != nil {
				return inner
			}
		}
	case Native:
		for _, a := range v.Args {
			if inner := findAt(a, offset); inner != nil {
				return inner
			}
		}
	}
	return n
}
