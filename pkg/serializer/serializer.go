// Package serializer re-emits a parsed document as NOML text. It works on
// the AST, not the resolved value tree, so comments, quoting styles, raw
// numeric spellings, and unresolved constructs like env(...) and ${path}
// survive the round trip.
package serializer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noml-lang/noml-go/pkg/ast"
	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/token"
)

// Options controls formatting details that are not recorded in the AST.
type Options struct {
	// Indent is used for multiline array elements. Defaults to four spaces.
	Indent string

	// LineEnding terminates every line. Defaults to "\n".
	LineEnding string
}

// Serialize renders the document with default options.
func Serialize(doc *ast.Document) (string, error) {
	return SerializeWith(doc, Options{})
}

// SerializeWith renders the document with explicit options.
func SerializeWith(doc *ast.Document, opts Options) (string, error) {
	if doc == nil || doc.Root == nil {
		return "", errs.NewInternalError("serialize called with empty document", nil)
	}
	if opts.Indent == "" {
		opts.Indent = "    "
	}
	if opts.LineEnding == "" {
		opts.LineEnding = "\n"
	}
	root, ok := doc.Root.Value.(ast.Table)
	if !ok {
		return "", errs.NewInternalError("document root is not a table", nil)
	}
	s := &serializer{opts: opts}
	s.writeTableBody(root, nil)
	s.writeComments(doc.Root.Comments.After)
	return s.b.String(), nil
}

type serializer struct {
	b    strings.Builder
	opts Options
}

func (s *serializer) newline() {
	s.b.WriteString(s.opts.LineEnding)
}

func (s *serializer) writeComments(comments []string) {
	for _, c := range comments {
		s.b.WriteString("# ")
		s.b.WriteString(c)
		s.newline()
	}
}

// writeTableBody emits a section: plain bindings first as they appear, with
// nested sections re-emitted as dotted headers under the given path.
func (s *serializer) writeTableBody(tbl ast.Table, path []string) {
	for _, e := range tbl.Entries {
		s.writeComments(e.Value.Comments.Before)

		switch v := e.Value.Value.(type) {
		case ast.Table:
			if !v.Inline {
				s.writeHeader(e, v, path, false)
				continue
			}
		case ast.Array:
			if isArrayOfTables(v) {
				s.writeArrayOfTables(e, v, path)
				continue
			}
		}

		s.b.WriteString(e.Key.String())
		s.b.WriteString(" = ")
		s.writeValue(e.Value, 0)
		s.writeInline(e.Value.Comments.Inline)
		s.newline()
		s.writeComments(e.Value.Comments.After)
	}
}

func (s *serializer) writeInline(comment string) {
	if comment != "" {
		s.b.WriteString(" # ")
		s.b.WriteString(comment)
	}
}

func (s *serializer) writeHeader(e ast.TableEntry, tbl ast.Table, path []string, array bool) {
	full := append(append([]string{}, path...), e.Key.String())
	name := strings.Join(full, ".")
	if array {
		s.b.WriteString("[[" + name + "]]")
	} else {
		s.b.WriteString("[" + name + "]")
	}
	s.writeInline(e.Value.Comments.Inline)
	s.newline()
	s.writeTableBody(tbl, full)
	s.newline()
}

func (s *serializer) writeArrayOfTables(e ast.TableEntry, arr ast.Array, path []string) {
	for _, el := range arr.Elements {
		s.writeComments(el.Comments.Before)
		s.writeHeader(e, el.Value.(ast.Table), path, true)
	}
}

// isArrayOfTables reports whether an array came from repeated [[key]]
// headers: multiline with exclusively non-inline table elements.
func isArrayOfTables(arr ast.Array) bool {
	if !arr.Multiline || len(arr.Elements) == 0 {
		return false
	}
	for _, el := range arr.Elements {
		tbl, ok := el.Value.(ast.Table)
		if !ok || tbl.Inline {
			return false
		}
	}
	return true
}

func (s *serializer) writeValue(n *ast.Node, depth int) {
	switch v := n.Value.(type) {
	case ast.Null:
		s.b.WriteString("null")
	case ast.Bool:
		s.b.WriteString(strconv.FormatBool(v.Value))
	case ast.Integer:
		s.b.WriteString(rawOr(v.Raw, strconv.FormatInt(v.Value, 10)))
	case ast.Float:
		s.b.WriteString(rawOr(v.Raw, strconv.FormatFloat(v.Value, 'g', -1, 64)))
	case ast.String:
		s.writeString(v)
	case ast.Array:
		s.writeArray(v, depth)
	case ast.Table:
		s.writeInlineTable(v, depth)
	case ast.FunctionCall:
		s.b.WriteString(v.Name + "(")
		s.writeArgs(v.Args, depth)
		s.b.WriteString(")")
	case ast.Native:
		s.b.WriteString("@" + v.TypeName + "(")
		s.writeArgs(v.Args, depth)
		s.b.WriteString(")")
	case ast.Interpolation:
		s.b.WriteString("${" + strings.Join(v.Path, ".") + "}")
	case ast.Include:
		fmt.Fprintf(&s.b, "include %q", v.Path)
	}
}

func rawOr(raw, fallback string) string {
	if raw != "" {
		return raw
	}
	return fallback
}

func (s *serializer) writeArgs(args []*ast.Node, depth int) {
	for i, a := range args {
		if i > 0 {
			s.b.WriteString(", ")
		}
		s.writeValue(a, depth)
	}
}

func (s *serializer) writeArray(arr ast.Array, depth int) {
	if !arr.Multiline {
		s.b.WriteString("[")
		for i, el := range arr.Elements {
			if i > 0 {
				s.b.WriteString(", ")
			}
			s.writeValue(el, depth)
		}
		if arr.TrailingComma && len(arr.Elements) > 0 {
			s.b.WriteString(",")
		}
		s.b.WriteString("]")
		return
	}

	inner := strings.Repeat(s.opts.Indent, depth+1)
	s.b.WriteString("[")
	s.newline()
	for _, el := range arr.Elements {
		s.b.WriteString(inner)
		s.writeValue(el, depth+1)
		s.b.WriteString(",")
		s.newline()
	}
	s.b.WriteString(strings.Repeat(s.opts.Indent, depth))
	s.b.WriteString("]")
}

func (s *serializer) writeInlineTable(tbl ast.Table, depth int) {
	s.b.WriteString("{ ")
	for i, e := range tbl.Entries {
		if i > 0 {
			s.b.WriteString(", ")
		}
		s.b.WriteString(e.Key.String())
		s.b.WriteString(" = ")
		s.writeValue(e.Value, depth)
	}
	s.b.WriteString(" }")
}

func (s *serializer) writeString(v ast.String) {
	switch v.Style {
	case token.StyleSingle:
		s.b.WriteString("'" + escapeString(v.Value, '\'') + "'")
	case token.StyleTripleDouble:
		s.b.WriteString(`"""` + v.Value + `"""`)
	case token.StyleTripleSingle:
		s.b.WriteString("'''" + v.Value + "'''")
	case token.StyleRaw:
		fence := strings.Repeat("#", v.RawFence)
		s.b.WriteString("r" + fence + `"` + v.Value + `"` + fence)
	default:
		s.b.WriteString(`"` + escapeString(v.Value, '"') + `"`)
	}
}

// escapeString re-encodes the control characters the lexer decodes.
func escapeString(v string, quote rune) string {
	var b strings.Builder
	for _, r := range v {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		case quote:
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u{%x}`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
