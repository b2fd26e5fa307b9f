package parser

import (
	"fmt"

	"github.com/noml-lang/noml-go/pkg/ast"
	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/token"
)

// parseTableHeader parses `[key]` or `[[key]]` and its body, then inserts
// the resulting table at the header's dotted path under root.
func (p *parser) parseTableHeader(root *ast.Node, before []string) error {
	headerSpan := p.peek().Span
	p.advance() // '['
	isArray := p.match(token.LeftBracket)

	key, err := p.parseKey()
	if err != nil {
		return err
	}
	if _, err := p.consume(token.RightBracket, "to close table header"); err != nil {
		return err
	}
	if isArray {
		if _, err := p.consume(token.RightBracket, "to close array-of-tables header"); err != nil {
			return err
		}
	}
	inline := p.inlineComment()

	// Body: bindings until the next header or end of input.
	var body []ast.TableEntry
	for {
		comments := p.collectComments()
		if p.atEnd() || p.check(token.LeftBracket) {
			p.pending = comments
			break
		}
		entry, err := p.parseKeyValue(comments)
		if err != nil {
			return err
		}
		body = append(body, entry)
	}

	node := &ast.Node{
		Value: ast.Table{Entries: body},
		Span:  headerSpan.Merge(p.previous().Span),
		Comments: ast.Comments{
			Before: before,
			Inline: inline,
		},
	}
	return p.insertHeader(root, key, node, isArray)
}

// insertHeader places a parsed section at its dotted path, creating
// intermediate tables as needed. Repeated `[[key]]` headers accumulate into
// an array; a second occurrence over a plain table converts the existing
// entry into a two-element array by index replacement.
func (p *parser) insertHeader(root *ast.Node, key ast.Key, node *ast.Node, isArray bool) error {
	current := root
	names := key.Names()

	for i, name := range names[:len(names)-1] {
		tbl := current.Value.(ast.Table)
		idx := tbl.EntryIndex(name)
		if idx < 0 {
			sub := &ast.Node{Value: ast.Table{}, Span: key.Span}
			tbl.Entries = append(tbl.Entries, ast.TableEntry{
				Key:   ast.Simple(name, key.Span),
				Value: sub,
			})
			current.Value = tbl
			current = sub
			continue
		}
		entryNode := tbl.Entries[idx].Value
		switch v := entryNode.Value.(type) {
		case ast.Table:
			current = entryNode
		case ast.Array:
			// Descend into the latest element of an array of tables.
			if len(v.Elements) == 0 {
				return p.headerError(key, names[i], "array has no elements")
			}
			last := v.Elements[len(v.Elements)-1]
			if _, ok := last.Value.(ast.Table); !ok {
				return p.headerError(key, names[i], "array element is not a table")
			}
			current = last
		default:
			return p.headerError(key, names[i], "key is already bound to a non-table value")
		}
	}

	leaf := names[len(names)-1]
	leafKey := ast.Key{Segments: key.Segments[len(key.Segments)-1:], Span: key.Span}
	tbl := current.Value.(ast.Table)
	idx := tbl.EntryIndex(leaf)

	if isArray {
		if idx < 0 {
			arr := &ast.Node{
				Value:    ast.Array{Elements: []*ast.Node{node}, Multiline: true},
				Span:     node.Span,
				Comments: node.Comments,
			}
			tbl.Entries = append(tbl.Entries, ast.TableEntry{Key: leafKey, Value: arr})
			current.Value = tbl
			return nil
		}
		existing := tbl.Entries[idx].Value
		switch v := existing.Value.(type) {
		case ast.Array:
			v.Elements = append(v.Elements, node)
			existing.Value = v
			existing.Span = existing.Span.Merge(node.Span)
		case ast.Table:
			tbl.Entries[idx].Value = &ast.Node{
				Value: ast.Array{Elements: []*ast.Node{existing, node}, Multiline: true},
				Span:  existing.Span.Merge(node.Span),
			}
			current.Value = tbl
		default:
			return p.headerError(key, leaf, "key is already bound to a non-table value")
		}
		return nil
	}

	if idx < 0 {
		tbl.Entries = append(tbl.Entries, ast.TableEntry{Key: leafKey, Value: node})
		current.Value = tbl
		return nil
	}

	// A repeated plain header reopens the existing table.
	existing := tbl.Entries[idx].Value
	existingTbl, ok := existing.Value.(ast.Table)
	if !ok {
		return p.headerError(key, leaf, "key is already bound to a non-table value")
	}
	newTbl := node.Value.(ast.Table)
	existingTbl.Entries = append(existingTbl.Entries, newTbl.Entries...)
	existing.Value = existingTbl
	existing.Span = existing.Span.Merge(node.Span)
	return nil
}

func (p *parser) headerError(key ast.Key, segment, reason string) error {
	return errs.NewParseError(
		fmt.Sprintf("cannot define table %q: %s (segment %q)", key.String(), reason, segment),
		key.Span.StartLine,
		key.Span.StartCol,
		lineAt(p.source, key.Span.Start),
	)
}
