// Package parser builds the NOML AST from a token stream. The grammar is
// recursive descent with one token of lookahead; the first error aborts
// parsing with a positioned message, there is no resynchronization.
package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/noml-lang/noml-go/pkg/ast"
	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/lexer"
	"github.com/noml-lang/noml-go/pkg/token"
)

// Parse tokenizes and parses source text into a document.
func Parse(source string) (*ast.Document, error) {
	return parse(source, "")
}

// ParseFile reads and parses a file. The path is recorded on the document
// and used as the base for relative includes during resolution.
func ParseFile(path string) (*ast.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewIOError(path, err)
	}
	return parse(string(data), path)
}

func parse(source, path string) (*ast.Document, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &parser{
		tokens: lexer.Significant(tokens),
		source: source,
	}
	root, err := p.parseDocument()
	if err != nil {
		return nil, err
	}
	return &ast.Document{Root: root, SourcePath: path, Source: source}, nil
}

type parser struct {
	tokens []token.Token
	pos    int
	source string

	// pending holds comments consumed while looking for the next construct
	// inside a table body; they belong to whatever follows.
	pending []string
}

func (p *parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *parser) previous() token.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) atEnd() bool {
	return p.peek().Kind == token.EOF
}

func (p *parser) advance() token.Token {
	t := p.peek()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *parser) check(kind token.Kind) bool {
	return p.peek().Kind == kind
}

func (p *parser) match(kind token.Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) consume(kind token.Kind, context string) (token.Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorAtCurrent("expected %s %s, found %s", kind, context, p.peek().Kind)
}

func (p *parser) errorAtCurrent(format string, args ...any) error {
	t := p.peek()
	return errs.NewParseError(
		fmt.Sprintf(format, args...),
		t.Span.StartLine,
		t.Span.StartCol,
		lineAt(p.source, t.Span.Start),
	)
}

func lineAt(src string, pos int) string {
	if pos > len(src) {
		pos = len(src)
	}
	start := strings.LastIndexByte(src[:pos], '\n') + 1
	end := strings.IndexByte(src[pos:], '\n')
	if end < 0 {
		end = len(src)
	} else {
		end += pos
	}
	return src[start:end]
}

// skipNewlines consumes newline tokens and reports whether any were seen.
func (p *parser) skipNewlines() bool {
	skipped := false
	for p.match(token.Newline) {
		skipped = true
	}
	return skipped
}

// collectComments consumes leading comment lines, returning their text.
// Newlines between comments are swallowed.
func (p *parser) collectComments() []string {
	comments := p.pending
	p.pending = nil
	for {
		p.skipNewlines()
		if !p.check(token.Comment) {
			return comments
		}
		comments = append(comments, p.advance().Str)
	}
}

// inlineComment consumes a trailing comment on the current line, if present.
func (p *parser) inlineComment() string {
	if p.check(token.Comment) {
		return p.advance().Str
	}
	return ""
}

func (p *parser) parseDocument() (*ast.Node, error) {
	start := p.peek().Span
	root := &ast.Node{Value: ast.Table{}, Span: start}

	for {
		before := p.collectComments()
		if p.atEnd() {
			attachTrailing(root, before)
			break
		}

		if p.check(token.LeftBracket) {
			if err := p.parseTableHeader(root, before); err != nil {
				return nil, err
			}
			continue
		}

		entry, err := p.parseKeyValue(before)
		if err != nil {
			return nil, err
		}
		appendEntry(root, entry)
	}

	root.Span = start.Merge(p.previous().Span)
	return root, nil
}

// attachTrailing hangs comments with no following construct off the last
// entry of the root table.
func attachTrailing(root *ast.Node, comments []string) {
	if len(comments) == 0 {
		return
	}
	tbl := root.Value.(ast.Table)
	if len(tbl.Entries) == 0 {
		root.Comments.After = append(root.Comments.After, comments...)
		return
	}
	last := tbl.Entries[len(tbl.Entries)-1].Value
	last.Comments.After = append(last.Comments.After, comments...)
}

// appendEntry adds a binding to a table node. Dotted keys stay dotted in
// the AST; the resolver expands them into nested tables.
func appendEntry(n *ast.Node, entry ast.TableEntry) {
	tbl := n.Value.(ast.Table)
	tbl.Entries = append(tbl.Entries, entry)
	n.Value = tbl
}

// parseKeyValue parses one `key = value` binding with optional trailing
// comment.
func (p *parser) parseKeyValue(before []string) (ast.TableEntry, error) {
	key, err := p.parseKey()
	if err != nil {
		return ast.TableEntry{}, err
	}
	if _, err := p.consume(token.Equals, "after key"); err != nil {
		return ast.TableEntry{}, err
	}
	node, err := p.parseValue()
	if err != nil {
		return ast.TableEntry{}, err
	}
	node.Comments.Before = before
	node.Comments.Inline = p.inlineComment()
	return ast.TableEntry{Key: key, Value: node}, nil
}

// parseKey parses a dotted key of identifier or quoted-string segments.
func (p *parser) parseKey() (ast.Key, error) {
	seg, span, err := p.parseKeySegment()
	if err != nil {
		return ast.Key{}, err
	}
	key := ast.Key{Segments: []ast.KeySegment{seg}, Span: span}
	for p.match(token.Dot) {
		seg, span, err = p.parseKeySegment()
		if err != nil {
			return ast.Key{}, err
		}
		key.Segments = append(key.Segments, seg)
		key.Span = key.Span.Merge(span)
	}
	return key, nil
}

func (p *parser) parseKeySegment() (ast.KeySegment, token.Span, error) {
	switch t := p.peek(); t.Kind {
	case token.Identifier:
		p.advance()
		return ast.KeySegment{Name: t.Str}, t.Span, nil
	case token.String:
		p.advance()
		return ast.KeySegment{Name: t.Str, Quoted: true, Style: t.Style}, t.Span, nil
	// Keywords are valid as bare key names.
	case token.Env, token.Include:
		p.advance()
		return ast.KeySegment{Name: t.Raw}, t.Span, nil
	default:
		return ast.KeySegment{}, token.Span{}, p.errorAtCurrent("expected key, found %s", t.Kind)
	}
}
