package parser

import (
	"strconv"
	"strings"

	"github.com/noml-lang/noml-go/pkg/ast"
	"github.com/noml-lang/noml-go/pkg/token"
)

// parseValue dispatches on the next token to the matching value form.
func (p *parser) parseValue() (*ast.Node, error) {
	switch t := p.peek(); t.Kind {
	case token.String:
		p.advance()
		return &ast.Node{
			Value: ast.String{
				Value:      t.Str,
				Style:      t.Style,
				RawFence:   t.RawFence,
				HasEscapes: t.Style != token.StyleRaw && strings.ContainsRune(t.Raw, '\\'),
			},
			Span: t.Span,
		}, nil

	case token.Integer:
		p.advance()
		return &ast.Node{Value: ast.Integer{Value: t.Int, Raw: t.Raw}, Span: t.Span}, nil

	case token.Float:
		p.advance()
		return &ast.Node{Value: ast.Float{Value: t.Float, Raw: t.Raw}, Span: t.Span}, nil

	case token.Bool:
		p.advance()
		return &ast.Node{Value: ast.Bool{Value: t.Bool}, Span: t.Span}, nil

	case token.Null:
		p.advance()
		return &ast.Node{Value: ast.Null{}, Span: t.Span}, nil

	case token.LeftBracket:
		return p.parseArray()

	case token.LeftBrace:
		return p.parseInlineTable()

	case token.Env:
		return p.parseEnvCall()

	case token.At:
		return p.parseNative()

	case token.InterpolationStart:
		return p.parseInterpolation()

	case token.Include:
		return p.parseInclude()

	default:
		return nil, p.errorAtCurrent(
			"expected a value (string, number, boolean, null, array, table, env(), @type(), ${...}, or include), found %s",
			t.Kind)
	}
}

// parseArray parses `[v, v, ...]`. A newline anywhere inside marks the
// array multiline; a trailing comma is recorded but adds no element.
func (p *parser) parseArray() (*ast.Node, error) {
	start := p.advance().Span // '['
	var elements []*ast.Node
	multiline := false
	trailing := false

	for {
		if p.skipArrayTrivia() {
			multiline = true
		}
		if p.check(token.RightBracket) {
			break
		}
		el, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)

		if p.skipArrayTrivia() {
			multiline = true
		}
		if !p.match(token.Comma) {
			break
		}
		if p.skipArrayTrivia() {
			multiline = true
		}
		if p.check(token.RightBracket) {
			trailing = true
			break
		}
	}

	end, err := p.consume(token.RightBracket, "to close array")
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Value: ast.Array{Elements: elements, Multiline: multiline, TrailingComma: trailing},
		Span:  start.Merge(end.Span),
	}, nil
}

// skipArrayTrivia consumes newlines and comments inside bracketed
// constructs, reporting whether a newline was crossed.
func (p *parser) skipArrayTrivia() bool {
	crossed := false
	for {
		switch p.peek().Kind {
		case token.Newline:
			crossed = true
			p.advance()
		case token.Comment:
			p.advance()
		default:
			return crossed
		}
	}
}

// parseInlineTable parses `{ k = v, ... }` with an optional trailing comma.
func (p *parser) parseInlineTable() (*ast.Node, error) {
	start := p.advance().Span // '{'
	var entries []ast.TableEntry

	for {
		p.skipArrayTrivia()
		if p.check(token.RightBrace) {
			break
		}
		entry, err := p.parseKeyValue(nil)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)

		p.skipArrayTrivia()
		if !p.match(token.Comma) {
			break
		}
	}

	end, err := p.consume(token.RightBrace, "to close inline table")
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Value: ast.Table{Entries: entries, Inline: true},
		Span:  start.Merge(end.Span),
	}, nil
}

// parseEnvCall parses `env(name[, default])`. The call stays unresolved;
// the resolver performs the lookup.
func (p *parser) parseEnvCall() (*ast.Node, error) {
	start := p.advance().Span // 'env'
	args, end, err := p.parseArgList("env()")
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Value: ast.FunctionCall{Name: "env", Args: args},
		Span:  start.Merge(end),
	}, nil
}

// parseNative parses `@type(args...)`. The type name is not validated here;
// the resolver's registry decides whether it exists.
func (p *parser) parseNative() (*ast.Node, error) {
	start := p.advance().Span // '@'
	name, err := p.consume(token.Identifier, "after '@'")
	if err != nil {
		return nil, err
	}
	args, end, err := p.parseArgList("@" + name.Str + "()")
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Value: ast.Native{TypeName: name.Str, Args: args},
		Span:  start.Merge(end),
	}, nil
}

func (p *parser) parseArgList(context string) ([]*ast.Node, token.Span, error) {
	if _, err := p.consume(token.LeftParen, "to open "+context); err != nil {
		return nil, token.Span{}, err
	}
	p.skipArrayTrivia()
	var args []*ast.Node
	for !p.check(token.RightParen) {
		arg, err := p.parseValue()
		if err != nil {
			return nil, token.Span{}, err
		}
		args = append(args, arg)
		p.skipArrayTrivia()
		if !p.match(token.Comma) {
			break
		}
		p.skipArrayTrivia()
	}
	end, err := p.consume(token.RightParen, "to close "+context)
	if err != nil {
		return nil, token.Span{}, err
	}
	return args, end.Span, nil
}

// parseInterpolation parses `${path}` where path is an identifier followed
// by dot-separated identifier or integer segments.
func (p *parser) parseInterpolation() (*ast.Node, error) {
	start := p.advance().Span // '${'
	first, err := p.consume(token.Identifier, "in interpolation path")
	if err != nil {
		return nil, err
	}
	path := []string{first.Str}
	for p.match(token.Dot) {
		switch t := p.peek(); t.Kind {
		case token.Identifier:
			p.advance()
			path = append(path, t.Str)
		case token.Integer:
			p.advance()
			path = append(path, strconv.FormatInt(t.Int, 10))
		default:
			return nil, p.errorAtCurrent("expected identifier or index in interpolation path, found %s", t.Kind)
		}
	}
	end, err := p.consume(token.RightBrace, "to close interpolation")
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Value: ast.Interpolation{Path: path},
		Span:  start.Merge(end.Span),
	}, nil
}

// parseInclude parses `include "path"`. No file access happens here.
func (p *parser) parseInclude() (*ast.Node, error) {
	start := p.advance().Span // 'include'
	path, err := p.consume(token.String, "after include")
	if err != nil {
		return nil, err
	}
	return &ast.Node{
		Value: ast.Include{Path: path.Str},
		Span:  start.Merge(path.Span),
	}, nil
}
