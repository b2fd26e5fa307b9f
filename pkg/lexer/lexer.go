// Package lexer converts NOML source text into a flat token stream. Every
// byte of the input is covered by exactly one token, including whitespace,
// newline, and comment trivia, so rejoining the raw text of a stream
// reproduces the source. The lexer never panics on malformed input; it
// returns a positioned parse error instead.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/token"
)

// Tokenize scans the full source and returns its token stream, terminated by
// an EOF token. The first lexical error aborts the scan.
func Tokenize(source string) ([]token.Token, error) {
	lx := &lexer{src: source, line: 1, col: 1}
	for lx.pos < len(lx.src) {
		if err := lx.next(); err != nil {
			return nil, err
		}
	}
	lx.tokens = append(lx.tokens, token.Token{
		Kind: token.EOF,
		Span: lx.spanFrom(lx.mark()),
	})
	return lx.tokens, nil
}

// Significant filters a stream down to the tokens the parser consumes,
// dropping whitespace and newline trivia but keeping comments, which the
// parser attaches to nodes.
func Significant(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind == token.Whitespace {
			continue
		}
		out = append(out, t)
	}
	return out
}

type mark struct {
	pos  int
	line int
	col  int
}

type lexer struct {
	src    string
	pos    int
	line   int
	col    int
	tokens []token.Token
}

func (lx *lexer) mark() mark {
	return mark{pos: lx.pos, line: lx.line, col: lx.col}
}

func (lx *lexer) spanFrom(m mark) token.Span {
	return token.Span{
		Start:     m.pos,
		End:       lx.pos,
		StartLine: m.line,
		StartCol:  m.col,
		EndLine:   lx.line,
		EndCol:    lx.col,
	}
}

func (lx *lexer) peek() rune {
	if lx.pos >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	return r
}

func (lx *lexer) peekAt(offset int) rune {
	i := lx.pos
	for ; offset > 0 && i < len(lx.src); offset-- {
		_, w := utf8.DecodeRuneInString(lx.src[i:])
		i += w
	}
	if i >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[i:])
	return r
}

func (lx *lexer) advance() rune {
	r, w := utf8.DecodeRuneInString(lx.src[lx.pos:])
	lx.pos += w
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) emit(m mark, tok token.Token) {
	tok.Span = lx.spanFrom(m)
	tok.Raw = lx.src[m.pos:lx.pos]
	lx.tokens = append(lx.tokens, tok)
}

func (lx *lexer) errorAt(m mark, format string, args ...any) error {
	return errs.NewParseError(fmt.Sprintf(format, args...), m.line, m.col, snippet(lx.src, m.pos))
}

// snippet extracts the full source line containing the byte offset.
func snippet(src string, pos int) string {
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

func (lx *lexer) next() error {
	m := lx.mark()
	r := lx.peek()

	switch {
	case r == '\n':
		lx.advance()
		lx.emit(m, token.Token{Kind: token.Newline})
		return nil

	case r == ' ' || r == '\t' || r == '\r':
		for {
			c := lx.peek()
			if c != ' ' && c != '\t' && c != '\r' {
				break
			}
			lx.advance()
		}
		lx.emit(m, token.Token{Kind: token.Whitespace})
		return nil

	case r == '#':
		return lx.lexComment(m)

	case r == '"' || r == '\'':
		return lx.lexString(m)

	case r == 'r' && (lx.peekAt(1) == '"' || lx.peekAt(1) == '#'):
		return lx.lexRawString(m)

	case isDigit(r) || (r == '-' && isDigit(lx.peekAt(1))):
		return lx.lexNumber(m)

	case isIdentStart(r):
		lx.lexIdentifier(m)
		return nil

	case r == '$':
		lx.advance()
		if lx.peek() != '{' {
			return lx.errorAt(m, "expected '{' after '$'")
		}
		lx.advance()
		lx.emit(m, token.Token{Kind: token.InterpolationStart})
		return nil

	default:
		return lx.lexSymbol(m)
	}
}

func (lx *lexer) lexComment(m mark) error {
	lx.advance() // '#'
	for lx.pos < len(lx.src) && lx.peek() != '\n' {
		lx.advance()
	}
	text := strings.TrimLeft(lx.src[m.pos+1:lx.pos], " \t")
	lx.emit(m, token.Token{Kind: token.Comment, Str: text})
	return nil
}

var symbolKinds = map[rune]token.Kind{
	'=': token.Equals,
	'.': token.Dot,
	',': token.Comma,
	'[': token.LeftBracket,
	']': token.RightBracket,
	'{': token.LeftBrace,
	'}': token.RightBrace,
	'(': token.LeftParen,
	')': token.RightParen,
	'@': token.At,
}

func (lx *lexer) lexSymbol(m mark) error {
	r := lx.advance()
	kind, ok := symbolKinds[r]
	if !ok {
		return lx.errorAt(m, "unexpected character %q", r)
	}
	lx.emit(m, token.Token{Kind: kind})
	return nil
}

func (lx *lexer) lexIdentifier(m mark) {
	for lx.pos < len(lx.src) && isIdentPart(lx.peek()) {
		lx.advance()
	}
	word := lx.src[m.pos:lx.pos]
	switch word {
	case "true", "false":
		lx.emit(m, token.Token{Kind: token.Bool, Bool: word == "true"})
	case "null":
		lx.emit(m, token.Token{Kind: token.Null})
	case "env":
		lx.emit(m, token.Token{Kind: token.Env})
	case "include":
		lx.emit(m, token.Token{Kind: token.Include})
	default:
		lx.emit(m, token.Token{Kind: token.Identifier, Str: word})
	}
}

func isDigit(r rune) bool      { return r >= '0' && r <= '9' }
func isHexDigit(r rune) bool   { return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') }
func isIdentStart(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isIdentPart(r rune) bool  { return isIdentStart(r) || isDigit(r) }
