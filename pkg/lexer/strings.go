package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/noml-lang/noml-go/pkg/token"
)

// lexString scans a quoted string. Both quote characters support the
// single-line and triple-quoted forms. Escape sequences are processed in
// every style except triple-single, which is literal.
func (lx *lexer) lexString(m mark) error {
	quote := lx.advance()
	if lx.peek() == quote && lx.peekAt(1) == quote {
		lx.advance()
		lx.advance()
		return lx.lexTripleString(m, quote)
	}

	style := token.StyleDouble
	if quote == '\'' {
		style = token.StyleSingle
	}

	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) || lx.peek() == '\n' {
			return lx.errorAt(m, "unterminated string")
		}
		r := lx.advance()
		switch r {
		case quote:
			lx.emit(m, token.Token{Kind: token.String, Str: b.String(), Style: style})
			return nil
		case '\\':
			if err := lx.readEscape(m, &b); err != nil {
				return err
			}
		default:
			b.WriteRune(r)
		}
	}
}

func (lx *lexer) lexTripleString(m mark, quote rune) error {
	style := token.StyleTripleDouble
	if quote == '\'' {
		style = token.StyleTripleSingle
	}

	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return lx.errorAt(m, "unterminated string")
		}
		if lx.peek() == quote && lx.peekAt(1) == quote && lx.peekAt(2) == quote {
			lx.advance()
			lx.advance()
			lx.advance()
			lx.emit(m, token.Token{Kind: token.String, Str: b.String(), Style: style})
			return nil
		}
		r := lx.advance()
		if r == '\\' && style == token.StyleTripleDouble {
			if err := lx.readEscape(m, &b); err != nil {
				return err
			}
			continue
		}
		b.WriteRune(r)
	}
}

// lexRawString scans r"..." and r#"..."# forms. The fence is any number of
// '#' characters; content is taken verbatim, newlines included.
func (lx *lexer) lexRawString(m mark) error {
	lx.advance() // 'r'
	fence := 0
	for lx.peek() == '#' {
		fence++
		lx.advance()
	}
	if lx.peek() != '"' {
		return lx.errorAt(m, "expected '\"' to open raw string")
	}
	lx.advance()

	contentStart := lx.pos
	closer := `"` + strings.Repeat("#", fence)
	for {
		if lx.pos >= len(lx.src) {
			return lx.errorAt(m, "unterminated raw string")
		}
		if strings.HasPrefix(lx.src[lx.pos:], closer) {
			value := lx.src[contentStart:lx.pos]
			for range closer {
				lx.advance()
			}
			lx.emit(m, token.Token{
				Kind:     token.String,
				Str:      value,
				Style:    token.StyleRaw,
				RawFence: fence,
			})
			return nil
		}
		lx.advance()
	}
}

// readEscape consumes the character(s) following a backslash and appends the
// decoded rune to b. Supports \n \t \r \\ \" \' \0 and unicode escapes in
// both the fixed \uXXXX and braced \u{...} forms.
func (lx *lexer) readEscape(m mark, b *strings.Builder) error {
	if lx.pos >= len(lx.src) {
		return lx.errorAt(m, "unterminated escape sequence")
	}
	esc := lx.mark()
	switch r := lx.advance(); r {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case '\\':
		b.WriteByte('\\')
	case '"':
		b.WriteByte('"')
	case '\'':
		b.WriteByte('\'')
	case '0':
		b.WriteByte(0)
	case 'u':
		return lx.readUnicodeEscape(esc, b)
	default:
		return lx.errorAt(esc, "invalid escape sequence '\\%c'", r)
	}
	return nil
}

func (lx *lexer) readUnicodeEscape(esc mark, b *strings.Builder) error {
	var hex strings.Builder
	if lx.peek() == '{' {
		lx.advance()
		for lx.peek() != '}' {
			if lx.pos >= len(lx.src) || !isHexDigit(lx.peek()) {
				return lx.errorAt(esc, "malformed unicode escape")
			}
			hex.WriteRune(lx.advance())
		}
		lx.advance() // '}'
	} else {
		for i := 0; i < 4; i++ {
			if lx.pos >= len(lx.src) || !isHexDigit(lx.peek()) {
				return lx.errorAt(esc, "malformed unicode escape")
			}
			hex.WriteRune(lx.advance())
		}
	}
	if hex.Len() == 0 || hex.Len() > 6 {
		return lx.errorAt(esc, "malformed unicode escape")
	}
	code, err := strconv.ParseUint(hex.String(), 16, 32)
	if err != nil || !utf8.ValidRune(rune(code)) {
		return lx.errorAt(esc, "invalid unicode codepoint U+%s", strings.ToUpper(hex.String()))
	}
	b.WriteRune(rune(code))
	return nil
}
