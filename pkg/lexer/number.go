package lexer

import (
	"math"
	"strconv"
	"strings"

	"github.com/noml-lang/noml-go/pkg/token"
)

// lexNumber scans integer and float literals. Integers accept 0x/0o/0b
// prefixes and '_' digit-group separators; a '.' or exponent inside a
// decimal literal promotes it to a float. Conversion failures are lex
// errors, not deferred to the parser.
func (lx *lexer) lexNumber(m mark) error {
	negative := false
	if lx.peek() == '-' {
		negative = true
		lx.advance()
	}

	if lx.peek() == '0' {
		switch lx.peekAt(1) {
		case 'x', 'X':
			return lx.lexPrefixedInt(m, negative, 16)
		case 'o', 'O':
			return lx.lexPrefixedInt(m, negative, 8)
		case 'b', 'B':
			return lx.lexPrefixedInt(m, negative, 2)
		}
	}

	isFloat := false
	for {
		r := lx.peek()
		switch {
		case isDigit(r) || r == '_':
			lx.advance()
		case r == '.' && isDigit(lx.peekAt(1)):
			isFloat = true
			lx.advance()
		case r == 'e' || r == 'E':
			if !isDigit(lx.peekAt(1)) && !((lx.peekAt(1) == '+' || lx.peekAt(1) == '-') && isDigit(lx.peekAt(2))) {
				return lx.errorAt(m, "malformed exponent in number")
			}
			isFloat = true
			lx.advance()
			if lx.peek() == '+' || lx.peek() == '-' {
				lx.advance()
			}
		default:
			return lx.finishNumber(m, isFloat)
		}
	}
}

// finishNumber converts the consumed text. The sign of a decimal literal is
// already part of the raw text, so strconv handles it.
func (lx *lexer) finishNumber(m mark, isFloat bool) error {
	raw := lx.src[m.pos:lx.pos]
	digits := strings.ReplaceAll(raw, "_", "")

	if isFloat {
		f, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return lx.errorAt(m, "invalid float literal %q", raw)
		}
		lx.emit(m, token.Token{Kind: token.Float, Float: f})
		return nil
	}

	i, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return lx.errorAt(m, "invalid integer literal %q", raw)
	}
	lx.emit(m, token.Token{Kind: token.Integer, Int: i})
	return nil
}

func (lx *lexer) lexPrefixedInt(m mark, negative bool, base int) error {
	lx.advance() // '0'
	lx.advance() // base marker
	digitStart := lx.pos
	for {
		r := lx.peek()
		if r == '_' || isDigit(r) || (base == 16 && isHexDigit(r)) {
			lx.advance()
			continue
		}
		break
	}
	digits := strings.ReplaceAll(lx.src[digitStart:lx.pos], "_", "")
	if digits == "" {
		return lx.errorAt(m, "missing digits after base prefix")
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return lx.errorAt(m, "invalid base-%d literal %q", base, lx.src[m.pos:lx.pos])
	}
	limit := uint64(math.MaxInt64)
	if negative {
		limit++
	}
	if v > limit {
		return lx.errorAt(m, "integer literal %q overflows", lx.src[m.pos:lx.pos])
	}
	i := int64(v)
	if negative {
		i = -i
	}
	lx.emit(m, token.Token{Kind: token.Integer, Int: i})
	return nil
}
