// Package token defines the lexical tokens of the NOML configuration
// language and the source spans that position them.
package token

import "fmt"

// Kind identifies the lexical class of a token.
type Kind int

const (
	// Invalid marks a token the lexer could not classify.
	Invalid Kind = iota

	// EOF marks the end of input. Always the last token in a stream.
	EOF

	// Literals.
	String
	Integer
	Float
	Bool
	Null

	// Identifier is a bare name used for keys and typed-literal names.
	Identifier

	// Keywords reclassified from identifiers.
	Env
	Include

	// Structural symbols.
	Equals       // =
	Dot          // .
	Comma        // ,
	LeftBracket  // [
	RightBracket // ]
	LeftBrace    // {
	RightBrace   // }
	LeftParen    // (
	RightParen   // )
	At           // @

	// InterpolationStart is the two-character "${" marker.
	InterpolationStart

	// Trivia. Emitted by the lexer so token text round-trips to the source,
	// dropped before parsing.
	Comment
	Whitespace
	Newline
)

var kindNames = map[Kind]string{
	Invalid:            "invalid",
	EOF:                "end of file",
	String:             "string",
	Integer:            "integer",
	Float:              "float",
	Bool:               "boolean",
	Null:               "null",
	Identifier:         "identifier",
	Env:                "env",
	Include:            "include",
	Equals:             "'='",
	Dot:                "'.'",
	Comma:              "','",
	LeftBracket:        "'['",
	RightBracket:       "']'",
	LeftBrace:          "'{'",
	RightBrace:         "'}'",
	LeftParen:          "'('",
	RightParen:         "')'",
	At:                 "'@'",
	InterpolationStart: "'${'",
	Comment:            "comment",
	Whitespace:         "whitespace",
	Newline:            "newline",
}

// String returns a human-readable name for the kind, used in error messages.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsTrivia reports whether the kind carries no grammatical meaning.
func (k Kind) IsTrivia() bool {
	return k == Comment || k == Whitespace || k == Newline
}

// StringStyle records how a string literal was quoted in the source, so the
// serializer can re-emit it in the same form.
type StringStyle int

const (
	StyleDouble StringStyle = iota
	StyleSingle
	StyleTripleDouble
	StyleTripleSingle
	StyleRaw
)

// Span is a half-open byte range [Start, End) into the source, with 1-based
// line and column coordinates for both ends.
type Span struct {
	Start     int
	End       int
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Merge returns the smallest span covering both s and other.
func (s Span) Merge(other Span) Span {
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
		out.StartLine = other.StartLine
		out.StartCol = other.StartCol
	}
	if other.End > out.End {
		out.End = other.End
		out.EndLine = other.EndLine
		out.EndCol = other.EndCol
	}
	return out
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// Token is a single lexical unit. Raw is the exact source substring covered
// by Span; concatenating Raw across a full stream reproduces the source.
type Token struct {
	Kind Kind
	Span Span

	// Raw is the exact source text of the token.
	Raw string

	// Decoded payloads, populated per Kind.
	Str      string      // String: value after escape processing; Comment: text with leading space trimmed
	Style    StringStyle // String only
	RawFence int         // String with StyleRaw: number of '#' fence characters
	Int      int64       // Integer
	Float    float64     // Float
	Bool     bool        // Bool
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%d:%d", t.Kind, t.Raw, t.Span.StartLine, t.Span.StartCol)
}
