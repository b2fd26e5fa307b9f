// Package errs defines the classified error type shared by every stage of
// the NOML pipeline. Errors carry a kind for programmatic handling, a stable
// category string for metrics, and enough position context to render useful
// messages.
package errs

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Kind classifies an error for recovery and reporting logic.
type Kind string

const (
	// KindParse indicates a lexical or syntactic failure. Parsing aborts at
	// the first such error.
	KindParse Kind = "parse"

	// KindValidation indicates a semantic failure, such as a malformed
	// typed-literal argument.
	KindValidation Kind = "validation"

	// KindKeyNotFound indicates a lookup of a key that does not exist.
	KindKeyNotFound Kind = "key_not_found"

	// KindType indicates a value could not be converted to the requested type.
	KindType Kind = "type"

	// KindIO wraps a filesystem error.
	KindIO Kind = "io"

	// KindInterpolation indicates a missing or malformed ${...} reference.
	KindInterpolation Kind = "interpolation"

	// KindEnvVar indicates a missing environment variable.
	KindEnvVar Kind = "env_var"

	// KindImport indicates an include directive failed.
	KindImport Kind = "import"

	// KindCircular indicates a cycle in the include chain.
	KindCircular Kind = "circular"

	// KindSchema indicates a schema validation failure.
	KindSchema Kind = "schema"

	// KindInternal indicates a bug. Never expected during normal operation.
	KindInternal Kind = "internal"
)

// Error is a classified error with position and lookup context.
type Error struct {
	// Kind is the error classification.
	Kind Kind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Line and Column locate the error in the source, 1-based. Zero when
	// the error has no source position.
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`

	// Snippet is the offending source line, if available.
	Snippet string `json:"snippet,omitempty"`

	// Path is the file or dotted key path the error refers to.
	Path string `json:"path,omitempty"`

	// Key is the missing key for key-not-found errors.
	Key string `json:"key,omitempty"`

	// Available lists keys that do exist near a missing one.
	Available []string `json:"available,omitempty"`

	// Expression is the interpolation expression that failed.
	Expression string `json:"expression,omitempty"`

	// Variable is the environment variable name for env errors.
	Variable string `json:"variable,omitempty"`

	// HasDefault records whether the env lookup carried a default.
	HasDefault bool `json:"has_default,omitempty"`

	// Chain is the include chain for circular reference errors.
	Chain []string `json:"chain,omitempty"`

	// Expected and Actual describe a type mismatch.
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", e.Line, e.Column)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (path=%s)", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Category returns the stable category string used as a metric label.
func (e *Error) Category() string {
	switch e.Kind {
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindKeyNotFound:
		return "key_access"
	case KindType:
		return "type_conversion"
	case KindIO:
		return "io"
	case KindInterpolation:
		return "interpolation"
	case KindEnvVar:
		return "environment"
	case KindImport:
		return "import"
	case KindCircular:
		return "circular_reference"
	case KindSchema:
		return "schema"
	default:
		return "internal"
	}
}

// Recoverable reports whether the caller can reasonably proceed after this
// error. Parse, circular, and internal errors always abort. IO errors are
// recoverable unless access was denied. Env errors are recoverable only
// when a default was expected.
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case KindParse, KindCircular, KindInternal:
		return false
	case KindIO:
		return !errors.Is(e.Err, fs.ErrPermission)
	case KindEnvVar:
		return e.HasDefault
	default:
		return true
	}
}

// UserMessage renders the error with actionable hints where possible.
func (e *Error) UserMessage() string {
	var b strings.Builder
	b.WriteString(e.Message)
	switch e.Kind {
	case KindParse:
		if e.Line > 0 {
			fmt.Fprintf(&b, "\n  at line %d, column %d", e.Line, e.Column)
		}
		if e.Snippet != "" {
			fmt.Fprintf(&b, "\n  | %s", e.Snippet)
		}
		b.WriteString("\n  tip: check for unclosed strings, brackets, or a missing '='")
	case KindKeyNotFound:
		if s := e.Suggestions(3); len(s) > 0 {
			fmt.Fprintf(&b, "\n  did you mean: %s", strings.Join(s, ", "))
		}
	case KindEnvVar:
		if !e.HasDefault {
			fmt.Fprintf(&b, "\n  tip: provide a default with env(%q, \"fallback\") or set the variable", e.Variable)
		}
	case KindCircular:
		if len(e.Chain) > 0 {
			fmt.Fprintf(&b, "\n  include chain: %s", strings.Join(e.Chain, " -> "))
		}
	case KindInterpolation:
		if e.Expression != "" {
			fmt.Fprintf(&b, "\n  in expression: ${%s}", e.Expression)
		}
	}
	return b.String()
}

// Suggestions ranks the available keys by edit distance from the missing one
// and returns up to max of the closest matches.
func (e *Error) Suggestions(max int) []string {
	if e.Key == "" || len(e.Available) == 0 {
		return nil
	}
	type scored struct {
		key  string
		dist int
	}
	ranked := make([]scored, 0, len(e.Available))
	for _, k := range e.Available {
		d := levenshtein.ComputeDistance(e.Key, k)
		if d <= len(e.Key)/2+1 {
			ranked = append(ranked, scored{key: k, dist: d})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].dist < ranked[j].dist })
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.key
	}
	return out
}

// NewParseError creates a parse error at a source position.
func NewParseError(message string, line, column int, snippet string) *Error {
	return &Error{
		Kind:    KindParse,
		Message: message,
		Line:    line,
		Column:  column,
		Snippet: snippet,
	}
}

// NewValidationError creates a validation error, optionally scoped to a path.
func NewValidationError(message, path string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Path:    path,
	}
}

// NewKeyNotFoundError creates a key-not-found error carrying the keys that
// do exist, used for suggestion ranking.
func NewKeyNotFoundError(key string, available []string) *Error {
	return &Error{
		Kind:      KindKeyNotFound,
		Message:   fmt.Sprintf("key %q not found", key),
		Key:       key,
		Available: available,
	}
}

// NewTypeError creates a type conversion error.
func NewTypeError(expected, actual, path string) *Error {
	return &Error{
		Kind:     KindType,
		Message:  fmt.Sprintf("expected %s, found %s", expected, actual),
		Expected: expected,
		Actual:   actual,
		Path:     path,
	}
}

// NewIOError wraps a filesystem error for the given path.
func NewIOError(path string, err error) *Error {
	return &Error{
		Kind:    KindIO,
		Message: fmt.Sprintf("cannot read %q", path),
		Path:    path,
		Err:     err,
	}
}

// NewInterpolationError creates an interpolation error for an expression.
func NewInterpolationError(message, expression string) *Error {
	return &Error{
		Kind:       KindInterpolation,
		Message:    message,
		Expression: expression,
	}
}

// NewEnvVarError creates a missing-environment-variable error.
func NewEnvVarError(variable string, hasDefault bool) *Error {
	return &Error{
		Kind:       KindEnvVar,
		Message:    fmt.Sprintf("environment variable %q is not set", variable),
		Variable:   variable,
		HasDefault: hasDefault,
	}
}

// NewImportError creates an include failure error.
func NewImportError(path, reason string, err error) *Error {
	return &Error{
		Kind:    KindImport,
		Message: fmt.Sprintf("cannot include %q: %s", path, reason),
		Path:    path,
		Err:     err,
	}
}

// NewCircularError creates a circular include error naming the cycle.
func NewCircularError(chain []string) *Error {
	return &Error{
		Kind:    KindCircular,
		Message: "circular include detected",
		Chain:   chain,
	}
}

// NewSchemaError creates a schema validation error at a dotted path.
func NewSchemaError(path, message, expected string) *Error {
	return &Error{
		Kind:     KindSchema,
		Message:  message,
		Path:     path,
		Expected: expected,
	}
}

// NewInternalError creates an internal error. These indicate bugs.
func NewInternalError(message string, err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: message,
		Err:     err,
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// CategoryOf returns the metric category for any error. Errors that are not
// *Error values fall into the internal bucket.
func CategoryOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Category()
	}
	return "internal"
}
