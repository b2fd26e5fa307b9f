package errs

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := NewParseError("unexpected token", 3, 7, "bad == line")
	msg := err.Error()
	if !strings.Contains(msg, "[parse]") {
		t.Errorf("message should carry the kind tag, got %q", msg)
	}
	if !strings.Contains(msg, "line 3, column 7") {
		t.Errorf("message should carry the position, got %q", msg)
	}

	wrapped := NewIOError("/etc/app.noml", fs.ErrNotExist)
	if !strings.Contains(wrapped.Error(), fs.ErrNotExist.Error()) {
		t.Errorf("wrapped cause should appear in message, got %q", wrapped.Error())
	}
}

func TestError_Category(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{NewParseError("x", 1, 1, ""), "parse"},
		{NewValidationError("x", ""), "validation"},
		{NewKeyNotFoundError("x", nil), "key_access"},
		{NewTypeError("integer", "string", "a.b"), "type_conversion"},
		{NewIOError("f", errors.New("x")), "io"},
		{NewInterpolationError("x", "a.b"), "interpolation"},
		{NewEnvVarError("HOME", false), "environment"},
		{NewImportError("f", "x", nil), "import"},
		{NewCircularError(nil), "circular_reference"},
		{NewSchemaError("a", "x", "string"), "schema"},
		{NewInternalError("x", nil), "internal"},
	}
	for _, tt := range tests {
		if got := tt.err.Category(); got != tt.want {
			t.Errorf("%s: expected category %q, got %q", tt.err.Kind, tt.want, got)
		}
	}
}

func TestError_Recoverable(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"parse", NewParseError("x", 1, 1, ""), false},
		{"circular", NewCircularError([]string{"a", "b", "a"}), false},
		{"internal", NewInternalError("x", nil), false},
		{"import", NewImportError("f", "x", nil), true},
		{"io not exist", NewIOError("f", fs.ErrNotExist), true},
		{"io permission", NewIOError("f", fs.ErrPermission), false},
		{"io other", NewIOError("f", errors.New("disk on fire")), true},
		{"env with default", NewEnvVarError("PORT", true), true},
		{"env no default", NewEnvVarError("PORT", false), false},
		{"key not found", NewKeyNotFoundError("x", nil), true},
		{"type", NewTypeError("integer", "string", ""), true},
		{"validation", NewValidationError("x", ""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Recoverable(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestError_Suggestions(t *testing.T) {
	err := NewKeyNotFoundError("databse", []string{"database", "debug", "server", "datasets"})
	got := err.Suggestions(3)
	if len(got) == 0 || got[0] != "database" {
		t.Fatalf("expected 'database' as the top suggestion, got %v", got)
	}
	for _, s := range got {
		if s == "server" {
			t.Errorf("'server' is too far from 'databse' to suggest, got %v", got)
		}
	}

	if s := NewKeyNotFoundError("x", nil).Suggestions(3); s != nil {
		t.Errorf("no available keys should produce no suggestions, got %v", s)
	}
}

func TestError_UserMessage(t *testing.T) {
	parse := NewParseError("unexpected ']'", 2, 5, "arr = ]")
	msg := parse.UserMessage()
	if !strings.Contains(msg, "line 2, column 5") || !strings.Contains(msg, "arr = ]") {
		t.Errorf("parse message should include position and snippet, got %q", msg)
	}

	kerr := NewKeyNotFoundError("prot", []string{"port", "host"})
	if !strings.Contains(kerr.UserMessage(), "did you mean: port") {
		t.Errorf("expected suggestion hint, got %q", kerr.UserMessage())
	}

	eerr := NewEnvVarError("APP_SECRET", false)
	if !strings.Contains(eerr.UserMessage(), "APP_SECRET") {
		t.Errorf("expected variable name in hint, got %q", eerr.UserMessage())
	}

	cerr := NewCircularError([]string{"a.noml", "b.noml", "a.noml"})
	if !strings.Contains(cerr.UserMessage(), "a.noml -> b.noml -> a.noml") {
		t.Errorf("expected include chain, got %q", cerr.UserMessage())
	}
}

func TestIsKind(t *testing.T) {
	base := NewEnvVarError("HOME", false)
	wrapped := NewImportError("config.noml", "resolve failed", base)

	if !IsKind(wrapped, KindImport) {
		t.Error("outer kind should match")
	}
	if IsKind(wrapped, KindParse) {
		t.Error("unrelated kind should not match")
	}
	if IsKind(errors.New("plain"), KindParse) {
		t.Error("plain errors have no kind")
	}

	// errors.Is matches on kind through the chain.
	if !errors.Is(wrapped, &Error{Kind: KindEnvVar}) {
		t.Error("errors.Is should find the wrapped env error by kind")
	}
}

func TestCategoryOf(t *testing.T) {
	if got := CategoryOf(NewParseError("x", 1, 1, "")); got != "parse" {
		t.Errorf("expected parse, got %q", got)
	}
	if got := CategoryOf(errors.New("plain")); got != "internal" {
		t.Errorf("plain errors fall into internal, got %q", got)
	}
}
