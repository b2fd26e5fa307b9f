package resolver

import (
	"strings"

	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/value"
)

// resolveString substitutes every ${...} occurrence inside a string with
// the stringified value of the referenced binding. Strings without markers
// pass through untouched.
func (r *Resolver) resolveString(s string) (value.Value, error) {
	if !strings.Contains(s, "${") {
		return value.String(s), nil
	}
	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			return value.String(b.String()), nil
		}
		b.WriteString(rest[:start])
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			return nil, errs.NewInterpolationError("unterminated interpolation in string", rest[start:])
		}
		expr := rest[start+2 : start+end]
		v, err := r.lookupPath(strings.Split(expr, "."))
		if err != nil {
			return nil, err
		}
		b.WriteString(v.String())
		rest = rest[start+end+1:]
	}
}

// lookupPath resolves an interpolation path against the variable context.
// A full dotted match on a top-level binding is authoritative; otherwise
// the first segment selects a binding and the remaining segments descend
// into it. The descent exists for compatibility with configs that reference
// into nested tables and should not be relied on for new files.
func (r *Resolver) lookupPath(path []string) (value.Value, error) {
	expr := strings.Join(path, ".")

	if v, ok := r.variables.Get(expr); ok {
		return v, nil
	}

	root, ok := r.variables.Get(path[0])
	if !ok {
		return nil, errs.NewInterpolationError("undefined variable "+path[0], expr)
	}
	if len(path) == 1 {
		return root, nil
	}
	v, err := value.Get(root, strings.Join(path[1:], "."))
	if err != nil {
		return nil, errs.NewInterpolationError("cannot resolve path", expr)
	}
	return v, nil
}
