package value

import (
	"strconv"
	"strings"

	"github.com/noml-lang/noml-go/pkg/errs"
)

// Get walks a dotted path from root. Numeric segments index into arrays.
// A missing key returns a key-not-found error carrying the sibling keys for
// suggestion ranking.
func Get(root Value, path string) (Value, error) {
	current := root
	for _, seg := range splitPath(path) {
		switch c := current.(type) {
		case *Table:
			v, ok := c.Get(seg)
			if !ok {
				return nil, errs.NewKeyNotFoundError(path, c.Keys())
			}
			current = v
		case Array:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, errs.NewKeyNotFoundError(path, nil)
			}
			current = c[idx]
		default:
			return nil, errs.NewTypeError("table or array", current.Kind().String(), path)
		}
	}
	return current, nil
}

// Set binds a value at a dotted path under root, creating intermediate
// tables for missing segments. Root must be a table.
func Set(root Value, path string, v Value) error {
	table, ok := root.(*Table)
	if !ok {
		return errs.NewTypeError("table", root.Kind().String(), path)
	}
	segs := splitPath(path)
	for i, seg := range segs[:len(segs)-1] {
		next, exists := table.Get(seg)
		if !exists {
			sub := NewTable()
			table.Set(seg, sub)
			table = sub
			continue
		}
		sub, ok := next.(*Table)
		if !ok {
			return errs.NewTypeError("table", next.Kind().String(), strings.Join(segs[:i+1], "."))
		}
		table = sub
	}
	table.Set(segs[len(segs)-1], v)
	return nil
}

// Delete removes the value at a dotted path. It returns the removed value,
// or a key-not-found error if any segment is missing.
func Delete(root Value, path string) (Value, error) {
	segs := splitPath(path)
	parentPath := strings.Join(segs[:len(segs)-1], ".")
	parent := root
	if parentPath != "" {
		var err error
		parent, err = Get(root, parentPath)
		if err != nil {
			return nil, err
		}
	}
	table, ok := parent.(*Table)
	if !ok {
		return nil, errs.NewTypeError("table", parent.Kind().String(), parentPath)
	}
	removed, ok := table.Delete(segs[len(segs)-1])
	if !ok {
		return nil, errs.NewKeyNotFoundError(path, table.Keys())
	}
	return removed, nil
}

// Contains reports whether a dotted path exists under root.
func Contains(root Value, path string) bool {
	_, err := Get(root, path)
	return err == nil
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
