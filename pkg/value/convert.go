package value

import (
	"strconv"
	"strings"

	"github.com/noml-lang/noml-go/pkg/errs"
)

// AsBool converts v to a boolean. Strings accept the usual truthy and falsy
// spellings; integers accept 0 and 1.
func AsBool(v Value) (bool, error) {
	switch val := v.(type) {
	case Bool:
		return bool(val), nil
	case Integer:
		switch val {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	case String:
		switch strings.ToLower(string(val)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
	}
	return false, errs.NewTypeError("boolean", v.Kind().String(), "")
}

// AsInteger converts v to an int64. Floats convert only when whole; strings
// parse as decimal integers; sizes yield their byte count.
func AsInteger(v Value) (int64, error) {
	switch val := v.(type) {
	case Integer:
		return int64(val), nil
	case Size:
		return int64(val), nil
	case Float:
		f := float64(val)
		if f == float64(int64(f)) {
			return int64(f), nil
		}
	case String:
		if i, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			return i, nil
		}
	}
	return 0, errs.NewTypeError("integer", v.Kind().String(), "")
}

// AsFloat converts v to a float64. Integers widen; strings parse; durations
// yield their seconds.
func AsFloat(v Value) (float64, error) {
	switch val := v.(type) {
	case Float:
		return float64(val), nil
	case Integer:
		return float64(val), nil
	case Duration:
		return float64(val), nil
	case String:
		if f, err := strconv.ParseFloat(string(val), 64); err == nil {
			return f, nil
		}
	}
	return 0, errs.NewTypeError("float", v.Kind().String(), "")
}

// AsString returns the text of a string value. Other kinds do not coerce;
// callers wanting a rendering should use the Value's String method.
func AsString(v Value) (string, error) {
	if s, ok := v.(String); ok {
		return string(s), nil
	}
	return "", errs.NewTypeError("string", v.Kind().String(), "")
}

// AsTable returns v as a table.
func AsTable(v Value) (*Table, error) {
	if t, ok := v.(*Table); ok {
		return t, nil
	}
	return nil, errs.NewTypeError("table", v.Kind().String(), "")
}

// AsArray returns v as an array.
func AsArray(v Value) (Array, error) {
	if a, ok := v.(Array); ok {
		return a, nil
	}
	return nil, errs.NewTypeError("array", v.Kind().String(), "")
}
