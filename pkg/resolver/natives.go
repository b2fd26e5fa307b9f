package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/value"
)

// validate backs the format-checking typed literals. A single shared
// instance is safe; Var is concurrency-safe.
var validate = validator.New()

// registerBuiltins installs the standard typed literals. Callers may
// overwrite any of them through Register.
func (r *Resolver) registerBuiltins() {
	r.natives["size"] = resolveSize
	r.natives["duration"] = resolveDuration
	r.natives["url"] = resolveURL
	r.natives["ip"] = resolveIP
	r.natives["semver"] = resolveSemver
	r.natives["base64"] = resolveBase64
	r.natives["uuid"] = resolveUUID
	r.natives["regex"] = resolveRegex
}

func oneStringArg(name string, args []value.Value) (string, error) {
	if len(args) != 1 {
		return "", errs.NewValidationError(fmt.Sprintf("@%s takes exactly one argument", name), "")
	}
	s, err := value.AsString(args[0])
	if err != nil {
		return "", errs.NewValidationError(fmt.Sprintf("@%s argument must be a string", name), "")
	}
	return s, nil
}

var sizeUnits = map[string]int64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
	"PB": 1 << 50,
}

// resolveSize parses strings like "512KB" or "1.5GB" into a byte count
// using binary multipliers.
func resolveSize(args []value.Value) (value.Value, error) {
	s, err := oneStringArg("size", args)
	if err != nil {
		return nil, err
	}
	magnitude, unit := splitMagnitude(s)
	mult, ok := sizeUnits[strings.ToUpper(unit)]
	if !ok {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid size %q: unknown unit %q", s, unit), "")
	}
	f, err := strconv.ParseFloat(magnitude, 64)
	if err != nil || f < 0 {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid size %q", s), "")
	}
	return value.Size(int64(f * float64(mult))), nil
}

var durationUnits = map[string]float64{
	"ns": 1e-9,
	"us": 1e-6,
	"ms": 1e-3,
	"s":  1,
	"m":  60,
	"h":  3600,
	"d":  86400,
	"w":  604800,
}

// resolveDuration parses strings like "2h" or "150ms" into seconds.
func resolveDuration(args []value.Value) (value.Value, error) {
	s, err := oneStringArg("duration", args)
	if err != nil {
		return nil, err
	}
	magnitude, unit := splitMagnitude(s)
	mult, ok := durationUnits[unit]
	if !ok {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid duration %q: unknown unit %q", s, unit), "")
	}
	f, err := strconv.ParseFloat(magnitude, 64)
	if err != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid duration %q", s), "")
	}
	return value.Duration(f * mult), nil
}

// splitMagnitude separates the numeric prefix from the unit suffix.
func splitMagnitude(s string) (string, string) {
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == '-' || s[i] == '+') {
		i++
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:])
}

func resolveURL(args []value.Value) (value.Value, error) {
	s, err := oneStringArg("url", args)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid url %q: must start with http:// or https://", s), "")
	}
	if err := validate.Var(s, "url"); err != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid url %q", s), "")
	}
	return value.String(s), nil
}

func resolveIP(args []value.Value) (value.Value, error) {
	s, err := oneStringArg("ip", args)
	if err != nil {
		return nil, err
	}
	if err := validate.Var(s, "ip"); err != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid ip address %q", s), "")
	}
	return value.String(s), nil
}

// resolveSemver accepts two or three dot-separated numeric components.
func resolveSemver(args []value.Value) (value.Value, error) {
	s, err := oneStringArg("semver", args)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid semver %q", s), "")
	}
	for _, p := range parts {
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			return nil, errs.NewValidationError(fmt.Sprintf("invalid semver %q", s), "")
		}
	}
	return value.String(s), nil
}

func resolveBase64(args []value.Value) (value.Value, error) {
	s, err := oneStringArg("base64", args)
	if err != nil {
		return nil, err
	}
	if len(s)%4 != 0 || validate.Var(s, "base64") != nil {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid base64 %q", s), "")
	}
	return value.String(s), nil
}

func resolveUUID(args []value.Value) (value.Value, error) {
	s, err := oneStringArg("uuid", args)
	if err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(s)
	if err != nil || strings.Count(s, "-") != 4 {
		return nil, errs.NewValidationError(fmt.Sprintf("invalid uuid %q", s), "")
	}
	return value.String(parsed.String()), nil
}

// resolveRegex passes the pattern through untouched. Compilation is the
// consumer's concern.
func resolveRegex(args []value.Value) (value.Value, error) {
	s, err := oneStringArg("regex", args)
	if err != nil {
		return nil, err
	}
	return value.String(s), nil
}
