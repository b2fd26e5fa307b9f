package serializer

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/noml-lang/noml-go/pkg/value"
)

// Encode renders a resolved value tree as plain NOML text. Unlike
// Serialize it has no formatting facts to preserve; nested tables become
// sections and everything else is emitted canonically. Used to persist
// configs whose values were modified after resolution.
func Encode(root *value.Table) string {
	var b strings.Builder
	encodeTable(&b, root, nil)
	return b.String()
}

func encodeTable(b *strings.Builder, tbl *value.Table, path []string) {
	var sections []string
	tbl.Range(func(key string, v value.Value) bool {
		if _, ok := v.(*value.Table); ok {
			sections = append(sections, key)
			return true
		}
		fmt.Fprintf(b, "%s = %s\n", encodeKey(key), encodeValue(v))
		return true
	})
	for _, key := range sections {
		sub, _ := tbl.Get(key)
		full := append(append([]string{}, path...), encodeKey(key))
		fmt.Fprintf(b, "\n[%s]\n", strings.Join(full, "."))
		encodeTable(b, sub.(*value.Table), full)
	}
}

// encodeKey quotes keys that are not valid bare identifiers.
func encodeKey(key string) string {
	if key == "" {
		return `""`
	}
	for i, r := range key {
		alpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !alpha && !(i > 0 && r >= '0' && r <= '9') {
			return strconv.Quote(key)
		}
	}
	return key
}

func encodeValue(v value.Value) string {
	switch val := v.(type) {
	case value.Null:
		return "null"
	case value.Bool:
		return strconv.FormatBool(bool(val))
	case value.Integer:
		return strconv.FormatInt(int64(val), 10)
	case value.Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case value.String:
		return strconv.Quote(string(val))
	case value.Size:
		return fmt.Sprintf("@size(%q)", value.FormatSize(int64(val)))
	case value.Duration:
		return fmt.Sprintf("@duration(%q)", value.FormatDuration(float64(val)))
	case value.Binary:
		return fmt.Sprintf("@base64(%q)", base64.StdEncoding.EncodeToString(val))
	case value.Array:
		parts := make([]string, len(val))
		for i, el := range val {
			parts[i] = encodeValue(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *value.Table:
		parts := make([]string, 0, val.Len())
		val.Range(func(key string, el value.Value) bool {
			parts = append(parts, fmt.Sprintf("%s = %s", encodeKey(key), encodeValue(el)))
			return true
		})
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return "null"
	}
}
