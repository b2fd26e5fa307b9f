package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/value"
)

// yamlSchema mirrors the on-disk YAML schema format.
type yamlSchema struct {
	AllowAdditional bool                 `yaml:"allow_additional"`
	Fields          map[string]yamlField `yaml:"fields"`
}

type yamlField struct {
	Type        yamlType `yaml:"type"`
	Required    bool     `yaml:"required"`
	Description string   `yaml:"description"`
	Default     any      `yaml:"default"`
}

type yamlType struct {
	Kind   string      `yaml:"kind"`
	Elem   *yamlType   `yaml:"elem"`
	Schema *yamlSchema `yaml:"schema"`
	AnyOf  []yamlType  `yaml:"any_of"`
}

// UnmarshalYAML accepts either a bare kind string or the structured form.
func (t *yamlType) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&t.Kind)
	}
	type plain yamlType
	return node.Decode((*plain)(t))
}

// LoadFile reads a schema from a YAML description.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewIOError(path, err)
	}
	var raw yamlSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.NewSchemaError(path, "invalid schema file: "+err.Error(), "")
	}
	return raw.convert(path)
}

func (y *yamlSchema) convert(path string) (*Schema, error) {
	s := New()
	s.AllowAdditional = y.AllowAdditional
	for name, f := range y.Fields {
		t, err := f.Type.convert(path)
		if err != nil {
			return nil, err
		}
		field := Field{
			Type:        t,
			Required:    f.Required,
			Description: f.Description,
		}
		if f.Default != nil {
			d, err := fromYAMLValue(f.Default)
			if err != nil {
				return nil, errs.NewSchemaError(path, fmt.Sprintf("invalid default for %q: %s", name, err), "")
			}
			field.Default = d
		}
		s.Fields[name] = field
	}
	return s, nil
}

var kindNames = map[string]TypeKind{
	"any":      Any,
	"string":   String,
	"integer":  Integer,
	"float":    Float,
	"bool":     Bool,
	"boolean":  Bool,
	"binary":   Binary,
	"size":     Size,
	"duration": Duration,
	"array":    Array,
	"table":    Table,
	"union":    Union,
}

func (y yamlType) convert(path string) (Type, error) {
	kind, ok := kindNames[y.Kind]
	if !ok {
		return Type{}, errs.NewSchemaError(path, fmt.Sprintf("unknown field type %q", y.Kind), "")
	}
	t := Type{Kind: kind}
	if y.Elem != nil {
		elem, err := y.Elem.convert(path)
		if err != nil {
			return Type{}, err
		}
		t.Elem = &elem
	}
	if y.Schema != nil {
		sub, err := y.Schema.convert(path)
		if err != nil {
			return Type{}, err
		}
		t.Table = sub
	}
	for _, alt := range y.AnyOf {
		a, err := alt.convert(path)
		if err != nil {
			return Type{}, err
		}
		t.Alternatives = append(t.Alternatives, a)
	}
	return t, nil
}

// fromYAMLValue converts a decoded YAML scalar or container into a value.
func fromYAMLValue(v any) (value.Value, error) {
	switch val := v.(type) {
	case nil:
		return value.Null{}, nil
	case bool:
		return value.Bool(val), nil
	case int:
		return value.Integer(val), nil
	case int64:
		return value.Integer(val), nil
	case float64:
		return value.Float(val), nil
	case string:
		return value.String(val), nil
	case []any:
		out := make(value.Array, 0, len(val))
		for _, el := range val {
			cv, err := fromYAMLValue(el)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	case map[string]any:
		out := value.NewTable()
		for k, el := range val {
			cv, err := fromYAMLValue(el)
			if err != nil {
				return nil, err
			}
			out.Set(k, cv)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
