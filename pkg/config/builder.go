package config

import (
	"os"

	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/resolver"
	"github.com/noml-lang/noml-go/pkg/schema"
	"github.com/noml-lang/noml-go/pkg/value"
)

// Builder configures how a config is loaded.
type Builder struct {
	opts     resolver.Options
	defaults map[string]value.Value
	schema   *schema.Schema
}

// NewBuilder starts a builder with default options.
func NewBuilder() *Builder {
	return &Builder{defaults: make(map[string]value.Value)}
}

// AllowMissingEnv makes env(...) without a default yield null instead of
// failing.
func (b *Builder) AllowMissingEnv() *Builder {
	b.opts.AllowMissingEnv = true
	return b
}

// Env replaces the process environment for env(...) lookups.
func (b *Builder) Env(env map[string]string) *Builder {
	b.opts.Env = env
	return b
}

// BasePath sets the directory relative includes resolve against.
func (b *Builder) BasePath(path string) *Builder {
	b.opts.BasePath = path
	return b
}

// Default registers a value applied when the loaded config lacks the path.
func (b *Builder) Default(path string, v value.Value) *Builder {
	b.defaults[path] = v
	return b
}

// Schema validates the loaded config before it is returned.
func (b *Builder) Schema(s *schema.Schema) *Builder {
	b.schema = s
	return b
}

// BuildFromFile loads a config file with the builder's options.
func (b *Builder) BuildFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewIOError(path, err)
	}
	return b.build(string(data), path)
}

// BuildFromString loads in-memory source with the builder's options.
func (b *Builder) BuildFromString(source string) (*Config, error) {
	return b.build(source, "")
}

func (b *Builder) build(source, path string) (*Config, error) {
	cfg, err := load(source, path, b.opts)
	if err != nil {
		return nil, err
	}
	for p, v := range b.defaults {
		if !cfg.Contains(p) {
			if err := value.Set(cfg.values, p, v); err != nil {
				return nil, err
			}
		}
	}
	if b.schema != nil {
		if err := cfg.ValidateSchema(b.schema); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
