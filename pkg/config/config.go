// Package config is the high-level façade over the parse and resolve
// pipeline: load a file, read and write values by dotted path, validate
// against a schema, persist changes, and watch for edits on disk.
package config

import (
	"context"
	"os"

	"github.com/noml-lang/noml-go/pkg/ast"
	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/parser"
	"github.com/noml-lang/noml-go/pkg/resolver"
	"github.com/noml-lang/noml-go/pkg/schema"
	"github.com/noml-lang/noml-go/pkg/serializer"
	"github.com/noml-lang/noml-go/pkg/value"
)

// Config wraps a resolved document with path-based access and change
// tracking. The AST is kept alongside the values so an unmodified config
// can be saved with its comments and formatting intact.
type Config struct {
	doc          *ast.Document
	values       *value.Table
	sourcePath   string
	modified     bool
	resolverOpts resolver.Options
}

// FromString parses and resolves in-memory source.
func FromString(source string) (*Config, error) {
	return load(source, "", resolver.Options{})
}

// FromFile reads, parses, and resolves a file.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewIOError(path, err)
	}
	return load(string(data), path, resolver.Options{})
}

func load(source, path string, opts resolver.Options) (*Config, error) {
	doc, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	doc.SourcePath = path
	resolved, err := resolver.New(opts).Resolve(context.Background(), doc)
	if err != nil {
		return nil, err
	}
	tbl, err := value.AsTable(resolved)
	if err != nil {
		return nil, err
	}
	return &Config{
		doc:          doc,
		values:       tbl,
		sourcePath:   path,
		resolverOpts: opts,
	}, nil
}

// Get returns the value at a dotted path.
func (c *Config) Get(path string) (value.Value, error) {
	return value.Get(c.values, path)
}

// GetOr returns the value at path, or the default when the path is absent.
func (c *Config) GetOr(path string, def value.Value) value.Value {
	if v, err := value.Get(c.values, path); err == nil {
		return v
	}
	return def
}

// GetString returns a string value at path.
func (c *Config) GetString(path string) (string, error) {
	v, err := c.Get(path)
	if err != nil {
		return "", err
	}
	return value.AsString(v)
}

// GetInt returns an integer value at path.
func (c *Config) GetInt(path string) (int64, error) {
	v, err := c.Get(path)
	if err != nil {
		return 0, err
	}
	return value.AsInteger(v)
}

// GetFloat returns a float value at path.
func (c *Config) GetFloat(path string) (float64, error) {
	v, err := c.Get(path)
	if err != nil {
		return 0, err
	}
	return value.AsFloat(v)
}

// GetBool returns a boolean value at path.
func (c *Config) GetBool(path string) (bool, error) {
	v, err := c.Get(path)
	if err != nil {
		return false, err
	}
	return value.AsBool(v)
}

// Set writes a value at a dotted path, creating intermediate tables, and
// marks the config modified.
func (c *Config) Set(path string, v value.Value) error {
	if err := value.Set(c.values, path, v); err != nil {
		return err
	}
	c.modified = true
	return nil
}

// Remove deletes the value at path and marks the config modified.
func (c *Config) Remove(path string) (value.Value, error) {
	removed, err := value.Delete(c.values, path)
	if err != nil {
		return nil, err
	}
	c.modified = true
	return removed, nil
}

// Contains reports whether a dotted path exists.
func (c *Config) Contains(path string) bool {
	return value.Contains(c.values, path)
}

// Keys returns the top-level keys in document order.
func (c *Config) Keys() []string {
	return c.values.Keys()
}

// Modified reports whether values changed since load or the last MarkClean.
func (c *Config) Modified() bool { return c.modified }

// MarkClean clears the modification flag.
func (c *Config) MarkClean() { c.modified = false }

// SourcePath returns the file the config was loaded from, if any.
func (c *Config) SourcePath() string { return c.sourcePath }

// Values returns the resolved value tree.
func (c *Config) Values() *value.Table { return c.values }

// Document returns the parsed AST, for tooling and serialization.
func (c *Config) Document() *ast.Document { return c.doc }

// ValidateSchema checks the resolved values against a schema.
func (c *Config) ValidateSchema(s *schema.Schema) error {
	return s.Validate(c.values)
}

// Merge deep-merges another config into this one. Tables merge key by key;
// any other conflict takes the other config's value.
func (c *Config) Merge(other *Config) {
	mergeTables(c.values, other.values)
	c.modified = true
}

func mergeTables(dst, src *value.Table) {
	src.Range(func(key string, v value.Value) bool {
		if srcTbl, ok := v.(*value.Table); ok {
			if existing, found := dst.Get(key); found {
				if dstTbl, ok := existing.(*value.Table); ok {
					mergeTables(dstTbl, srcTbl)
					return true
				}
			}
		}
		dst.Set(key, v)
		return true
	})
}

// Save writes the config back to its source file. An unmodified config
// round-trips through the format-preserving serializer; a modified one is
// re-encoded from its values.
func (c *Config) Save() error {
	if c.sourcePath == "" {
		return errs.NewValidationError("config has no source path; use SaveTo", "")
	}
	return c.SaveTo(c.sourcePath)
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	var text string
	if c.modified || c.doc == nil {
		text = serializer.Encode(c.values)
	} else {
		var err error
		text, err = serializer.Serialize(c.doc)
		if err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return errs.NewIOError(path, err)
	}
	c.modified = false
	return nil
}

// Reload re-reads the source file, replacing the document and values.
// Pending in-memory modifications are discarded.
func (c *Config) Reload() error {
	if c.sourcePath == "" {
		return errs.NewValidationError("config has no source path", "")
	}
	data, err := os.ReadFile(c.sourcePath)
	if err != nil {
		return errs.NewIOError(c.sourcePath, err)
	}
	fresh, err := load(string(data), c.sourcePath, c.resolverOpts)
	if err != nil {
		return err
	}
	*c = *fresh
	return nil
}
