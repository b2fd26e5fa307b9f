package resolver

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/parser"
	"github.com/noml-lang/noml-go/pkg/value"
)

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// resolveInclude loads and resolves an included document, substituting its
// resolved root in place of the include directive. Relative paths resolve
// against the directory of the including file, falling back to the
// configured base path at the root of the chain.
func (r *Resolver) resolveInclude(ctx context.Context, path string) (value.Value, error) {
	if isRemote(path) {
		return r.resolveRemoteInclude(ctx, path)
	}

	abs := path
	if !filepath.IsAbs(path) {
		// A remote parent has no local directory to resolve against.
		if len(r.includeStack) > 0 && isRemote(r.includeStack[len(r.includeStack)-1]) {
			return nil, errs.NewImportError(path, "relative include inside a remote document", nil)
		}
		abs = filepath.Join(r.currentDir(), path)
	}
	if a, err := filepath.Abs(abs); err == nil {
		abs = a
	}

	if slices.Contains(r.includeStack, abs) {
		return nil, errs.NewCircularError(append(slices.Clone(r.includeStack), abs))
	}
	if len(r.includeStack) >= r.opts.MaxIncludeDepth {
		return nil, errs.NewImportError(path, "maximum include depth exceeded", nil)
	}

	r.log.Debug().Str("path", abs).Int("depth", len(r.includeStack)).Msg("resolving include")

	doc, err := parser.ParseFile(abs)
	if err != nil {
		if errs.IsKind(err, errs.KindIO) {
			return nil, errs.NewImportError(path, "file not found", err)
		}
		return nil, errs.NewImportError(path, "parse failed", err)
	}

	r.includeStack = append(r.includeStack, abs)
	defer func() { r.includeStack = r.includeStack[:len(r.includeStack)-1] }()

	v, err := r.resolveNode(ctx, doc.Root)
	if err == nil {
		r.metrics.RecordInclude("file")
	}
	return v, err
}

// currentDir returns the directory relative includes resolve against: the
// directory of the innermost file on the include stack, then the base path,
// then the working directory.
func (r *Resolver) currentDir() string {
	if len(r.includeStack) > 0 {
		return filepath.Dir(r.includeStack[len(r.includeStack)-1])
	}
	if r.opts.BasePath != "" {
		return r.opts.BasePath
	}
	return "."
}

// resolveRemoteInclude serves a remote include from the prefetch cache.
// The synchronous entry point never fetches; callers that want remote
// includes must go through ResolveHTTP.
func (r *Resolver) resolveRemoteInclude(ctx context.Context, url string) (value.Value, error) {
	doc, ok := r.httpDocs[url]
	if !ok {
		return nil, errs.NewImportError(url, "remote includes require ResolveHTTP", nil)
	}
	if slices.Contains(r.includeStack, url) {
		return nil, errs.NewCircularError(append(slices.Clone(r.includeStack), url))
	}
	if len(r.includeStack) >= r.opts.MaxIncludeDepth {
		return nil, errs.NewImportError(url, "maximum include depth exceeded", nil)
	}
	r.includeStack = append(r.includeStack, url)
	defer func() { r.includeStack = r.includeStack[:len(r.includeStack)-1] }()
	v, err := r.resolveNode(ctx, doc.Root)
	if err == nil {
		r.metrics.RecordInclude("remote")
	}
	return v, err
}
