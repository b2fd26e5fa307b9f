// Package resolver turns a parsed document into a fully literal value tree.
// It owns environment lookup, the typed-literal registry, include handling
// with cycle and depth control, and ${path} interpolation. A Resolver
// instance carries per-resolution state and must not be shared across
// concurrent callers.
package resolver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noml-lang/noml-go/pkg/ast"
	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/telemetry"
	"github.com/noml-lang/noml-go/pkg/value"
)

// NativeFunc converts the resolved arguments of a @type(...) literal into a
// final value.
type NativeFunc func(args []value.Value) (value.Value, error)

// Options configures a Resolver.
type Options struct {
	// BasePath is the directory relative include paths resolve against when
	// the document itself has no source path.
	BasePath string

	// Env overrides the process environment for env(...) lookups when
	// non-nil.
	Env map[string]string

	// MaxIncludeDepth bounds the include chain. Zero means the default of 10.
	MaxIncludeDepth int

	// AllowMissingEnv makes env(...) without a default yield null instead of
	// failing when the variable is unset.
	AllowMissingEnv bool

	// HTTPTimeout bounds each remote include fetch. Zero means 30s.
	HTTPTimeout time.Duration

	// Logger receives debug-level resolution events. Disabled when unset.
	Logger zerolog.Logger

	// Metrics receives pipeline counters and timings. Disabled when unset.
	Metrics *telemetry.Metrics

	// Tracer creates spans around resolution and remote fetches. Disabled
	// when unset.
	Tracer *telemetry.Tracer
}

const (
	defaultMaxIncludeDepth = 10
	defaultHTTPTimeout     = 30 * time.Second
)

// Resolver resolves documents. Create one per resolution with New.
type Resolver struct {
	opts    Options
	natives map[string]NativeFunc
	log     zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	// variables is the interpolation context, keyed by top-level binding
	// name. It is seeded from scalar bindings and updated as the walk
	// resolves each top-level entry in order.
	variables *value.Table

	// includeStack holds the absolute paths currently being included, for
	// cycle detection and depth control.
	includeStack []string

	// httpDocs holds prefetched remote includes, keyed by URL. Populated
	// only by ResolveHTTP.
	httpDocs map[string]*ast.Document
}

// New creates a resolver with the built-in typed literals registered.
func New(opts Options) *Resolver {
	if opts.MaxIncludeDepth <= 0 {
		opts.MaxIncludeDepth = defaultMaxIncludeDepth
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = defaultHTTPTimeout
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics, _ = telemetry.NewMetrics(telemetry.MetricsConfig{})
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer, _ = telemetry.NewTracer(telemetry.TracingConfig{}, "noml", "", "")
	}
	r := &Resolver{
		opts:      opts,
		natives:   make(map[string]NativeFunc),
		log:       opts.Logger,
		metrics:   metrics,
		tracer:    tracer,
		variables: value.NewTable(),
		httpDocs:  make(map[string]*ast.Document),
	}
	r.registerBuiltins()
	return r
}

// Register adds or replaces a typed-literal resolver. Must be called before
// Resolve.
func (r *Resolver) Register(name string, fn NativeFunc) {
	r.natives[name] = fn
}

// Resolve walks the document and produces its value tree. Remote includes
// are rejected here; use ResolveHTTP for documents that fetch over the
// network.
func (r *Resolver) Resolve(ctx context.Context, doc *ast.Document) (value.Value, error) {
	if doc == nil || doc.Root == nil {
		return nil, errs.NewInternalError("resolve called with empty document", nil)
	}
	ctx, span := r.tracer.StartResolveSpan(ctx, doc.SourcePath)
	defer span.End()

	if doc.SourcePath != "" {
		abs := doc.SourcePath
		if a, err := filepath.Abs(abs); err == nil {
			abs = a
		}
		r.includeStack = append(r.includeStack, abs)
		defer func() { r.includeStack = r.includeStack[:len(r.includeStack)-1] }()
	}
	r.seedVariables(doc.Root)
	start := time.Now()
	v, err := r.resolveRoot(ctx, doc.Root)
	r.metrics.RecordResolve(time.Since(start), err)
	if err != nil {
		r.metrics.RecordError(errs.CategoryOf(err))
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.RecordSuccess(span)
	return v, nil
}

// seedVariables pre-binds top-level literal scalars so interpolations can
// reference bindings that appear later in the file.
func (r *Resolver) seedVariables(root *ast.Node) {
	tbl, ok := root.Value.(ast.Table)
	if !ok {
		return
	}
	for _, e := range tbl.Entries {
		name := strings.Join(e.Key.Names(), ".")
		switch v := e.Value.Value.(type) {
		case ast.Null:
			r.variables.Set(name, value.Null{})
		case ast.Bool:
			r.variables.Set(name, value.Bool(v.Value))
		case ast.Integer:
			r.variables.Set(name, value.Integer(v.Value))
		case ast.Float:
			r.variables.Set(name, value.Float(v.Value))
		case ast.String:
			if !strings.Contains(v.Value, "${") {
				r.variables.Set(name, value.String(v.Value))
			}
		}
	}
}

// resolveRoot resolves the root table, refreshing the variable context
// after each top-level entry so later interpolations see earlier results.
func (r *Resolver) resolveRoot(ctx context.Context, root *ast.Node) (value.Value, error) {
	tbl, ok := root.Value.(ast.Table)
	if !ok {
		return nil, errs.NewInternalError("document root is not a table", nil)
	}
	out := value.NewTable()
	for _, e := range tbl.Entries {
		resolved, err := r.resolveNode(ctx, e.Value)
		if err != nil {
			return nil, err
		}
		path := strings.Join(e.Key.Names(), ".")
		if err := value.Set(out, path, resolved); err != nil {
			return nil, err
		}
		if len(e.Key.Names()) == 1 {
			r.variables.Set(e.Key.Names()[0], resolved)
		}
	}
	return out, nil
}

// resolveNode resolves a single node into a value, eliminating every
// dynamic construct or failing.
func (r *Resolver) resolveNode(ctx context.Context, n *ast.Node) (value.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.NewInternalError("resolution canceled", err)
	}
	switch v := n.Value.(type) {
	case ast.Null:
		return value.Null{}, nil
	case ast.Bool:
		return value.Bool(v.Value), nil
	case ast.Integer:
		return value.Integer(v.Value), nil
	case ast.Float:
		return value.Float(v.Value), nil
	case ast.String:
		return r.resolveString(v.Value)
	case ast.Array:
		out := make(value.Array, 0, len(v.Elements))
		for _, el := range v.Elements {
			rv, err := r.resolveNode(ctx, el)
			if err != nil {
				return nil, err
			}
			out = append(out, rv)
		}
		return out, nil
	case ast.Table:
		out := value.NewTable()
		for _, e := range v.Entries {
			rv, err := r.resolveNode(ctx, e.Value)
			if err != nil {
				return nil, err
			}
			if err := value.Set(out, strings.Join(e.Key.Names(), "."), rv); err != nil {
				return nil, err
			}
		}
		return out, nil
	case ast.FunctionCall:
		return r.resolveFunction(ctx, v)
	case ast.Native:
		return r.resolveNative(ctx, v)
	case ast.Interpolation:
		return r.lookupPath(v.Path)
	case ast.Include:
		return r.resolveInclude(ctx, v.Path)
	default:
		return nil, errs.NewInternalError("unknown AST value variant", nil)
	}
}

// resolveFunction evaluates env(name[, default]). Other call names are
// rejected; the grammar only produces env today.
func (r *Resolver) resolveFunction(ctx context.Context, call ast.FunctionCall) (value.Value, error) {
	if call.Name != "env" {
		return nil, errs.NewValidationError("unknown function "+call.Name, "")
	}
	if len(call.Args) < 1 || len(call.Args) > 2 {
		return nil, errs.NewValidationError("env() takes one or two arguments", "")
	}
	nameVal, err := r.resolveNode(ctx, call.Args[0])
	if err != nil {
		return nil, err
	}
	name, err := value.AsString(nameVal)
	if err != nil {
		return nil, errs.NewValidationError("env() variable name must be a string", "")
	}

	if got, ok := r.lookupEnv(name); ok {
		return value.String(got), nil
	}
	if len(call.Args) == 2 {
		return r.resolveNode(ctx, call.Args[1])
	}
	if r.opts.AllowMissingEnv {
		r.log.Debug().Str("variable", name).Msg("missing environment variable resolved to null")
		return value.Null{}, nil
	}
	return nil, errs.NewEnvVarError(name, false)
}

func (r *Resolver) lookupEnv(name string) (string, bool) {
	if r.opts.Env != nil {
		v, ok := r.opts.Env[name]
		return v, ok
	}
	return os.LookupEnv(name)
}

// resolveNative resolves the arguments of @type(...) and dispatches to the
// registered resolver for the type name.
func (r *Resolver) resolveNative(ctx context.Context, nat ast.Native) (value.Value, error) {
	fn, ok := r.natives[nat.TypeName]
	if !ok {
		return nil, errs.NewValidationError("unknown typed literal @"+nat.TypeName, "")
	}
	args := make([]value.Value, 0, len(nat.Args))
	for _, a := range nat.Args {
		rv, err := r.resolveNode(ctx, a)
		if err != nil {
			return nil, err
		}
		args = append(args, rv)
	}
	return fn(args)
}
