package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/parser"
	"github.com/noml-lang/noml-go/pkg/telemetry"
	"github.com/noml-lang/noml-go/pkg/value"
)

// resolveSource parses and resolves an in-memory document.
func resolveSource(t *testing.T, source string, opts Options) *value.Table {
	t.Helper()
	doc, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v, err := New(opts).Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	return v.(*value.Table)
}

// resolveErr parses and resolves, expecting a failure.
func resolveErr(t *testing.T, source string, opts Options) error {
	t.Helper()
	doc, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = New(opts).Resolve(context.Background(), doc)
	if err == nil {
		t.Fatalf("expected resolution of %q to fail", source)
	}
	return err
}

func mustGet(t *testing.T, root *value.Table, path string) value.Value {
	t.Helper()
	v, err := value.Get(root, path)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", path, err)
	}
	return v
}

func TestResolve_Literals(t *testing.T) {
	root := resolveSource(t, `
name = "app"
port = 8080
ratio = 0.5
on = true
off = null
list = [1, "two", true]
point = { x = 1, y = 2 }
`, Options{})

	if v := mustGet(t, root, "name"); v.(value.String) != "app" {
		t.Errorf("name: %v", v)
	}
	if v := mustGet(t, root, "port"); v.(value.Integer) != 8080 {
		t.Errorf("port: %v", v)
	}
	if v := mustGet(t, root, "off"); v.Kind() != value.KindNull {
		t.Errorf("off: %v", v)
	}
	if v := mustGet(t, root, "list.1"); v.(value.String) != "two" {
		t.Errorf("list.1: %v", v)
	}
	if v := mustGet(t, root, "point.y"); v.(value.Integer) != 2 {
		t.Errorf("point.y: %v", v)
	}
}

func TestResolve_DottedKeysExpand(t *testing.T) {
	root := resolveSource(t, "server.http.port = 80\nserver.http.host = \"x\"\n", Options{})
	if v := mustGet(t, root, "server.http.port"); v.(value.Integer) != 80 {
		t.Errorf("port: %v", v)
	}
	// Both bindings land in the same nested table.
	tbl := mustGet(t, root, "server.http").(*value.Table)
	if tbl.Len() != 2 {
		t.Errorf("expected 2 entries under server.http, got %d", tbl.Len())
	}
}

func TestResolve_Sections(t *testing.T) {
	root := resolveSource(t, `
[server]
host = "localhost"

[server.tls]
enabled = true

[[workers]]
id = 1

[[workers]]
id = 2
`, Options{})

	if v := mustGet(t, root, "server.tls.enabled"); v.(value.Bool) != true {
		t.Errorf("tls.enabled: %v", v)
	}
	workers := mustGet(t, root, "workers").(value.Array)
	if len(workers) != 2 {
		t.Fatalf("expected 2 workers, got %d", len(workers))
	}
	if v := mustGet(t, root, "workers.1.id"); v.(value.Integer) != 2 {
		t.Errorf("workers.1.id: %v", v)
	}
}

func TestResolve_Env(t *testing.T) {
	env := map[string]string{"APP_NAME": "renamed"}

	root := resolveSource(t, `
name = env("APP_NAME")
host = env("APP_HOST", "localhost")
port = env("APP_PORT", 8080)
`, Options{Env: env})

	if v := mustGet(t, root, "name"); v.(value.String) != "renamed" {
		t.Errorf("name: %v", v)
	}
	if v := mustGet(t, root, "host"); v.(value.String) != "localhost" {
		t.Errorf("default should kick in: %v", v)
	}
	if v := mustGet(t, root, "port"); v.(value.Integer) != 8080 {
		t.Errorf("non-string default survives as-is: %v", v)
	}
}

func TestResolve_EnvMissing(t *testing.T) {
	err := resolveErr(t, "x = env(\"NOML_TEST_UNSET\")\n", Options{Env: map[string]string{}})
	if !errs.IsKind(err, errs.KindEnvVar) {
		t.Errorf("expected env error, got %v", err)
	}

	root := resolveSource(t, "x = env(\"NOML_TEST_UNSET\")\n", Options{
		Env:             map[string]string{},
		AllowMissingEnv: true,
	})
	if v := mustGet(t, root, "x"); v.Kind() != value.KindNull {
		t.Errorf("AllowMissingEnv should yield null, got %v", v)
	}
}

func TestResolve_EnvFromProcess(t *testing.T) {
	t.Setenv("NOML_TEST_VAR", "from-process")
	root := resolveSource(t, "x = env(\"NOML_TEST_VAR\")\n", Options{})
	if v := mustGet(t, root, "x"); v.(value.String) != "from-process" {
		t.Errorf("got %v", v)
	}
}

func TestResolve_Natives(t *testing.T) {
	root := resolveSource(t, `
mem = @size("1MB")
frac = @size("1.5KB")
wait = @duration("2h")
blip = @duration("150ms")
site = @url("https://example.com/path")
addr = @ip("192.168.1.1")
ver = @semver("1.2.3")
blob = @base64("aGVsbG8=")
id = @uuid("550e8400-e29b-41d4-a716-446655440000")
pat = @regex("^a+$")
`, Options{})

	if v := mustGet(t, root, "mem"); v.(value.Size) != 1048576 {
		t.Errorf("mem: %v", v)
	}
	if v := mustGet(t, root, "frac"); v.(value.Size) != 1536 {
		t.Errorf("frac: %v", v)
	}
	if v := mustGet(t, root, "wait"); v.(value.Duration) != 7200 {
		t.Errorf("wait: %v", v)
	}
	if v := mustGet(t, root, "blip"); v.(value.Duration) != 0.15 {
		t.Errorf("blip: %v", v)
	}
	if v := mustGet(t, root, "site"); v.(value.String) != "https://example.com/path" {
		t.Errorf("site: %v", v)
	}
	if v := mustGet(t, root, "id"); v.(value.String) != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("id: %v", v)
	}
	if v := mustGet(t, root, "pat"); v.(value.String) != "^a+$" {
		t.Errorf("pat: %v", v)
	}
}

func TestResolve_NativeErrors(t *testing.T) {
	bad := []string{
		`x = @size("bogus")`,
		`x = @size("4XB")`,
		`x = @duration("5 fortnights")`,
		`x = @url("ftp://example.com")`,
		`x = @ip("999.1.1.1")`,
		`x = @semver("1")`,
		`x = @semver("a.b.c")`,
		`x = @base64("not base64!")`,
		`x = @uuid("not-a-uuid")`,
		`x = @nope("x")`,
		`x = @size(42)`,
		`x = @size("1MB", "2MB")`,
	}
	for _, src := range bad {
		err := resolveErr(t, src+"\n", Options{})
		if !errs.IsKind(err, errs.KindValidation) {
			t.Errorf("%s: expected validation error, got %v", src, err)
		}
	}
}

func TestResolver_Register(t *testing.T) {
	doc, err := parser.Parse("x = @upper(\"abc\")\n")
	if err != nil {
		t.Fatal(err)
	}
	r := New(Options{})
	r.Register("upper", func(args []value.Value) (value.Value, error) {
		s, err := value.AsString(args[0])
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(s))
		for i := 0; i < len(s); i++ {
			c := s[i]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			out[i] = c
		}
		return value.String(out), nil
	})
	v, err := r.Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got := mustGet(t, v.(*value.Table), "x"); got.(value.String) != "ABC" {
		t.Errorf("got %v", got)
	}
}

func TestResolve_Interpolation(t *testing.T) {
	root := resolveSource(t, `
host = "localhost"
port = 8080
url = "http://${host}:${port}/api"
alias = ${host}
`, Options{})

	if v := mustGet(t, root, "url"); v.(value.String) != "http://localhost:8080/api" {
		t.Errorf("url: %v", v)
	}
	if v := mustGet(t, root, "alias"); v.(value.String) != "localhost" {
		t.Errorf("alias: %v", v)
	}
}

func TestResolve_InterpolationForwardReference(t *testing.T) {
	// Scalar bindings are visible to interpolations earlier in the file.
	root := resolveSource(t, "greeting = \"hello ${name}\"\nname = \"world\"\n", Options{})
	if v := mustGet(t, root, "greeting"); v.(value.String) != "hello world" {
		t.Errorf("greeting: %v", v)
	}
}

func TestResolve_InterpolationIntoContainers(t *testing.T) {
	root := resolveSource(t, `
hosts = ["a", "b"]
first = ${hosts.0}
settings = { retries = 3 }
n = ${settings.retries}
`, Options{})

	if v := mustGet(t, root, "first"); v.(value.String) != "a" {
		t.Errorf("first: %v", v)
	}
	if v := mustGet(t, root, "n"); v.(value.Integer) != 3 {
		t.Errorf("n: %v", v)
	}
}

func TestResolve_InterpolationErrors(t *testing.T) {
	err := resolveErr(t, "a = ${missing}\n", Options{})
	if !errs.IsKind(err, errs.KindInterpolation) {
		t.Errorf("undefined variable: got %v", err)
	}

	err = resolveErr(t, "a = \"${unclosed\"\n", Options{})
	if !errs.IsKind(err, errs.KindInterpolation) {
		t.Errorf("unterminated marker: got %v", err)
	}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestResolve_Include(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.noml":      "name = \"app\"\ndb = include \"sub/db.noml\"\n",
		"sub/db.noml":    "host = \"dbhost\"\ncreds = include \"creds.noml\"\n",
		"sub/creds.noml": "user = \"admin\"\n",
	})

	doc, err := parser.ParseFile(filepath.Join(dir, "main.noml"))
	if err != nil {
		t.Fatal(err)
	}
	v, err := New(Options{}).Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	root := v.(*value.Table)

	if got := mustGet(t, root, "db.host"); got.(value.String) != "dbhost" {
		t.Errorf("db.host: %v", got)
	}
	// Relative paths resolve against the including file, not the root.
	if got := mustGet(t, root, "db.creds.user"); got.(value.String) != "admin" {
		t.Errorf("db.creds.user: %v", got)
	}
}

func TestResolve_IncludeWithBasePath(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"extra.noml": "x = 1\n",
	})
	doc, err := parser.Parse("sub = include \"extra.noml\"\n")
	if err != nil {
		t.Fatal(err)
	}
	v, err := New(Options{BasePath: dir}).Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got := mustGet(t, v.(*value.Table), "sub.x"); got.(value.Integer) != 1 {
		t.Errorf("sub.x: %v", got)
	}
}

func TestResolve_IncludeCycle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.noml": "b = include \"b.noml\"\n",
		"b.noml": "a = include \"a.noml\"\n",
	})

	doc, err := parser.ParseFile(filepath.Join(dir, "a.noml"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(Options{}).Resolve(context.Background(), doc)
	if !errs.IsKind(err, errs.KindCircular) {
		t.Fatalf("expected circular error, got %v", err)
	}
	cerr := err.(*errs.Error)
	if len(cerr.Chain) < 3 {
		t.Errorf("chain should name the cycle, got %v", cerr.Chain)
	}
}

func TestResolve_IncludeSelfCycle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"self.noml": "me = include \"self.noml\"\n",
	})
	doc, err := parser.ParseFile(filepath.Join(dir, "self.noml"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(Options{}).Resolve(context.Background(), doc)
	if !errs.IsKind(err, errs.KindCircular) {
		t.Errorf("expected circular error, got %v", err)
	}
}

func TestResolve_IncludeMissingFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.noml": "x = include \"absent.noml\"\n",
	})
	doc, err := parser.ParseFile(filepath.Join(dir, "main.noml"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(Options{}).Resolve(context.Background(), doc)
	if !errs.IsKind(err, errs.KindImport) {
		t.Errorf("expected import error, got %v", err)
	}
}

func TestResolve_IncludeDepthLimit(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a.noml": "b = include \"b.noml\"\n",
		"b.noml": "c = include \"c.noml\"\n",
		"c.noml": "x = 1\n",
	})
	doc, err := parser.ParseFile(filepath.Join(dir, "a.noml"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(Options{MaxIncludeDepth: 2}).Resolve(context.Background(), doc)
	if !errs.IsKind(err, errs.KindImport) {
		t.Fatalf("expected depth error, got %v", err)
	}

	// The same chain fits under the default limit.
	doc, err = parser.ParseFile(filepath.Join(dir, "a.noml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(Options{}).Resolve(context.Background(), doc); err != nil {
		t.Errorf("default depth should allow a 3-file chain: %v", err)
	}
}

func TestResolve_RemoteIncludeRejectedSync(t *testing.T) {
	doc, err := parser.Parse("x = include \"https://example.com/c.noml\"\n")
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(Options{}).Resolve(context.Background(), doc)
	if !errs.IsKind(err, errs.KindImport) {
		t.Fatalf("expected import error, got %v", err)
	}
}

func TestResolveHTTP(t *testing.T) {
	var nested string
	mux := http.NewServeMux()
	mux.HandleFunc("/leaf.noml", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("deep = true\n"))
	})
	mux.HandleFunc("/mid.noml", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("leaf = include \"" + nested + "\"\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	nested = srv.URL + "/leaf.noml"

	doc, err := parser.Parse("remote = include \"" + srv.URL + "/mid.noml\"\n")
	if err != nil {
		t.Fatal(err)
	}
	v, err := New(Options{}).ResolveHTTP(context.Background(), doc)
	if err != nil {
		t.Fatalf("ResolveHTTP failed: %v", err)
	}
	if got := mustGet(t, v.(*value.Table), "remote.leaf.deep"); got.(value.Bool) != true {
		t.Errorf("remote.leaf.deep: %v", got)
	}
}

func TestResolveHTTP_RelativeIncludeInRemoteDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("local = include \"sibling.noml\"\n"))
	}))
	defer srv.Close()

	doc, err := parser.Parse("x = include \"" + srv.URL + "/remote.noml\"\n")
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(Options{}).ResolveHTTP(context.Background(), doc)
	if !errs.IsKind(err, errs.KindImport) {
		t.Errorf("a remote document has no local directory, expected import error, got %v", err)
	}
}

func TestResolveHTTP_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	doc, err := parser.Parse("x = include \"" + srv.URL + "/gone.noml\"\n")
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(Options{}).ResolveHTTP(context.Background(), doc)
	if !errs.IsKind(err, errs.KindImport) {
		t.Errorf("expected import error, got %v", err)
	}
}

func TestResolve_RecordsTelemetry(t *testing.T) {
	m, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: true, Namespace: "noml"})
	if err != nil {
		t.Fatal(err)
	}

	doc, err := parser.Parse("x = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(Options{Metrics: m}).Resolve(context.Background(), doc); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	bad, err := parser.Parse("x = env(\"UNSET\")\n")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(Options{Metrics: m, Env: map[string]string{}}).Resolve(context.Background(), bad); err == nil {
		t.Fatal("expected env lookup to fail")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		"noml_documents_resolved_total",
		`status="success"`,
		`status="error"`,
		`category="environment"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics exposition missing %q", want)
		}
	}
}

func TestResolve_ContextCancellation(t *testing.T) {
	doc, err := parser.Parse("x = 1\n")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Options{}).Resolve(ctx, doc); err == nil {
		t.Error("canceled context should abort resolution")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	src := `
host = "h"
url = "http://${host}/"
mem = @size("2KB")
`
	first := resolveSource(t, src, Options{})
	second := resolveSource(t, src, Options{})
	if first.String() != second.String() {
		t.Errorf("resolution should be deterministic:\n  %s\n  %s", first, second)
	}
}
