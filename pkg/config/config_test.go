package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noml-lang/noml-go/pkg/errs"
	"github.com/noml-lang/noml-go/pkg/schema"
	"github.com/noml-lang/noml-go/pkg/value"
)

const sample = `
name = "app"
debug = false

[server]
host = "localhost"
port = 8080
timeout = @duration("30s")
`

func TestFromString(t *testing.T) {
	cfg, err := FromString(sample)
	require.NoError(t, err)

	name, err := cfg.GetString("name")
	require.NoError(t, err)
	assert.Equal(t, "app", name)

	port, err := cfg.GetInt("server.port")
	require.NoError(t, err)
	assert.Equal(t, int64(8080), port)

	debug, err := cfg.GetBool("debug")
	require.NoError(t, err)
	assert.False(t, debug)

	timeout, err := cfg.GetFloat("server.timeout")
	require.NoError(t, err)
	assert.Equal(t, 30.0, timeout)

	assert.True(t, cfg.Contains("server.host"))
	assert.False(t, cfg.Contains("server.missing"))
	assert.Equal(t, []string{"name", "debug", "server"}, cfg.Keys())
}

func TestFromString_Errors(t *testing.T) {
	_, err := FromString("key = \n")
	assert.True(t, errs.IsKind(err, errs.KindParse))

	_, err = FromString("x = env(\"NOML_CONFIG_TEST_UNSET_VAR\")\n")
	assert.True(t, errs.IsKind(err, errs.KindEnvVar))
}

func TestGetOr(t *testing.T) {
	cfg, err := FromString("a = 1\n")
	require.NoError(t, err)

	assert.Equal(t, value.Integer(1), cfg.GetOr("a", value.Integer(9)))
	assert.Equal(t, value.Integer(9), cfg.GetOr("b", value.Integer(9)))
}

func TestSetRemoveModified(t *testing.T) {
	cfg, err := FromString(sample)
	require.NoError(t, err)
	assert.False(t, cfg.Modified())

	require.NoError(t, cfg.Set("server.port", value.Integer(9090)))
	assert.True(t, cfg.Modified())
	port, _ := cfg.GetInt("server.port")
	assert.Equal(t, int64(9090), port)

	require.NoError(t, cfg.Set("feature.flags.beta", value.Bool(true)))
	assert.True(t, cfg.Contains("feature.flags.beta"))

	removed, err := cfg.Remove("debug")
	require.NoError(t, err)
	assert.Equal(t, value.Bool(false), removed)
	assert.False(t, cfg.Contains("debug"))

	cfg.MarkClean()
	assert.False(t, cfg.Modified())
}

func TestMerge(t *testing.T) {
	base, err := FromString("a = 1\n\n[server]\nhost = \"x\"\nport = 80\n")
	require.NoError(t, err)
	over, err := FromString("b = 2\n\n[server]\nport = 8080\n")
	require.NoError(t, err)

	base.Merge(over)

	host, _ := base.GetString("server.host")
	assert.Equal(t, "x", host, "keys absent from the overlay survive")
	port, _ := base.GetInt("server.port")
	assert.Equal(t, int64(8080), port, "overlay wins on conflicts")
	b, _ := base.GetInt("b")
	assert.Equal(t, int64(2), b)
	assert.True(t, base.Modified())
}

func TestValidateSchema(t *testing.T) {
	cfg, err := FromString("name = \"x\"\n")
	require.NoError(t, err)

	ok := schema.NewBuilder().RequireString("name").Build()
	assert.NoError(t, cfg.ValidateSchema(ok))

	strict := schema.NewBuilder().RequireString("name").RequireInteger("port").Build()
	assert.Error(t, cfg.ValidateSchema(strict))
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.noml")
	src := "# about\nname = \"app\" # inline\nport = 8080\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := FromFile(path)
	require.NoError(t, err)

	// Unmodified saves preserve comments and layout.
	require.NoError(t, cfg.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, src, string(data))

	// Modified saves re-encode from values.
	require.NoError(t, cfg.Set("port", value.Integer(9090)))
	require.NoError(t, cfg.Save())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "port = 9090")
	assert.False(t, cfg.Modified())

	reloaded, err := FromFile(path)
	require.NoError(t, err)
	port, _ := reloaded.GetInt("port")
	assert.Equal(t, int64(9090), port)
}

func TestReloadDiscardsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.noml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0o644))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Set("a", value.Integer(2)))

	require.NoError(t, cfg.Reload())
	a, _ := cfg.GetInt("a")
	assert.Equal(t, int64(1), a)
	assert.False(t, cfg.Modified())
}

func TestBuilder(t *testing.T) {
	cfg, err := NewBuilder().
		Env(map[string]string{"APP_MODE": "prod"}).
		Default("retries", value.Integer(3)).
		Default("name", value.String("ignored")).
		BuildFromString("name = \"set\"\nmode = env(\"APP_MODE\")\n")
	require.NoError(t, err)

	mode, _ := cfg.GetString("mode")
	assert.Equal(t, "prod", mode)
	retries, _ := cfg.GetInt("retries")
	assert.Equal(t, int64(3), retries)
	name, _ := cfg.GetString("name")
	assert.Equal(t, "set", name, "defaults never override present values")
}

func TestBuilder_AllowMissingEnv(t *testing.T) {
	cfg, err := NewBuilder().
		Env(map[string]string{}).
		AllowMissingEnv().
		BuildFromString("x = env(\"NOML_CONFIG_TEST_UNSET_VAR\")\n")
	require.NoError(t, err)
	v, err := cfg.Get("x")
	require.NoError(t, err)
	assert.Equal(t, value.KindNull, v.Kind())
}

func TestBuilder_SchemaRejects(t *testing.T) {
	s := schema.NewBuilder().RequireInteger("port").Build()
	_, err := NewBuilder().Schema(s).BuildFromString("port = \"eighty\"\n")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindSchema))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.noml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1\n"), 0o644))

	cfg, err := FromFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changed := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		cfg.Watch(ctx, func(_ *Config, err error) {
			select {
			case changed <- err:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("a = 2\n"), 0o644))

	select {
	case err := <-changed:
		require.NoError(t, err)
		a, _ := cfg.GetInt("a")
		assert.Equal(t, int64(2), a)
	case <-ctx.Done():
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	<-done
}
