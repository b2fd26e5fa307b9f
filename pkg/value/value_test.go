package value

import (
	"testing"

	"github.com/noml-lang/noml-go/pkg/errs"
)

func TestTable_Order(t *testing.T) {
	tbl := NewTable()
	tbl.Set("c", Integer(1))
	tbl.Set("a", Integer(2))
	tbl.Set("b", Integer(3))
	tbl.Set("a", Integer(4)) // overwrite keeps position

	want := []string{"c", "a", "b"}
	got := tbl.Keys()
	if len(got) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(got))
	}
	for i, k := range want {
		if got[i] != k {
			t.Errorf("key %d: expected %q, got %q", i, k, got[i])
		}
	}

	v, ok := tbl.Get("a")
	if !ok || v.(Integer) != 4 {
		t.Errorf("overwrite should update the value, got %v", v)
	}

	if _, ok := tbl.Delete("a"); !ok {
		t.Fatal("Delete should report the key existed")
	}
	if tbl.Len() != 2 || tbl.Keys()[0] != "c" || tbl.Keys()[1] != "b" {
		t.Errorf("Delete should preserve remaining order, got %v", tbl.Keys())
	}
}

func TestTable_Range(t *testing.T) {
	tbl := NewTable()
	tbl.Set("one", Integer(1))
	tbl.Set("two", Integer(2))
	tbl.Set("three", Integer(3))

	var visited []string
	tbl.Range(func(key string, v Value) bool {
		visited = append(visited, key)
		return key != "two"
	})
	if len(visited) != 2 || visited[1] != "two" {
		t.Errorf("Range should stop when fn returns false, visited %v", visited)
	}
}

func TestGet(t *testing.T) {
	inner := NewTable()
	inner.Set("port", Integer(8080))
	root := NewTable()
	root.Set("server", inner)
	root.Set("hosts", Array{String("a"), String("b")})

	v, err := Get(root, "server.port")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.(Integer) != 8080 {
		t.Errorf("expected 8080, got %v", v)
	}

	v, err = Get(root, "hosts.1")
	if err != nil {
		t.Fatalf("Get with array index failed: %v", err)
	}
	if v.(String) != "b" {
		t.Errorf("expected \"b\", got %v", v)
	}

	_, err = Get(root, "server.missing")
	if !errs.IsKind(err, errs.KindKeyNotFound) {
		t.Errorf("expected key-not-found, got %v", err)
	}

	_, err = Get(root, "hosts.9")
	if !errs.IsKind(err, errs.KindKeyNotFound) {
		t.Errorf("out-of-range index should be key-not-found, got %v", err)
	}

	_, err = Get(root, "server.port.deep")
	if !errs.IsKind(err, errs.KindType) {
		t.Errorf("descending through a scalar should be a type error, got %v", err)
	}
}

func TestSet(t *testing.T) {
	root := NewTable()
	if err := Set(root, "a.b.c", Integer(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := Get(root, "a.b.c")
	if err != nil || v.(Integer) != 1 {
		t.Fatalf("expected 1 at a.b.c, got %v (%v)", v, err)
	}

	// Setting through a scalar fails.
	root.Set("leaf", String("x"))
	if err := Set(root, "leaf.sub", Integer(2)); !errs.IsKind(err, errs.KindType) {
		t.Errorf("expected type error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	root := NewTable()
	if err := Set(root, "a.b", Integer(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	removed, err := Delete(root, "a.b")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if removed.(Integer) != 1 {
		t.Errorf("expected removed value 1, got %v", removed)
	}
	if Contains(root, "a.b") {
		t.Error("a.b should be gone")
	}
	if !Contains(root, "a") {
		t.Error("parent table should survive")
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		in      Value
		want    bool
		wantErr bool
	}{
		{Bool(true), true, false},
		{Integer(1), true, false},
		{Integer(0), false, false},
		{Integer(5), false, true},
		{String("yes"), true, false},
		{String("Off"), false, false},
		{String("maybe"), false, true},
		{Float(1), false, true},
	}
	for _, tt := range tests {
		got, err := AsBool(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("AsBool(%v): expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("AsBool(%v) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestAsInteger(t *testing.T) {
	if v, err := AsInteger(Float(4.0)); err != nil || v != 4 {
		t.Errorf("whole float should convert, got %v, %v", v, err)
	}
	if _, err := AsInteger(Float(4.5)); !errs.IsKind(err, errs.KindType) {
		t.Errorf("fractional float should fail, got %v", err)
	}
	if v, err := AsInteger(Size(2048)); err != nil || v != 2048 {
		t.Errorf("size yields bytes, got %v, %v", v, err)
	}
	if v, err := AsInteger(String("-12")); err != nil || v != -12 {
		t.Errorf("numeric string should parse, got %v, %v", v, err)
	}
}

func TestAsFloat(t *testing.T) {
	if v, err := AsFloat(Integer(2)); err != nil || v != 2.0 {
		t.Errorf("integer widens, got %v, %v", v, err)
	}
	if v, err := AsFloat(Duration(7200)); err != nil || v != 7200.0 {
		t.Errorf("duration yields seconds, got %v, %v", v, err)
	}
	if _, err := AsFloat(Bool(true)); !errs.IsKind(err, errs.KindType) {
		t.Errorf("bool should fail, got %v", err)
	}
}

func TestAsString(t *testing.T) {
	if s, err := AsString(String("x")); err != nil || s != "x" {
		t.Errorf("got %q, %v", s, err)
	}
	if _, err := AsString(Integer(1)); !errs.IsKind(err, errs.KindType) {
		t.Errorf("integers do not coerce to strings, got %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512B"},
		{1024, "1KB"},
		{1048576, "1MB"},
		{1536, "1.50KB"},
		{5 * 1 << 30, "5GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.bytes); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{90, "1.5m"},
		{7200, "2h"},
		{86400, "1d"},
		{0.25, "250ms"},
		{1.5, "1.5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%g) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestValueStrings(t *testing.T) {
	arr := Array{String("a"), Integer(1)}
	if got := arr.String(); got != `["a", 1]` {
		t.Errorf("array rendering: got %q", got)
	}

	tbl := NewTable()
	tbl.Set("k", String("v"))
	if got := tbl.String(); got != `{k = "v"}` {
		t.Errorf("table rendering: got %q", got)
	}

	if got := Binary([]byte{1, 2, 3}).String(); got != "<3 bytes>" {
		t.Errorf("binary rendering: got %q", got)
	}
}
