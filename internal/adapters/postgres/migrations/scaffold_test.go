package migrations

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	got, err := NormalizeName("  Add Profile Index ")
	if err != nil || got != "add_profile_index" {
		t.Fatalf("NormalizeName()=%q,%v", got, err)
	}
	for _, bad := range []string{"", "drop;table", "../escape"} {
		if _, err := NormalizeName(bad); err == nil {
			t.Fatalf("NormalizeName(%q) expected error", bad)
		}
	}
}

func TestNextVersion(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, 2, 27, 15, 0, 0, 0, time.UTC)
	existing := []string{
		"20250226_000009_older.up.sql",
		"20250227_000001_first.up.sql",
		"20250227_000001_first.down.sql",
		"20250227_000003_third.up.sql",
		"README.md",
	}
	if got := NextVersion(existing, day); got != "20250227_000004" {
		t.Fatalf("NextVersion()=%q", got)
	}
	if got := NextVersion(nil, day); got != "20250227_000001" {
		t.Fatalf("NextVersion(empty)=%q", got)
	}
}

func TestScaffold(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC)

	up, down, err := Scaffold(dir, "Create Widgets", now)
	if err != nil {
		t.Fatalf("Scaffold: %v", err)
	}
	if filepath.Base(up) != "20250227_000001_create_widgets.up.sql" || filepath.Base(down) != "20250227_000001_create_widgets.down.sql" {
		t.Fatalf("unexpected paths: %s %s", up, down)
	}

	up2, _, err := Scaffold(dir, "create widgets", now)
	if err != nil {
		t.Fatalf("second Scaffold: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(up2), "20250227_000002_") {
		t.Fatalf("serial not incremented: %s", up2)
	}

	// Scaffolded files must load as a valid migration set.
	ms, err := Load(os.DirFS(dir))
	if err != nil {
		t.Fatalf("Load scaffolded: %v", err)
	}
	if len(ms) != 2 || ms[0].Version != "20250227_000001" {
		t.Fatalf("unexpected migrations: %+v", ms)
	}
}

func TestWriteNew_RefusesOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "20250227_000001_x.up.sql")
	if err := writeNew(path, "-- first"); err != nil {
		t.Fatalf("writeNew: %v", err)
	}
	if err := writeNew(path, "-- second"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "-- first" {
		t.Fatalf("file was overwritten: %q", raw)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"20250101_000002_b.up.sql":   {Data: []byte("SELECT 2;")},
		"20250101_000001_a.up.sql":   {Data: []byte("SELECT 1;")},
		"20250101_000001_a.down.sql": {Data: []byte("SELECT -1;")},
		"notes.txt":                  {Data: []byte("ignored")},
	}
	ms, err := Load(fsys)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ms) != 2 || ms[0].Name != "a" || ms[1].Name != "b" {
		t.Fatalf("unexpected order: %+v", ms)
	}
	if ms[0].Down != "SELECT -1;" || ms[1].Down != "" {
		t.Fatalf("unexpected down scripts: %+v", ms)
	}
}

func TestLoad_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]fstest.MapFS{
		"bad name":     {"create_profiles.sql": {Data: []byte("x")}},
		"down only":    {"20250101_000001_a.down.sql": {Data: []byte("x")}},
		"name clash":   {"20250101_000001_a.up.sql": {Data: []byte("x")}, "20250101_000001_b.down.sql": {Data: []byte("x")}},
		"empty up.sql": {"20250101_000001_a.up.sql": {Data: []byte("  ")}},
	}
	for name, fsys := range cases {
		if _, err := Load(fsys); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestEmbedded(t *testing.T) {
	t.Parallel()

	ms, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded: %v", err)
	}
	if len(ms) < 2 || ms[0].Name != "create_profiles" || ms[0].Down == "" {
		t.Fatalf("unexpected embedded migrations: %+v", ms)
	}
}
