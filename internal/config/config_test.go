package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basicmemory/basic-memory/schemas"
)

func TestLoadFallsBackToDefaultWhenNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultTimeframe != "7d" || cfg.DefaultDepth != 2 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if len(cfg.IgnoreGlobs) == 0 {
		t.Fatal("expected default ignore globs")
	}
}

func TestLoadMergesPartialUserConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := EnsureLayout(dir); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	content := `{
		"schemaVersion": "1.0.0",
		"kind": "basic-memory/config",
		"ignoreGlobs": ["custom/**"],
		"defaultDepth": 3
	}`
	if err := os.WriteFile(ConfigPath(dir), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultDepth != 3 {
		t.Fatalf("expected user-supplied depth 3, got %d", cfg.DefaultDepth)
	}
	if cfg.DefaultTimeframe != "7d" {
		t.Fatalf("expected default timeframe to fill in, got %q", cfg.DefaultTimeframe)
	}
	if len(cfg.IgnoreGlobs) != 1 || cfg.IgnoreGlobs[0] != "custom/**" {
		t.Fatalf("expected user ignoreGlobs to override default, got %v", cfg.IgnoreGlobs)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := EnsureLayout(dir); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	if err := os.WriteFile(ConfigPath(dir), []byte(`{"kind": "wrong-kind"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected validation error for wrong kind")
	}
}

func TestWriteTemplateThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	if _, err := EnsureLayout(dir); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	if err := WriteTemplate(ConfigPath(dir), false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load written template: %v", err)
	}
	if cfg.Kind != "basic-memory/config" {
		t.Fatalf("unexpected kind %q", cfg.Kind)
	}

	// A second WriteTemplate call without overwrite must not touch the file.
	original, _ := os.ReadFile(ConfigPath(dir))
	if err := WriteTemplate(ConfigPath(dir), false); err != nil {
		t.Fatalf("second write template: %v", err)
	}
	after, _ := os.ReadFile(ConfigPath(dir))
	if string(original) != string(after) {
		t.Fatal("expected WriteTemplate to skip an existing file when allowOverwrite is false")
	}
}

func TestCopySchemasWritesEmbeddedContent(t *testing.T) {
	dir := t.TempDir()
	if _, err := EnsureLayout(dir); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	if err := CopySchemas(dir); err != nil {
		t.Fatalf("copy schemas: %v", err)
	}

	embedded, err := schemas.List()
	if err != nil {
		t.Fatalf("list schemas: %v", err)
	}
	for name, want := range embedded {
		got, err := os.ReadFile(filepath.Join(dir, DirName, "schemas", name+".schema.json"))
		if err != nil {
			t.Fatalf("read copied schema %s: %v", name, err)
		}
		if string(got) != string(want) {
			t.Fatalf("schema %s not copied verbatim", name)
		}
	}
}

func TestMergeGlobsDedupesAndPreservesOrder(t *testing.T) {
	defaults := []string{"a", "b"}
	user := []string{"b", "c", "  ", ""}
	merged := MergeGlobs(defaults, user)

	expected := []string{"a", "b", "c"}
	if !equalSlices(merged, expected) {
		t.Errorf("got %v, want %v", merged, expected)
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNormalizeGlob(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"  foo/bar  ", "foo/bar"},
		{"foo\\\\bar", "foo/bar"},
		{"foo//bar", "foo/bar"},
		{"", ""},
		{"  ", ""},
	}
	for _, c := range cases {
		got := normalizeGlob(c.input)
		if got != c.expected {
			t.Errorf("normalizeGlob(%q) = %q, want %q", c.input, got, c.expected)
		}
	}
}

func TestEnsureLayoutErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")
	os.WriteFile(path, []byte("test"), 0o644)

	_, err := EnsureLayout(filepath.Join(path, "subdir"))
	if err == nil {
		t.Error("expected error when root path prefix is a file")
	}
}

func TestDBPathAndConfigPath(t *testing.T) {
	root := "/repo"
	if got := DBPath(root); got != filepath.Join(root, DirName, "memory.db") {
		t.Errorf("DBPath = %q", got)
	}
	if got := ConfigPath(root); got != filepath.Join(root, DirName, "config.jsonc") {
		t.Errorf("ConfigPath = %q", got)
	}
}

func TestDefaultIgnoreGlobsContainsVCSAndDepDirs(t *testing.T) {
	globs := strings.Join(DefaultIgnoreGlobs(), ",")
	for _, want := range []string{".git/**", "node_modules/**", "vendor/**"} {
		if !strings.Contains(globs, want) {
			t.Errorf("expected default ignore globs to contain %q", want)
		}
	}
}
