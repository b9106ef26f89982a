package config

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "funcmap.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := write(t, `
[analysis]
max_funcs = 100
entries = ["0x1000", "0x2000"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Analysis.MaxFuncs != 100 {
		t.Errorf("max_funcs = %d, want 100", cfg.Analysis.MaxFuncs)
	}
	if len(cfg.Analysis.Entries) != 2 {
		t.Errorf("entries = %v, want 2", cfg.Analysis.Entries)
	}
	// Untouched sections keep defaults.
	if cfg.Render.Dir != "render" || cfg.Render.Title != "funcmap" {
		t.Errorf("render defaults lost: %+v", cfg.Render)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := write(t, `
[analysis]
max_functions = 100
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadRejectsNegativeValues(t *testing.T) {
	path := write(t, `
[analysis]
jobs = -1
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative jobs")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
