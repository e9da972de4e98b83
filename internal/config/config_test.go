package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9090
index:
  root: ./data
  chunk_size: 500
  chunk_overlap: 80
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Debug {
		t.Error("expected debug true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("host = %q, want default localhost", cfg.Server.Host)
	}
	if cfg.Index.ChunkSize != 500 || cfg.Index.ChunkOverlap != 80 {
		t.Errorf("chunking = %d/%d, want 500/80", cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	}
	if !filepath.IsAbs(cfg.Index.Root) {
		t.Errorf("root not expanded: %q", cfg.Index.Root)
	}
	want := filepath.Join(cfg.Index.Root, ".tansaku", "index.json")
	if cfg.Index.StorePath != want {
		t.Errorf("store path = %q, want %q", cfg.Index.StorePath, want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if cfg.Index.ChunkSize != 800 || cfg.Index.ChunkOverlap != 120 {
		t.Errorf("chunk defaults = %d/%d", cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("dimensions default = %d", cfg.Embedding.Dimensions)
	}
	if len(cfg.Index.Extensions) == 0 {
		t.Error("expected default extensions")
	}
	if cfg.Watch.DebounceMs != 400 {
		t.Errorf("debounce default = %d", cfg.Watch.DebounceMs)
	}
}
