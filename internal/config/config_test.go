package config

import (
	"os"
	"path/filepath"
	"testing"

	"rollout-trace/internal/rollout"
)

func TestParse_FlagsAndFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.jsonl")
	if err := os.WriteFile(file, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Parse([]string{"-schema", "skip", "-plain-final", "-cache-size", "4", file})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.SchemaMode != rollout.SchemaSkip {
		t.Fatalf("expected skip mode, got %v", cfg.SchemaMode)
	}
	if !cfg.PlainFinal || cfg.CacheSize != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Files) != 1 || cfg.Files[0] != file {
		t.Fatalf("unexpected files: %v", cfg.Files)
	}
}

func TestParse_WalksDirectoriesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jsonl", "a.jsonl", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	cfg, err := Parse([]string{dir})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.Files) != 2 {
		t.Fatalf("expected 2 jsonl files, got %v", cfg.Files)
	}
	if filepath.Base(cfg.Files[0]) != "a.jsonl" || filepath.Base(cfg.Files[1]) != "b.jsonl" {
		t.Fatalf("expected sorted jsonl files, got %v", cfg.Files)
	}
}

func TestParse_RejectsBadSchemaMode(t *testing.T) {
	if _, err := Parse([]string{"-schema", "never"}); err == nil {
		t.Fatalf("expected error for invalid schema mode")
	}
}

func TestParse_MissingInput(t *testing.T) {
	if _, err := Parse([]string{"/does/not/exist.jsonl"}); err == nil {
		t.Fatalf("expected error for missing input file")
	}
}
