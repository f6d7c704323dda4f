package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrite_UsesOverrideDirAndSafeName(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	path, err := w.Write("runs/model v2.jsonl", 3, "## Rollout 3/10\n\nbody\n")
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected export under %s, got %s", dir, path)
	}
	if base := filepath.Base(path); base != "runs_model_v2-rollout-3.md" {
		t.Fatalf("unexpected file name %q", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "# Rollout 3 from runs/model v2.jsonl") {
		t.Fatalf("missing document header:\n%s", out)
	}
	if !strings.Contains(out, "## Rollout 3/10") {
		t.Fatalf("missing rollout markdown:\n%s", out)
	}
}

func TestSnippet(t *testing.T) {
	got := Snippet("model.jsonl", 2, 7, "  what   is\n2+2?  ", "/tmp/out.md")
	for _, want := range []string{
		"`model.jsonl` (rollout 2/7)",
		"- Export: `/tmp/out.md`",
		"- Prompt: what is 2+2?",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected snippet to contain %q, got:\n%s", want, got)
		}
	}
}

func TestSnippet_EmptyPreview(t *testing.T) {
	got := Snippet("model.jsonl", 1, 1, "   ", "")
	if !strings.Contains(got, "- Prompt: n/a") {
		t.Fatalf("expected n/a preview, got:\n%s", got)
	}
	if strings.Contains(got, "- Export:") {
		t.Fatalf("expected no export line without a path, got:\n%s", got)
	}
}
