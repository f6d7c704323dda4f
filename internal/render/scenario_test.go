package render

import (
	"strings"
	"testing"

	"rollout-trace/internal/rollout"
)

// End-to-end shape check: two rollouts load in lexicographic prompt order and
// the first renders its own prompt, analysis, and final content.
func TestLoadThenRenderFirstRollout(t *testing.T) {
	raw := []byte(strings.Join([]string{
		`{"prompt":{"messages":["sys",{"author":{"role":"user"},"content":{"parts":["B"]}}]},"conversation":{"messages":[{"channel":"analysis","author":{"role":"assistant"},"content":{"text":"thinking"}},{"channel":"final","author":{"role":"assistant"},"content":{"parts":["Answer B"]}}]}}`,
		`{"prompt":{"messages":["sys",{"author":{"role":"user"},"content":{"parts":["A"]}}]},"conversation":{"messages":[{"channel":"analysis","author":{"role":"assistant"},"content":{"text":"thinking"}},{"channel":"final","author":{"role":"assistant"},"content":{"parts":["Answer A"]}}]}}`,
	}, "\n"))

	res, err := rollout.Load(raw, rollout.SchemaWarn)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Rollouts) != 2 {
		t.Fatalf("expected 2 rollouts, got %d", len(res.Rollouts))
	}

	md := Markdown(res.Rollouts[0], 1, len(res.Rollouts), Options{})
	if !strings.Contains(md, "## Rollout 1/2") {
		t.Fatalf("missing header:\n%s", md)
	}
	if !strings.Contains(md, "A\n") || strings.Contains(md, "Answer B") {
		t.Fatalf("expected the A-record to render first:\n%s", md)
	}
	if !strings.Contains(md, "thinking") {
		t.Fatalf("missing analysis content:\n%s", md)
	}
	if !strings.Contains(md, "Answer A") {
		t.Fatalf("missing final content:\n%s", md)
	}
}
