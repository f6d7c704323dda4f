package ui

import (
	"reflect"
	"testing"

	"rollout-trace/internal/rollout"
)

func resultWithPrompts(prompts ...string) rollout.Result {
	var res rollout.Result
	for _, p := range prompts {
		res.Rollouts = append(res.Rollouts, rollout.Rollout{
			Prompt: rollout.Thread{Messages: []rollout.Message{
				{},
				{Author: rollout.Author{Role: "user"}, Content: rollout.Content{Parts: []string{p}}},
			}},
		})
	}
	return res
}

func TestTabLabels_DisambiguatesDuplicates(t *testing.T) {
	got := TabLabels([]string{
		"/runs/a/model.jsonl",
		"/runs/b/model.jsonl",
		"/runs/other.jsonl",
		"/runs/c/model.jsonl",
	})
	want := []string{"model.jsonl", "model.jsonl (2)", "other.jsonl", "model.jsonl (3)"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("labels mismatch: got=%v want=%v", got, want)
	}
}

func TestTab_SetItemsDefaultsToFirstRollout(t *testing.T) {
	tb := newTab("model.jsonl", "/tmp/model.jsonl")
	tb.loaded = true
	tb.result = resultWithPrompts("A", "B", "C")

	tb.setItems(nil)
	if got := tb.selectedPos(); got != 1 {
		t.Fatalf("expected default selection 1, got %d", got)
	}
	if got := len(tb.list.Items()); got != 3 {
		t.Fatalf("expected 3 items, got %d", got)
	}
}

func TestTab_SetItemsFilterKeepsSelectionWhenPossible(t *testing.T) {
	tb := newTab("model.jsonl", "/tmp/model.jsonl")
	tb.loaded = true
	tb.result = resultWithPrompts("A", "B", "C", "D")
	tb.setItems(nil)
	tb.list.Select(2) // position 3

	tb.setItems([]int{1, 3})
	if got := tb.selectedPos(); got != 3 {
		t.Fatalf("expected selection to survive filter, got %d", got)
	}

	tb.setItems([]int{2})
	if got := tb.selectedPos(); got != 2 {
		t.Fatalf("expected selection to fall back to first match, got %d", got)
	}
}

func TestTab_SetItemsIgnoresOutOfRangePositions(t *testing.T) {
	tb := newTab("model.jsonl", "/tmp/model.jsonl")
	tb.loaded = true
	tb.result = resultWithPrompts("A", "B")

	tb.setItems([]int{0, 2, 9})
	if got := len(tb.list.Items()); got != 1 {
		t.Fatalf("expected only in-range positions, got %d items", got)
	}
	if got := tb.selectedPos(); got != 2 {
		t.Fatalf("expected position 2 selected, got %d", got)
	}
}

func TestPromptPreview_CollapsesWhitespaceAndTruncates(t *testing.T) {
	r := rollout.Rollout{
		Prompt: rollout.Thread{Messages: []rollout.Message{
			{},
			{Content: rollout.Content{Parts: []string{"  what\n\tis   love  "}}},
		}},
	}
	if got := promptPreview(r); got != "what is love" {
		t.Fatalf("unexpected preview %q", got)
	}

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	r.Prompt.Messages[1].Content.Parts[0] = string(long)
	if got := promptPreview(r); len(got) != 80 {
		t.Fatalf("expected 80-char truncated preview, got %d", len(got))
	}
}
