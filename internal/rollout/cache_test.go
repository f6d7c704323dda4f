package rollout

import (
	"reflect"
	"testing"
)

func TestCache_HitAvoidsRecount(t *testing.T) {
	c := NewCache(2)
	raw := []byte(line("A", "x", "y") + "\nnot json\n")

	first, err := c.Load(raw, SchemaWarn)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := c.Load(raw, SchemaWarn)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cache hit differs from original result")
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 cached entry, got %d", c.Len())
	}
}

func TestCache_SchemaModeIsPartOfKey(t *testing.T) {
	c := NewCache(4)
	raw := []byte(`{"prompt":{"messages":["preamble only"]},"conversation":{"messages":[]}}`)

	warn, err := c.Load(raw, SchemaWarn)
	if err != nil {
		t.Fatalf("load warn: %v", err)
	}
	skip, err := c.Load(raw, SchemaSkip)
	if err != nil {
		t.Fatalf("load skip: %v", err)
	}
	if warn.BadSchema != 1 || skip.BadSchema != 0 {
		t.Fatalf("modes must not share cache entries: warn=%+v skip=%+v", warn, skip)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 cached entries, got %d", c.Len())
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)

	a := []byte(line("A", "x", "y"))
	b := []byte(line("B", "x", "y"))
	d := []byte(line("D", "x", "y"))

	if _, err := c.Load(a, SchemaWarn); err != nil {
		t.Fatalf("load a: %v", err)
	}
	if _, err := c.Load(b, SchemaWarn); err != nil {
		t.Fatalf("load b: %v", err)
	}
	// Touch a so b becomes the eviction candidate.
	if _, err := c.Load(a, SchemaWarn); err != nil {
		t.Fatalf("touch a: %v", err)
	}
	if _, err := c.Load(d, SchemaWarn); err != nil {
		t.Fatalf("load d: %v", err)
	}

	if c.Len() != 2 {
		t.Fatalf("expected cache bounded at 2, got %d", c.Len())
	}
	if _, ok := c.items[contentKey(b, SchemaWarn)]; ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := c.items[contentKey(a, SchemaWarn)]; !ok {
		t.Fatalf("expected a to survive")
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := NewCache(2)
	raw := []byte(`{"prompt":{"messages":[]},"conversation":{"messages":[]}}`)

	if _, err := c.Load(raw, SchemaError); err == nil {
		t.Fatalf("expected schema error")
	}
	if c.Len() != 0 {
		t.Fatalf("errors must not be cached, got %d entries", c.Len())
	}
}
