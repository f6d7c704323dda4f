package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"rollout-trace/internal/rollout"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
)

// tab is one uploaded file: its load result plus independent selector and
// scroll state. Tabs are keyed by position so duplicate file names cannot
// collide.
type tab struct {
	label   string
	path    string
	loaded  bool
	loadErr error
	result  rollout.Result

	list     list.Model
	viewport viewport.Model
	// matches holds the 1-based positions the current search narrowed the
	// list to; nil means no filter.
	matches []int
}

func newTab(label, path string) *tab {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 40, 20)
	l.Title = "Rollouts"
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(60, 20)
	vp.SetContent("Loading " + label + "...")

	return &tab{label: label, path: path, list: l, viewport: vp}
}

// total is the loaded rollout count, independent of any search filter.
func (t *tab) total() int {
	return len(t.result.Rollouts)
}

// selectedPos returns the 1-based position of the highlighted rollout, or 0
// when nothing is selectable.
func (t *tab) selectedPos() int {
	item, ok := t.list.SelectedItem().(rolloutItem)
	if !ok {
		return 0
	}
	return item.pos
}

// setItems rebuilds the selector list, restricted to positions when a search
// filter is active. Keeps the previous selection when it survives the filter.
func (t *tab) setItems(positions []int) {
	prev := t.selectedPos()
	t.matches = positions

	var items []list.Item
	selectIdx := 0
	if positions == nil {
		items = make([]list.Item, 0, t.total())
		for i, r := range t.result.Rollouts {
			if i+1 == prev {
				selectIdx = len(items)
			}
			items = append(items, rolloutItem{pos: i + 1, preview: promptPreview(r)})
		}
	} else {
		items = make([]list.Item, 0, len(positions))
		for _, pos := range positions {
			if pos < 1 || pos > t.total() {
				continue
			}
			if pos == prev {
				selectIdx = len(items)
			}
			items = append(items, rolloutItem{pos: pos, preview: promptPreview(t.result.Rollouts[pos-1])})
		}
	}

	t.list.SetItems(items)
	if len(items) > 0 {
		t.list.Select(selectIdx)
	}
}

type rolloutItem struct {
	pos     int
	preview string
}

func (i rolloutItem) Title() string       { return fmt.Sprintf("Rollout %d", i.pos) }
func (i rolloutItem) Description() string { return i.preview }
func (i rolloutItem) FilterValue() string { return strings.ToLower(i.preview) }

func promptPreview(r rollout.Rollout) string {
	key, ok := r.SortKey()
	if !ok {
		return ""
	}
	key = strings.Join(strings.Fields(key), " ")
	if len(key) > 80 {
		return key[:77] + "..."
	}
	return key
}

// TabLabels derives display labels from file paths, in upload order.
// Duplicate base names get an order suffix so per-tab state never collides.
func TabLabels(paths []string) []string {
	seen := make(map[string]int, len(paths))
	labels := make([]string, len(paths))
	for i, path := range paths {
		base := filepath.Base(path)
		seen[base]++
		if n := seen[base]; n > 1 {
			labels[i] = fmt.Sprintf("%s (%d)", base, n)
		} else {
			labels[i] = base
		}
	}
	return labels
}
