// Package highlight marks case-insensitive query matches inside already
// ANSI-styled text without corrupting the escape sequences.
package highlight

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

var escapeRe = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)

// Result carries the rewritten text plus match metadata for jump navigation.
type Result struct {
	Text  string
	Count int
	// Lines holds the index of every line containing at least one match.
	Lines []int
}

// Apply wraps each match of query in the output of wrap. Matching is
// per plain-text segment, so a match interrupted by an escape sequence is
// left alone; for glamour output that trade-off is invisible in practice.
func Apply(input, query string, wrap func(string) string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	q := strings.ToLower(query)
	lines := strings.Split(input, "\n")
	var res Result
	for i, line := range lines {
		// Cheap pre-check on the stripped line before any rewriting.
		if !strings.Contains(strings.ToLower(ansi.Strip(line)), q) {
			continue
		}
		marked, n := markLine(line, q, wrap)
		if n == 0 {
			continue
		}
		lines[i] = marked
		res.Count += n
		res.Lines = append(res.Lines, i)
	}
	res.Text = strings.Join(lines, "\n")
	return res
}

// markLine splits a line into escape sequences and plain segments, wrapping
// matches only inside the plain segments.
func markLine(line, q string, wrap func(string) string) (string, int) {
	var b strings.Builder
	total := 0
	pos := 0
	for _, idx := range escapeRe.FindAllStringIndex(line, -1) {
		marked, n := markPlain(line[pos:idx[0]], q, wrap)
		b.WriteString(marked)
		b.WriteString(line[idx[0]:idx[1]])
		total += n
		pos = idx[1]
	}
	marked, n := markPlain(line[pos:], q, wrap)
	b.WriteString(marked)
	total += n
	return b.String(), total
}

func markPlain(s, q string, wrap func(string) string) (string, int) {
	lower := strings.ToLower(s)
	if !strings.Contains(lower, q) {
		return s, 0
	}

	var b strings.Builder
	count := 0
	start := 0
	for {
		rel := strings.Index(lower[start:], q)
		if rel < 0 {
			b.WriteString(s[start:])
			return b.String(), count
		}
		idx := start + rel
		end := idx + len(q)
		b.WriteString(s[start:idx])
		b.WriteString(wrap(s[idx:end]))
		count++
		start = end
	}
}
