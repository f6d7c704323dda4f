// Package export writes a rollout's markdown to disk and builds short
// reference snippets for sharing.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Writer struct {
	overrideDir string
	cwd         string
}

func New(overrideDir string) (*Writer, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Writer{overrideDir: strings.TrimSpace(overrideDir), cwd: cwd}, nil
}

// Write stores the markdown of rollout pos (1-based) from the named source
// file and returns the path written.
func (w *Writer) Write(sourceName string, pos int, markdown string) (string, error) {
	path := w.outputPath(sourceName, pos)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	doc := buildDocument(sourceName, pos, markdown, time.Now().UTC())
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

func (w *Writer) outputPath(sourceName string, pos int) string {
	dir := w.overrideDir
	if dir == "" {
		dir = filepath.Join(w.cwd, "docs", "rollouts")
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(w.cwd, dir)
	}
	name := fmt.Sprintf("%s-rollout-%d.md", safeFileName(sourceName), pos)
	return filepath.Join(dir, name)
}

func buildDocument(sourceName string, pos int, markdown string, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Rollout " + fmt.Sprint(pos) + " from " + sourceName + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString(markdown)
	if !strings.HasSuffix(markdown, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// Snippet is a one-paragraph markdown reference to a rollout, suitable for
// pasting into a PR or issue.
func Snippet(sourceName string, pos, total int, promptPreview, exportPath string) string {
	var b strings.Builder
	b.WriteString("### Rollout reference\n\n")
	b.WriteString(fmt.Sprintf("- File: `%s` (rollout %d/%d)\n", sourceName, pos, total))
	if exportPath != "" {
		b.WriteString("- Export: `" + filepath.ToSlash(exportPath) + "`\n")
	}
	b.WriteString("- Prompt: " + previewLine(promptPreview) + "\n")
	return b.String()
}

func previewLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "n/a"
	}
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

func safeFileName(s string) string {
	s = strings.TrimSpace(strings.TrimSuffix(s, filepath.Ext(s)))
	if s == "" {
		return "rollouts"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(s)
}
