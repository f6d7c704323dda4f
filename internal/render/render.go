// Package render turns one rollout into markdown and, for the viewport, into
// ANSI-styled terminal output.
package render

import (
	"fmt"
	"strings"

	"rollout-trace/internal/rollout"

	"github.com/charmbracelet/glamour"
)

const DefaultStyle = "dark"

// Glamour chokes on multi-megabyte inputs; past this we show raw markdown.
const maxGlamourInput = 500_000

type Options struct {
	// CollapseAnalysis replaces the analysis block with a one-line notice.
	CollapseAnalysis bool
	// PlainFinal fences final-channel content as literal text instead of
	// letting embedded markup render. Rich rendering is the default and a
	// deliberate trust decision: final-channel content is treated as safe.
	PlainFinal bool
	Style      string
	Wrap       int
}

// Markdown lays out one rollout as prompt block, analysis block, and final
// block. index is 1-based.
func Markdown(r rollout.Rollout, index, total int, opts Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Rollout %d/%d\n\n", index, total)

	if msg, ok := r.PromptMessage(); ok {
		writeSpeaker(&b, msg.Author.Role)
		if body := msg.Content.Body(); body != "" {
			b.WriteString(body + "\n\n")
		}
	}

	b.WriteString("### Analysis channel\n\n")
	if opts.CollapseAnalysis {
		b.WriteString("> [analysis collapsed. Press `a` to expand.]\n\n")
	} else {
		for _, msg := range r.ChannelMessages(rollout.ChannelAnalysis) {
			body := msg.Content.Body()
			if body == "" {
				continue
			}
			writeSpeaker(&b, msg.Author.Role)
			b.WriteString(body + "\n\n")
		}
	}

	b.WriteString("### Final channel\n\n")
	for _, msg := range r.ChannelMessages(rollout.ChannelFinal) {
		writeSpeaker(&b, msg.Author.Role)
		body := ""
		if len(msg.Content.Parts) > 0 {
			body = msg.Content.Parts[0]
		}
		if body == "" {
			continue
		}
		if opts.PlainFinal {
			b.WriteString("```text\n" + body + "\n```\n\n")
		} else {
			b.WriteString(body + "\n\n")
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeSpeaker(b *strings.Builder, role string) {
	role = strings.TrimSpace(role)
	if role == "" {
		role = "unknown"
	}
	b.WriteString("**" + role + "**\n\n")
}

// ANSI renders markdown for the terminal. Failures degrade to the raw
// markdown rather than erroring: a styled viewer beats a blank pane.
func ANSI(md string, opts Options) string {
	if len(md) > maxGlamourInput {
		return md
	}
	style := opts.Style
	if style == "" {
		style = DefaultStyle
	}
	wrap := opts.Wrap
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
