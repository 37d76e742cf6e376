package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer turns model output into styled terminal text. A nil
// receiver or failed glamour setup degrades to plain text, so rendering
// never blocks the transcript.
type markdownRenderer struct {
	tr    *glamour.TermRenderer
	width int
}

func newMarkdownRenderer(width int) *markdownRenderer {
	m := &markdownRenderer{}
	m.UpdateWidth(width)
	return m
}

// UpdateWidth rebuilds the renderer for a new terminal width. No-op when
// the width is unchanged; on glamour failure the previous renderer (or
// plain-text fallback) stays in place.
func (m *markdownRenderer) UpdateWidth(width int) {
	if m == nil || width <= 0 || width == m.width {
		return
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	m.tr = tr
	m.width = width
}

// Render formats model markdown for the viewport, returning the raw text
// when rendering is unavailable or fails.
func (m *markdownRenderer) Render(text string) string {
	if m == nil || m.tr == nil {
		return text
	}
	out, err := m.tr.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSuffix(out, "\n")
}
