package tui

import (
	"log/slog"
	"strings"

	"charm.land/glamour/v2"
)

// renderMarkdown renders content as markdown wrapped to width. The raw
// content is returned when rendering fails.
func renderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(max(width, 10)),
	)
	if err != nil {
		slog.Warn("Failed to create markdown renderer", "error", err)
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		slog.Warn("Failed to render markdown", "error", err)
		return content
	}
	return strings.Trim(rendered, "\n")
}
