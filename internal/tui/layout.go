package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// fit cuts s to width columns (ANSI-aware) with an ellipsis, then pads it.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := xansi.StringWidth(s)
	if w > width {
		if width == 1 {
			s = xansi.Cut(s, 0, 1)
		} else {
			s = xansi.Cut(s, 0, width-1) + "…"
		}
		w = xansi.StringWidth(s)
	}
	if w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// normalizePane forces s to exactly width columns and height lines so
// lipgloss.JoinHorizontal produces stable split panes.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		// Bound the width computation on pathological lines.
		if width > 0 && len(ln) > 8192 {
			ln = xansi.Cut(ln, 0, width)
		}
		lines[i] = fit(ln, width)
	}
	return strings.Join(lines, "\n")
}
