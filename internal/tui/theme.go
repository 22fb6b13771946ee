package tui

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"tasksync-cli/internal/model"
)

// Colors are adaptive so the dashboard stays readable on light and dark
// terminals. Faint styling is only applied on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      = ac("240", "243")
	colorSurfaceFg  = ac("235", "252")
	colorControlBg  = ac("252", "235")
	colorInputBg    = ac("254", "234")
	colorSelectedBg = ac("#e9e9e9", "#262626")
	colorSelectedFg = ac("235", "255")
	colorAccent     = ac("27", "62")
	colorAccentFg   = ac("255", "235")

	colorHigh    = ac("160", "203")
	colorMedium  = ac("130", "214")
	colorLow     = ac("28", "114")
	colorOverdue = ac("196", "160")
	colorSuccess = ac("28", "78")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

var (
	styleHeader   = lipgloss.NewStyle().Bold(true)
	styleTab      = lipgloss.NewStyle().Padding(0, 1).Foreground(colorSurfaceFg).Background(colorControlBg)
	styleTabOn    = styleTab.Foreground(colorAccentFg).Background(colorAccent).Bold(true)
	styleSelected = lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
	styleDone     = lipgloss.NewStyle().Strikethrough(true).Foreground(colorMuted)
	styleOverdue  = lipgloss.NewStyle().Foreground(colorOverdue).Bold(true)
	styleToastOK  = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleToastErr = lipgloss.NewStyle().Foreground(colorOverdue).Bold(true)
	styleUserMsg  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleInput    = lipgloss.NewStyle().Background(colorInputBg)
)

func priorityBadge(p *model.Priority) string {
	if p == nil || *p == "" {
		return ""
	}
	c := colorMedium
	switch *p {
	case model.PriorityHigh:
		c = colorHigh
	case model.PriorityLow:
		c = colorLow
	}
	return lipgloss.NewStyle().Foreground(c).Render(p.Label())
}

func categoryBadge(c *model.Category) string {
	if c == nil || *c == "" {
		return ""
	}
	return styleMuted().Render("#" + string(*c))
}

func dueBadge(label string, overdue bool) string {
	if label == "" {
		return ""
	}
	if overdue {
		return styleOverdue.Render(label)
	}
	return lipgloss.NewStyle().Foreground(colorAccent).Render(label)
}

// applyColorProfilePreference honors NO_COLOR and otherwise trusts the
// terminal, upgrading when TERM/COLORTERM report more than the probe found.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") && (profile == termenv.Ascii || profile == termenv.ANSI) {
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}

// themePreference reports an explicit dark/light choice from the environment.
//
// Priority:
// 1) TASKSYNC_TUI_THEME=light|dark|auto
// 2) TASKSYNC_TUI_DARKBG=true|false
// 3) COLORFGBG heuristic ("fg;bg", bg < 7 is dark)
func themePreference() (dark bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TASKSYNC_TUI_THEME"))) {
	case "light":
		return false, true
	case "dark":
		return true, true
	}
	if v := strings.TrimSpace(os.Getenv("TASKSYNC_TUI_DARKBG")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b, true
		}
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			return bg < 7, true
		}
	}
	return false, false
}

func applyThemePreference() {
	if dark, ok := themePreference(); ok {
		lipgloss.SetHasDarkBackground(dark)
		return
	}
	// Terminal.app rarely sets COLORFGBG; fall back to the OS appearance.
	if runtime.GOOS == "darwin" {
		if dark, ok := macOSHasDarkAppearance(); ok {
			lipgloss.SetHasDarkBackground(dark)
		}
	}
}

func macOSHasDarkAppearance() (dark bool, ok bool) {
	// Prints "Dark" in dark mode; exits 1 in light mode (key missing).
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	out, err := exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle").CombinedOutput()
	if ctx.Err() != nil {
		return false, false
	}
	if err == nil {
		return strings.Contains(strings.ToLower(string(out)), "dark"), true
	}
	if ee, ok := err.(*exec.ExitError); ok && ee.ExitCode() == 1 {
		return false, true
	}
	return false, false
}
