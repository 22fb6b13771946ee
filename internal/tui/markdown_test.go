package tui

import (
	"strings"
	"testing"

	xansi "github.com/charmbracelet/x/ansi"
)

func clearThemeEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TASKSYNC_TUI_MD_STYLE", "")
	t.Setenv("TASKSYNC_TUI_THEME", "")
	t.Setenv("TASKSYNC_TUI_DARKBG", "")
	t.Setenv("COLORFGBG", "")
}

func TestMarkdownStyle_RespectsTUITheme(t *testing.T) {
	clearThemeEnv(t)

	t.Setenv("TASKSYNC_TUI_THEME", "light")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}

	t.Setenv("TASKSYNC_TUI_THEME", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestMarkdownStyle_MDStyleOverridesTheme(t *testing.T) {
	clearThemeEnv(t)
	t.Setenv("TASKSYNC_TUI_THEME", "light")

	t.Setenv("TASKSYNC_TUI_MD_STYLE", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestThemePreference_Sources(t *testing.T) {
	cases := []struct {
		name     string
		env      map[string]string
		wantDark bool
		wantOK   bool
	}{
		{name: "unset", env: nil, wantOK: false},
		{name: "theme wins", env: map[string]string{"TASKSYNC_TUI_THEME": "dark", "TASKSYNC_TUI_DARKBG": "false"}, wantDark: true, wantOK: true},
		{name: "darkbg", env: map[string]string{"TASKSYNC_TUI_DARKBG": "false"}, wantDark: false, wantOK: true},
		{name: "colorfgbg dark", env: map[string]string{"COLORFGBG": "15;0"}, wantDark: true, wantOK: true},
		{name: "colorfgbg light", env: map[string]string{"COLORFGBG": "0;15"}, wantDark: false, wantOK: true},
		{name: "auto defers", env: map[string]string{"TASKSYNC_TUI_THEME": "auto"}, wantOK: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearThemeEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			dark, ok := themePreference()
			if ok != tc.wantOK || (ok && dark != tc.wantDark) {
				t.Fatalf("themePreference() = %v, %v; want %v, %v", dark, ok, tc.wantDark, tc.wantOK)
			}
		})
	}
}

func TestMarkdownStyleConfig_UsesPalette(t *testing.T) {
	for _, style := range []string{"dark", "light"} {
		cfg := markdownStyleConfig(style)
		if cfg.H1.Color == nil || *cfg.H1.Color != *mdColor(colorSurfaceFg, style) {
			t.Fatalf("%s: expected headings on the surface color", style)
		}
		if cfg.Link.Color == nil || *cfg.Link.Color != *mdColor(colorAccent, style) {
			t.Fatalf("%s: expected links on the accent color", style)
		}
		if cfg.Link.Underline == nil || !*cfg.Link.Underline {
			t.Fatalf("%s: expected underlined links", style)
		}
	}
}

func TestRenderMarkdown_WrapsAndCaches(t *testing.T) {
	clearThemeEnv(t)
	t.Setenv("TASKSYNC_TUI_MD_STYLE", "dark")

	if renderMarkdown("   ", 40) != "" {
		t.Fatalf("expected blank input to render empty")
	}

	out := renderMarkdown("Added **milk** to your shopping list and set the priority to high.", 24)
	plain := xansi.Strip(out)
	if !strings.Contains(plain, "milk") {
		t.Fatalf("expected content preserved, got %q", plain)
	}
	for _, ln := range strings.Split(out, "\n") {
		if w := xansi.StringWidth(ln); w > 24 {
			t.Fatalf("line wider than wrap width: %d %q", w, xansi.Strip(ln))
		}
	}

	mdRendererMu.Lock()
	_, cached := mdRenderers["dark:24"]
	mdRendererMu.Unlock()
	if !cached {
		t.Fatalf("expected renderer cached per style and width")
	}
}
