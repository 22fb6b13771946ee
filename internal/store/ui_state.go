package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const uiStateFileName = "tui_state.json"

// UIState restores the dashboard the way it was left. Best effort: a missing
// or corrupt file yields defaults.
type UIState struct {
	Version int `json:"version"`

	// View is one of: all|today|completed|priority|analytics
	View string `json:"view,omitempty"`

	Status   string `json:"status,omitempty"`
	Category string `json:"category,omitempty"`
	Priority string `json:"priority,omitempty"`
	Search   string `json:"search,omitempty"`

	ChatOpen bool `json:"chatOpen,omitempty"`
}

func uiStatePath(dir string) string {
	return filepath.Join(dir, uiStateFileName)
}

func LoadUIState(dir string) (*UIState, error) {
	if strings.TrimSpace(dir) == "" {
		return &UIState{Version: 1}, nil
	}
	b, err := os.ReadFile(uiStatePath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &UIState{Version: 1}, nil
		}
		return nil, err
	}
	var st UIState
	if err := json.Unmarshal(b, &st); err != nil {
		// Best-effort; if corrupted, treat as missing.
		return &UIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func SaveUIState(dir string, st *UIState) error {
	if st == nil || strings.TrimSpace(dir) == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "tui_state.json.*.tmp", uiStatePath(dir), b, 0o644)
}
