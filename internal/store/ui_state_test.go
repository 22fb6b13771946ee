package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestUIState_SaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Missing file => default state.
	st0, err := LoadUIState(dir)
	if err != nil {
		t.Fatalf("LoadUIState: %v", err)
	}
	if st0 == nil || st0.Version != 1 {
		t.Fatalf("expected default Version=1; got %#v", st0)
	}

	want := &UIState{
		Version:  1,
		View:     "today",
		Status:   "active",
		Category: "work",
		Priority: "high",
		Search:   "report",
		ChatOpen: true,
	}
	if err := SaveUIState(dir, want); err != nil {
		t.Fatalf("SaveUIState: %v", err)
	}
	got, err := LoadUIState(dir)
	if err != nil {
		t.Fatalf("LoadUIState (after save): %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("roundtrip mismatch:\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestUIState_CorruptFileIsIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, uiStateFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	st, err := LoadUIState(dir)
	if err != nil || st.Version != 1 || st.View != "" {
		t.Fatalf("expected defaults; got %#v err=%v", st, err)
	}
}
