package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", FileName)
	l, err := New(Options{Path: path, Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Debug("hello", zap.Int64("task_id", 7))
	_ = l.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"task_id":7`) || !strings.Contains(string(b), `"msg":"hello"`) {
		t.Fatalf("unexpected log contents: %s", string(b))
	}
}

func TestNew_EmptyPathIsNop(t *testing.T) {
	l, err := New(Options{})
	if err != nil || l == nil {
		t.Fatalf("expected nop logger; got %v %v", l, err)
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if lvl, err := ParseLevel(" WARN "); err != nil || lvl.String() != "warn" {
		t.Fatalf("expected warn; got %v %v", lvl, err)
	}
}
