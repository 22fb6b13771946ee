package format

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestWriteEDN_KeywordsAndInst(t *testing.T) {
	type task struct {
		ID      int64      `json:"id"`
		Title   string     `json:"title"`
		DueDate *time.Time `json:"due_date"`
		Done    bool       `json:"completed"`
	}
	due := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := WriteEDN(&buf, map[string]any{"data": []task{{ID: 9007199254740993, Title: "x", DueDate: &due}}}, false)
	if err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	want := `{:data [{:completed false :due-date #inst "2026-03-01T09:30:00Z" :id 9007199254740993 :title "x"}]}`
	if got != want {
		t.Fatalf("unexpected edn:\nwant %s\ngot  %s", want, got)
	}
}

func TestWrite_RejectsUnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "yaml", false); err == nil {
		t.Fatalf("expected error")
	}
	if f, err := Normalize(" EDN "); err != nil || f != EDN {
		t.Fatalf("expected edn; got %q %v", f, err)
	}
}

func TestWriteJSON_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]int{"a": 1}, "", true); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.String() != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("unexpected json %q", buf.String())
	}
}
