package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tasksync-cli/internal/model"
)

func TestRenderTasksMarkdown_Checklist(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	high := model.PriorityHigh
	work := model.CategoryWork
	due := now.Add(2 * time.Hour)
	desc := "line one\nline two"
	tasks := []model.Task{
		{ID: 1, Title: "Ship *release*", Priority: &high, Category: &work, DueDate: &due, Description: &desc},
		{ID: 2, Title: "Done thing", Completed: true},
	}

	md := RenderTasksMarkdown("Today", tasks, RenderOptions{Descriptions: true, Now: now})
	for _, want := range []string{
		"# Today",
		"_2 tasks: 1 active, 1 completed, 0 overdue_",
		"- [ ] Ship \\*release\\* _(",
		"due Today",
		"`#1`",
		"  > line two",
		"- [x] Done thing `#2`",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected markdown to contain %q\n---\n%s", want, md)
		}
	}
}

func TestRenderTasksMarkdown_Empty(t *testing.T) {
	t.Parallel()
	md := RenderTasksMarkdown("", nil, RenderOptions{})
	if !strings.HasPrefix(md, "# Tasks\n") || !strings.Contains(md, "No tasks.") {
		t.Fatalf("unexpected markdown:\n%s", md)
	}
}

func TestRenderConversationMarkdown(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	md := RenderConversationMarkdown("conv-1", []model.ChatMessage{
		{Role: model.RoleUser, Content: "add milk", Timestamp: ts},
		{Role: model.RoleAssistant, Content: "Added.", Timestamp: ts.Add(time.Second)},
	})
	if !strings.Contains(md, "### You (2026-01-01T00:00:00Z)\n\nadd milk") {
		t.Fatalf("missing user turn:\n%s", md)
	}
	if !strings.Contains(md, "### Assistant (2026-01-01T00:00:01Z)\n\nAdded.") {
		t.Fatalf("missing assistant turn:\n%s", md)
	}
}

func TestWriteMarkdown_RespectsOverwrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "out", "tasks.md")
	if _, err := WriteMarkdown(path, "# one\n", WriteOptions{}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := WriteMarkdown(path, "# two\n", WriteOptions{}); err == nil {
		t.Fatalf("expected error without overwrite")
	}
	res, err := WriteMarkdown(path, "# two\n", WriteOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, _ := os.ReadFile(path)
	if string(b) != "# two\n" || res.Bytes != 6 {
		t.Fatalf("unexpected content %q / %+v", string(b), res)
	}
}
