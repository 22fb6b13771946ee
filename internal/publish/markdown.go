package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"tasksync-cli/internal/model"
	"tasksync-cli/internal/view"
)

type RenderOptions struct {
	// Descriptions includes each task's description under its line.
	Descriptions bool
	Now          time.Time
}

func (o RenderOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// RenderTasksMarkdown renders a task view as a GitHub-style checklist.
func RenderTasksMarkdown(title string, tasks []model.Task, opt RenderOptions) string {
	now := opt.now()
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = "Tasks"
	}
	writeLn("# " + title)
	writeLn("")

	c := view.Count(tasks, now)
	writeLn(fmt.Sprintf("_%d tasks: %d active, %d completed, %d overdue_", c.Total, c.Active, c.Completed, c.Overdue))
	writeLn("")

	if len(tasks) == 0 {
		writeLn("No tasks.")
		return buf.String()
	}
	for _, t := range tasks {
		writeLn(taskLine(t, now))
		if opt.Descriptions {
			if d := strings.TrimSpace(t.DescriptionText()); d != "" {
				for _, line := range strings.Split(d, "\n") {
					writeLn("  > " + line)
				}
			}
		}
	}
	return buf.String()
}

func taskLine(t model.Task, now time.Time) string {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	parts := []string{fmt.Sprintf("- %s %s", box, escapeInline(strings.TrimSpace(t.Title)))}
	var meta []string
	if t.Priority != nil {
		meta = append(meta, t.Priority.Label())
	}
	if t.Category != nil && *t.Category != "" {
		meta = append(meta, t.Category.Label())
	}
	if lbl := view.DueLabel(t, now); lbl != "" {
		meta = append(meta, "due "+lbl)
	}
	if len(meta) > 0 {
		parts = append(parts, "_("+strings.Join(meta, " · ")+")_")
	}
	parts = append(parts, fmt.Sprintf("`#%d`", t.ID))
	return strings.Join(parts, " ")
}

// RenderTaskMarkdown renders a single task page.
func RenderTaskMarkdown(t model.Task, now time.Time) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(t.Title))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn(fmt.Sprintf("- ID: %d", t.ID))
	if t.Completed {
		writeLn("- Status: completed")
		if t.CompletedAt != nil {
			writeLn("- Completed: " + t.CompletedAt.UTC().Format(time.RFC3339))
		}
	} else {
		writeLn("- Status: active")
	}
	writeLn("- Priority: " + t.EffectivePriority().Label())
	if t.Category != nil && *t.Category != "" {
		writeLn("- Category: " + t.Category.Label())
	}
	if t.DueDate != nil {
		writeLn(fmt.Sprintf("- Due: %s (%s)", t.DueDate.UTC().Format(time.RFC3339), view.DueRelative(t, now)))
	}
	writeLn("- Created: " + t.CreatedAt.UTC().Format(time.RFC3339))
	writeLn("- Updated: " + t.UpdatedAt.UTC().Format(time.RFC3339))

	if desc := strings.TrimSpace(t.DescriptionText()); desc != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(desc)
	}
	return buf.String()
}

// RenderConversationMarkdown renders a chat transcript, oldest first.
func RenderConversationMarkdown(conversationID string, msgs []model.ChatMessage) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# Conversation")
	if id := strings.TrimSpace(conversationID); id != "" {
		writeLn("")
		writeLn("`" + id + "`")
	}
	for _, m := range msgs {
		writeLn("")
		who := "You"
		if m.Role == model.RoleAssistant {
			who = "Assistant"
		}
		head := "### " + who
		if !m.Timestamp.IsZero() {
			head += " (" + m.Timestamp.UTC().Format(time.RFC3339) + ")"
		}
		writeLn(head)
		writeLn("")
		writeLn(strings.TrimSpace(m.Content))
	}
	return buf.String()
}

var inlineEscaper = strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`)

func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}
