package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	xansi "github.com/charmbracelet/x/ansi"

	"tasksync-cli/internal/model"
	"tasksync-cli/internal/view"
)

type taskItem struct {
	task    model.Task
	now     time.Time
	pending bool
}

func (i taskItem) FilterValue() string { return i.task.Title }

func (i taskItem) Title() string { return i.task.Title }

func (i taskItem) checkbox() string {
	switch {
	case i.pending:
		return "[~]"
	case i.task.Completed:
		return "[x]"
	default:
		return "[ ]"
	}
}

// meta is the right-aligned badge run: priority, category, due.
func (i taskItem) meta() string {
	parts := make([]string, 0, 3)
	if s := priorityBadge(i.task.Priority); s != "" {
		parts = append(parts, s)
	}
	if s := categoryBadge(i.task.Category); s != "" {
		parts = append(parts, s)
	}
	if s := dueBadge(view.DueLabel(i.task, i.now), view.IsOverdue(i.task, i.now)); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

type taskDelegate struct{}

func (taskDelegate) Height() int                             { return 1 }
func (taskDelegate) Spacing() int                            { return 0 }
func (taskDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (taskDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	it, ok := item.(taskItem)
	if !ok || contentW < 8 {
		fmt.Fprint(w, "")
		return
	}

	title := strings.TrimSpace(it.task.Title)
	if title == "" {
		title = "(untitled)"
	}
	if it.task.Completed {
		title = styleDone.Render(title)
	}
	left := it.checkbox() + " " + title
	meta := it.meta()

	metaW := xansi.StringWidth(meta)
	leftW := contentW - metaW - 1
	if meta == "" || leftW < 12 {
		meta = ""
		leftW = contentW
	}
	line := fit(left, leftW)
	if meta != "" {
		line += " " + meta
	}

	if index == m.Index() {
		line = styleSelected.Render(xansi.Strip(line))
	}
	fmt.Fprint(w, line)
}

func newTaskList() list.Model {
	l := list.New(nil, taskDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	// Filtering is ours (view.Filters); the list's fuzzy filter would bypass it.
	l.SetFilteringEnabled(false)
	l.SetStatusBarItemName("task", "tasks")
	l.KeyMap.Quit.SetKeys("q")

	cursorUpKeys := append([]string{}, l.KeyMap.CursorUp.Keys()...)
	l.KeyMap.CursorUp.SetKeys(append(cursorUpKeys, "ctrl+p")...)
	cursorDownKeys := append([]string{}, l.KeyMap.CursorDown.Keys()...)
	l.KeyMap.CursorDown.SetKeys(append(cursorDownKeys, "ctrl+n")...)
	goToStartKeys := append([]string{}, l.KeyMap.GoToStart.Keys()...)
	l.KeyMap.GoToStart.SetKeys(append(goToStartKeys, "<")...)
	goToEndKeys := append([]string{}, l.KeyMap.GoToEnd.Keys()...)
	l.KeyMap.GoToEnd.SetKeys(append(goToEndKeys, ">")...)
	return l
}

func taskItems(tasks []model.Task, now time.Time, pending func(int64) bool) []list.Item {
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, taskItem{task: t, now: now, pending: pending(t.ID)})
	}
	return items
}
