package view

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"tasksync-cli/internal/model"
)

// DueLabel is the short badge text for a task's due date ("" when unset).
func DueLabel(t model.Task, now time.Time) string {
	if t.DueDate == nil {
		return ""
	}
	due := t.DueDate.In(now.Location())
	if t.Completed {
		return due.Format("Jan 02")
	}
	today := startOfDay(now)
	day := startOfDay(due)
	switch {
	case day.Before(today):
		return "Overdue"
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow"
	}
	days := int(due.Sub(now).Hours() / 24)
	if days <= 7 {
		return fmt.Sprintf("%dd", days)
	}
	return due.Format("Jan 02")
}

// DueRelative renders the due date relative to now ("3 days from now").
func DueRelative(t model.Task, now time.Time) string {
	if t.DueDate == nil {
		return ""
	}
	return humanize.RelTime(*t.DueDate, now, "ago", "from now")
}
