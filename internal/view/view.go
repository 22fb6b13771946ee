// Package view derives what the dashboards show from a raw task collection.
//
// Everything here is a pure function of its inputs: nothing mutates the
// passed-in slices and nothing returns an error. Callers pass "now" explicitly
// so results are deterministic.
package view

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"tasksync-cli/internal/model"
)

type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive:
		return StatusActive, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("invalid status %q (expected all|active|completed)", s)
	}
}

// Filters are AND-combined. Nil Category/Priority and a blank Search impose no constraint.
type Filters struct {
	Status   Status
	Category *model.Category
	Priority *model.Priority
	Search   string
}

func (f Filters) Match(t model.Task) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.DescriptionText()), q) {
			return false
		}
	}
	if f.Category != nil && (t.Category == nil || *t.Category != *f.Category) {
		return false
	}
	if f.Priority != nil && (t.Priority == nil || *t.Priority != *f.Priority) {
		return false
	}
	switch f.Status {
	case StatusActive:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	return true
}

// ActiveFilterCount counts the non-default status/category/priority dimensions.
// Search is shown separately in the UI and is not counted.
func ActiveFilterCount(f Filters) int {
	n := 0
	if f.Status != "" && f.Status != StatusAll {
		n++
	}
	if f.Category != nil {
		n++
	}
	if f.Priority != nil {
		n++
	}
	return n
}

// Derive filters tasks by f and returns them in display order.
func Derive(tasks []model.Task, f Filters, now time.Time) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	Sort(out, now)
	return out
}

// Sort orders tasks in place using Compare.
func Sort(tasks []model.Task, now time.Time) {
	slices.SortStableFunc(tasks, func(a, b model.Task) int { return Compare(a, b, now) })
}

// IsOverdue reports whether t is incomplete and its due date has passed.
func IsOverdue(t model.Task, now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// Compare is the dashboard comparator. First non-zero wins:
//  1. overdue before not overdue
//  2. priority high < medium < low (missing = medium)
//  3. earlier due date first; dated before undated
//  4. newer created_at first
//
// Ties on created_at fall back to the higher id so the order is total.
func Compare(a, b model.Task, now time.Time) int {
	ao, bo := IsOverdue(a, now), IsOverdue(b, now)
	if ao != bo {
		if ao {
			return -1
		}
		return 1
	}

	if d := a.EffectivePriority().Rank() - b.EffectivePriority().Rank(); d != 0 {
		return d
	}

	switch {
	case a.DueDate != nil && b.DueDate != nil:
		if c := a.DueDate.Compare(*b.DueDate); c != 0 {
			return c
		}
	case a.DueDate != nil:
		return -1
	case b.DueDate != nil:
		return 1
	}

	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

func Less(a, b model.Task, now time.Time) bool {
	return Compare(a, b, now) < 0
}
