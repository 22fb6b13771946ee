package view

import (
	"fmt"
	"math"
	"slices"
	"time"

	"tasksync-cli/internal/model"
)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dueDay(t model.Task, loc *time.Location) time.Time {
	return startOfDay(t.DueDate.In(loc))
}

// Today returns incomplete tasks due today or earlier (calendar days in now's location).
// Overdue days come first, then priority, then due time.
func Today(tasks []model.Task, now time.Time) []model.Task {
	today := startOfDay(now)
	out := make([]model.Task, 0)
	for _, t := range tasks {
		if t.Completed || t.DueDate == nil {
			continue
		}
		if dueDay(t, now.Location()).After(today) {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b model.Task) int {
		ao := dueDay(a, now.Location()).Before(today)
		bo := dueDay(b, now.Location()).Before(today)
		if ao != bo {
			if ao {
				return -1
			}
			return 1
		}
		if d := a.EffectivePriority().Rank() - b.EffectivePriority().Rank(); d != 0 {
			return d
		}
		return a.DueDate.Compare(*b.DueDate)
	})
	return out
}

type TodaySummary struct {
	Total   int `json:"total"`
	Overdue int `json:"overdue"`
	DueNow  int `json:"due_today"`
}

func SummarizeToday(today []model.Task, now time.Time) TodaySummary {
	s := TodaySummary{Total: len(today)}
	start := startOfDay(now)
	for _, t := range today {
		if t.DueDate != nil && dueDay(t, now.Location()).Before(start) {
			s.Overdue++
		} else {
			s.DueNow++
		}
	}
	return s
}

// CompletedOnly returns completed tasks, most recently completed first.
func CompletedOnly(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0)
	for _, t := range tasks {
		if t.Completed {
			out = append(out, t)
		}
	}
	doneAt := func(t model.Task) time.Time {
		if t.CompletedAt != nil {
			return *t.CompletedAt
		}
		return t.UpdatedAt
	}
	slices.SortStableFunc(out, func(a, b model.Task) int {
		return doneAt(b).Compare(doneAt(a))
	})
	return out
}

type PriorityGroup struct {
	Priority  model.Priority `json:"priority"`
	Tasks     []model.Task   `json:"tasks"`
	Total     int            `json:"total"`
	Active    int            `json:"active"`
	Completed int            `json:"completed"`
}

// ByPriority groups tasks with an explicit priority, high first. Tasks without a
// priority are not listed on the priority board.
func ByPriority(tasks []model.Task, now time.Time) []PriorityGroup {
	groups := make([]PriorityGroup, 0, len(model.Priorities))
	for _, p := range model.Priorities {
		pp := p
		g := PriorityGroup{Priority: p, Tasks: Derive(tasks, Filters{Priority: &pp}, now)}
		g.Total = len(g.Tasks)
		for _, t := range g.Tasks {
			if t.Completed {
				g.Completed++
			} else {
				g.Active++
			}
		}
		groups = append(groups, g)
	}
	return groups
}

type DayStat struct {
	Date      string `json:"date"`
	Label     string `json:"label"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
}

type Analytics struct {
	Days           []DayStat `json:"days"`
	Total          int       `json:"total"`
	Completed      int       `json:"completed"`
	Overdue        int       `json:"overdue"`
	CompletionRate float64   `json:"completion_rate"`
}

// Weekly reports created/completed counts for the seven calendar days ending today.
func Weekly(tasks []model.Task, now time.Time) Analytics {
	today := startOfDay(now)
	first := today.AddDate(0, 0, -6)
	a := Analytics{Days: make([]DayStat, 7)}
	for i := range a.Days {
		d := first.AddDate(0, 0, i)
		a.Days[i] = DayStat{Date: d.Format("2006-01-02"), Label: d.Format("Mon")}
	}
	index := func(ts time.Time) int {
		day := startOfDay(ts.In(now.Location()))
		if day.Before(first) || day.After(today) {
			return -1
		}
		for i := range a.Days {
			if a.Days[i].Date == day.Format("2006-01-02") {
				return i
			}
		}
		return -1
	}

	for _, t := range tasks {
		a.Total++
		if t.Completed {
			a.Completed++
		}
		if IsOverdue(t, now) {
			a.Overdue++
		}
		if i := index(t.CreatedAt); i >= 0 {
			a.Days[i].Created++
		}
		if t.Completed && t.CompletedAt != nil {
			if i := index(*t.CompletedAt); i >= 0 {
				a.Days[i].Completed++
			}
		}
	}
	if a.Total > 0 {
		a.CompletionRate = math.Round(float64(a.Completed)/float64(a.Total)*1000) / 10
	}
	return a
}

// Insights returns short, user-facing observations about the collection.
func Insights(tasks []model.Task, now time.Time) []string {
	out := []string{}
	pending, completed, high, overdue := 0, 0, 0, 0
	for _, t := range tasks {
		if t.Completed {
			completed++
			continue
		}
		pending++
		if t.Priority != nil && *t.Priority == model.PriorityHigh {
			high++
		}
		if IsOverdue(t, now) {
			overdue++
		}
	}
	if pending > 10 {
		out = append(out, fmt.Sprintf("You have %d pending tasks. Consider prioritizing the most important ones.", pending))
	}
	if completed > 0 {
		out = append(out, fmt.Sprintf("Great work! You've completed %d tasks.", completed))
	}
	if high > 0 {
		out = append(out, fmt.Sprintf("You have %d high-priority tasks that need attention.", high))
	}
	if overdue > 0 {
		out = append(out, fmt.Sprintf("You have %d overdue tasks.", overdue))
	}
	return out
}
