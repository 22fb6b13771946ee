package view

import (
	"time"

	"tasksync-cli/internal/model"
)

// Counts are badge numbers. They are always computed over the whole collection,
// never over a filtered view.
type Counts struct {
	Total        int                    `json:"total"`
	Active       int                    `json:"active"`
	Completed    int                    `json:"completed"`
	Overdue      int                    `json:"overdue"`
	HighPriority int                    `json:"high_priority"`
	ByCategory   map[model.Category]int `json:"by_category"`
	ByPriority   map[model.Priority]int `json:"by_priority"`
}

func Count(tasks []model.Task, now time.Time) Counts {
	c := Counts{
		Total:      len(tasks),
		ByCategory: map[model.Category]int{},
		ByPriority: map[model.Priority]int{},
	}
	for _, cat := range model.Categories {
		c.ByCategory[cat] = 0
	}
	for _, p := range model.Priorities {
		c.ByPriority[p] = 0
	}
	for _, t := range tasks {
		if t.Completed {
			c.Completed++
		} else {
			c.Active++
		}
		if IsOverdue(t, now) {
			c.Overdue++
		}
		if t.Category != nil && *t.Category != "" {
			c.ByCategory[*t.Category]++
		}
		if t.Priority != nil && *t.Priority != "" {
			c.ByPriority[*t.Priority]++
			if *t.Priority == model.PriorityHigh {
				c.HighPriority++
			}
		}
	}
	return c
}
