package view

import (
	"fmt"
	"strings"
	"time"

	"tasksync-cli/internal/model"
)

// Board names one dashboard view.
type Board string

const (
	BoardAll       Board = "all"
	BoardToday     Board = "today"
	BoardCompleted Board = "completed"
	BoardPriority  Board = "priority"
	BoardAnalytics Board = "analytics"
)

var Boards = []Board{BoardAll, BoardToday, BoardCompleted, BoardPriority, BoardAnalytics}

func ParseBoard(s string) (Board, error) {
	b := Board(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return BoardAll, nil
	}
	for _, x := range Boards {
		if x == b {
			return b, nil
		}
	}
	return "", fmt.Errorf("invalid view %q (expected all|today|completed|priority|analytics)", s)
}

func (b Board) Title() string {
	switch b {
	case BoardToday:
		return "Today"
	case BoardCompleted:
		return "Completed"
	case BoardPriority:
		return "By Priority"
	case BoardAnalytics:
		return "Analytics"
	default:
		return "All Tasks"
	}
}

// Tasks is the flat list a board shows after filtering. The priority board
// concatenates its groups high to low; analytics lists the filtered view.
func (b Board) Tasks(tasks []model.Task, f Filters, now time.Time) []model.Task {
	filtered := Derive(tasks, f, now)
	switch b {
	case BoardToday:
		return Today(filtered, now)
	case BoardCompleted:
		return CompletedOnly(filtered)
	case BoardPriority:
		out := make([]model.Task, 0, len(filtered))
		for _, g := range ByPriority(filtered, now) {
			out = append(out, g.Tasks...)
		}
		return out
	default:
		return filtered
	}
}
