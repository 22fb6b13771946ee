package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDateTime = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2})(?::\d{2})?$`)
	reInDays   = regexp.MustCompile(`^\+(\d+)d$`)
)

// parseDue parses a due date:
// - today | tomorrow | +Nd (end of that local day)
// - YYYY-MM-DD (end of that local day)
// - YYYY-MM-DD HH:MM (local date+time)
// - RFC3339 / RFC3339Nano (timezone-aware)
//
// Date-only inputs land at 23:59 so a task due "today" is not overdue until the day ends.
func parseDue(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty due date")
	}
	loc := now.Location()
	endOfDay := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 23, 59, 0, 0, loc)
	}

	switch strings.ToLower(s) {
	case "today":
		return endOfDay(now), nil
	case "tomorrow":
		return endOfDay(now.AddDate(0, 0, 1)), nil
	}
	if m := reInDays.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid due date %q", s)
		}
		return endOfDay(now.AddDate(0, 0, n)), nil
	}

	if reDateOnly.MatchString(s) {
		d, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid due date %q", s)
		}
		return endOfDay(d), nil
	}
	if m := reDateTime.FindStringSubmatch(s); m != nil {
		ts, err := time.ParseInLocation("2006-01-02 15:04", m[1]+" "+m[2], loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid due date %q", s)
		}
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}

	return time.Time{}, fmt.Errorf("invalid due date %q (expected today, tomorrow, +Nd, YYYY-MM-DD, YYYY-MM-DD HH:MM, or RFC3339)", s)
}
