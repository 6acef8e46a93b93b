package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseTimeExpr parses a small grammar of natural-language time
// expressions into an (after, before) window relative to now. Unparseable
// expressions return a plain error, which the caller wraps (MemorySearch
// wraps it with errs.ErrInvalidArgument).
func ParseTimeExpr(expr string, now time.Time) (after, before time.Time, err error) {
	e := strings.ToLower(strings.TrimSpace(expr))

	switch e {
	case "today":
		start := startOfDay(now)
		return start, start.AddDate(0, 0, 1), nil
	case "yesterday":
		start := startOfDay(now).AddDate(0, 0, -1)
		return start, start.AddDate(0, 0, 1), nil
	case "this week":
		start := startOfWeek(now)
		return start, start.AddDate(0, 0, 7), nil
	case "last week":
		start := startOfWeek(now).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 7), nil
	case "this month":
		start := startOfMonth(now)
		return start, start.AddDate(0, 1, 0), nil
	case "last month":
		start := startOfMonth(now).AddDate(0, -1, 0)
		return start, start.AddDate(0, 1, 0), nil
	}

	if m := nAgoPattern.FindStringSubmatch(e); m != nil {
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid time expression %q", expr)
		}
		unit := m[2]
		start := subtractUnits(now, n, unit)
		return start, now, nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("invalid time expression %q", expr)
}

var nAgoPattern = regexp.MustCompile(`^(\d+)\s*(hour|day|week|month)s?\s*ago$`)

func subtractUnits(now time.Time, n int, unit string) time.Time {
	switch unit {
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour)
	case "day":
		return startOfDay(now).AddDate(0, 0, -n)
	case "week":
		return startOfDay(now).AddDate(0, 0, -7*n)
	case "month":
		return startOfDay(now).AddDate(0, -n, 0)
	default:
		return now
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := int(d.Weekday()) // Sunday=0
	return d.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
