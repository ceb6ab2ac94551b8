package util

import (
	"fmt"
	"strings"
	"time"
)

const monthDayLayout = "01/02"

// Layouts accepted for due dates, tried in order.
var dueDateLayouts = []string{
	monthDayLayout,
	"1/2",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// MonthDay formats t as MM/DD in t's location.
func MonthDay(t time.Time) string {
	return t.Format(monthDayLayout)
}

// NormalizeDueDate converts any accepted due date form into MM/DD.
// Empty input is a valid "no due date" and returns "".
func NormalizeDueDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthDay(t), nil
		}
	}
	return "", fmt.Errorf("unrecognized due date %q", s)
}

// ResolveDueDate places an MM/DD due date in now's year and location.
func ResolveDueDate(monthDay string, now time.Time) (time.Time, error) {
	t, err := time.Parse(monthDayLayout, strings.TrimSpace(monthDay))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: %w", monthDay, err)
	}
	return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), nil
}
