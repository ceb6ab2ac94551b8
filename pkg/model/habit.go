package model

import (
	"fmt"
	"strings"
	"time"
)

// MaxHabits is the number of habits that may exist at once.
const MaxHabits = 5

type Weekday string

const (
	Mon Weekday = "Mon"
	Tue Weekday = "Tue"
	Wed Weekday = "Wed"
	Thu Weekday = "Thu"
	Fri Weekday = "Fri"
	Sat Weekday = "Sat"
	Sun Weekday = "Sun"
)

// Weekdays is the display order of a habit week.
var Weekdays = []Weekday{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// ParseWeekday accepts day names by their first three letters, in any case.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 3 {
		for _, d := range Weekdays {
			if strings.EqualFold(s[:3], string(d)) {
				return d, nil
			}
		}
	}
	return "", fmt.Errorf("unknown weekday %q", s)
}

// WeekdayOf maps a time.Weekday onto a habit key.
func WeekdayOf(d time.Weekday) Weekday {
	// time.Sunday is 0; the habit week starts on Monday.
	return Weekdays[(int(d)+6)%7]
}

type Habit struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Checks    map[Weekday]bool `json:"checks"`
	CreatedAt time.Time        `json:"created_at"`
	Synced    bool             `json:"synced"`
}

// BlankWeek returns a check map with every day unchecked.
func BlankWeek() map[Weekday]bool {
	week := make(map[Weekday]bool, len(Weekdays))
	for _, d := range Weekdays {
		week[d] = false
	}
	return week
}

// Clone returns a copy that shares no map with h.
func (h Habit) Clone() Habit {
	c := h
	c.Checks = make(map[Weekday]bool, len(h.Checks))
	for k, v := range h.Checks {
		c.Checks[k] = v
	}
	return c
}

// CheckCount is the number of checked days.
func (h Habit) CheckCount() int {
	n := 0
	for _, d := range Weekdays {
		if h.Checks[d] {
			n++
		}
	}
	return n
}
