package model

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	High   Priority = "High"
	Medium Priority = "Medium"
	Low    Priority = "Low"
)

// Priorities lists priorities from most to least urgent.
var Priorities = []Priority{High, Medium, Low}

// Rank orders priorities for sorting. Unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case High:
		return 0
	case Medium:
		return 1
	case Low:
		return 2
	}
	return 3
}

// ParsePriority matches s case-insensitively. An empty string yields Medium.
func ParsePriority(s string) (Priority, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Medium, nil
	}
	for _, p := range Priorities {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

type Category string

const (
	School   Category = "School"
	Work     Category = "Work"
	Personal Category = "Personal"
	Other    Category = "Other"
)

var Categories = []Category{School, Work, Personal, Other}

// ParseCategory matches s case-insensitively. An empty string yields School.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return School, nil
	}
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

type Status string

const (
	PENDING Status = "pending"
	DONE    Status = "done"
)

// Toggle flips between pending and done.
func (s Status) Toggle() Status {
	if s == DONE {
		return PENDING
	}
	return DONE
}

// Task is the canonical local shape of a planner task.
type Task struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Priority Priority `json:"priority"`
	Minutes  int      `json:"minutes"`
	Category Category `json:"category"`
	Status   Status   `json:"status"`
	// DueDate is MM/DD, or empty for the running to-do list.
	DueDate   string    `json:"due_date,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// Synced is false until the remote service has confirmed the task.
	Synced bool `json:"synced"`
}

func (t Task) Done() bool {
	return t.Status == DONE
}

func (t Task) HasDueDate() bool {
	return strings.TrimSpace(t.DueDate) != ""
}
