package store

import (
	"fmt"
	"strings"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/util"
)

// TaskInput is a task as a user types it: hours rather than minutes, free-form
// priority, category and due date. Empty priority means Medium, empty category
// School and empty due date none.
type TaskInput struct {
	Title    string
	Priority string
	Hours    string
	Category string
	DueDate  string
}

// newTask validates in and builds a pending, unsynced task with a fresh id.
func (s *Store) newTask(in TaskInput) (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}
	hours, err := util.ParseHours(in.Hours)
	if err != nil {
		return model.Task{}, err
	}
	priority, err := model.ParsePriority(in.Priority)
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, in.Priority)
	}
	category, err := model.ParseCategory(in.Category)
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)
	}
	due := ""
	if strings.TrimSpace(in.DueDate) != "" {
		due, err = util.NormalizeDueDate(in.DueDate)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: %w", ErrInvalidDueDate, err)
		}
	}

	return model.Task{
		ID:        s.newID(),
		Title:     title,
		Priority:  priority,
		Minutes:   util.HoursToMinutes(hours),
		Category:  category,
		Status:    model.PENDING,
		DueDate:   due,
		CreatedAt: s.now(),
	}, nil
}
