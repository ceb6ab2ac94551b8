// Package views projects the store's tasks and habits into the shapes the
// planner screens show. Every function copies its input.
package views

import (
	"sort"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/util"
)

// DefaultRecent is how many tasks RecentlyAdded returns when n <= 0.
const DefaultRecent = 5

// DefaultDays is how many days NextDays covers when days <= 0.
const DefaultDays = 7

// RecentlyAdded returns up to n tasks, pending before done, newest first.
func RecentlyAdded(items []model.Task, n int) []model.Task {
	if n <= 0 {
		n = DefaultRecent
	}
	out := clone(items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Done() != out[j].Done() {
			return !out[i].Done()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// RunningTodo returns the tasks without a due date.
func RunningTodo(items []model.Task) []model.Task {
	var out []model.Task
	for _, t := range items {
		if !t.HasDueDate() {
			out = append(out, t)
		}
	}
	sortByPriority(out)
	return out
}

// Today splits the tasks due on now's date into pending and done.
func Today(items []model.Task, now time.Time) (pending, done []model.Task) {
	today := util.MonthDay(now)
	for _, t := range items {
		if t.DueDate != today {
			continue
		}
		if t.Done() {
			done = append(done, t)
		} else {
			pending = append(pending, t)
		}
	}
	return pending, done
}

// Day is one bucket of NextDays.
type Day struct {
	Date     string // MM/DD
	DayName  string // Mon
	FullDate string // Jan 10
	Tasks    []model.Task
}

// NextDays buckets tasks by due date for now and the following days-1 days.
func NextDays(items []model.Task, now time.Time, days int) []Day {
	if days <= 0 {
		days = DefaultDays
	}
	out := make([]Day, 0, days)
	for i := 0; i < days; i++ {
		d := now.AddDate(0, 0, i)
		day := Day{
			Date:     util.MonthDay(d),
			DayName:  d.Format("Mon"),
			FullDate: d.Format("Jan 2"),
		}
		for _, t := range items {
			if t.DueDate == day.Date {
				day.Tasks = append(day.Tasks, t)
			}
		}
		sortByPriority(day.Tasks)
		out = append(out, day)
	}
	return out
}

// Overdue returns pending tasks due before now's date in now's year.
func Overdue(items []model.Task, now time.Time) []model.Task {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var out []model.Task
	for _, t := range items {
		if t.Done() || !t.HasDueDate() {
			continue
		}
		due, err := util.ResolveDueDate(t.DueDate, now)
		if err != nil {
			continue
		}
		if due.Before(today) {
			out = append(out, t)
		}
	}
	sortByPriority(out)
	return out
}

// HabitRow is a habit laid out Mon..Sun.
type HabitRow struct {
	ID     string
	Name   string
	Checks []bool
	Count  int
}

func HabitWeek(habits []model.Habit) []HabitRow {
	rows := make([]HabitRow, 0, len(habits))
	for _, h := range habits {
		row := HabitRow{ID: h.ID, Name: h.Name, Checks: make([]bool, len(model.Weekdays))}
		for i, d := range model.Weekdays {
			row.Checks[i] = h.Checks[d]
		}
		row.Count = h.CheckCount()
		rows = append(rows, row)
	}
	return rows
}

// sortByPriority orders pending before done, then High..Low.
func sortByPriority(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Done() != tasks[j].Done() {
			return !tasks[i].Done()
		}
		return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
	})
}

func clone(items []model.Task) []model.Task {
	out := make([]model.Task, len(items))
	copy(out, items)
	return out
}
