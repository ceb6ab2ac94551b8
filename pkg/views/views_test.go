package views

import (
	"testing"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jan10 = time.Date(2024, 1, 10, 14, 30, 0, 0, time.Local)

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestRecentlyAdded(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []model.Task{
		{ID: "A", Status: model.PENDING, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "B", Status: model.DONE, CreatedAt: base.Add(5 * time.Hour)},
		{ID: "C", Status: model.PENDING, CreatedAt: base.Add(1 * time.Hour)},
	}
	assert.Equal(t, []string{"A", "C", "B"}, ids(RecentlyAdded(items, 5)))
	assert.Equal(t, []string{"A", "B", "C"}, ids(items), "input must not be reordered")

	var many []model.Task
	for i := 0; i < 8; i++ {
		many = append(many, model.Task{ID: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	got := RecentlyAdded(many, 0)
	assert.Equal(t, []string{"h", "g", "f", "e", "d"}, ids(got))
}

func TestRunningTodo(t *testing.T) {
	items := []model.Task{
		{ID: "dated", DueDate: "05/01", Priority: model.High},
		{ID: "done-high", Status: model.DONE, Priority: model.High},
		{ID: "low", Priority: model.Low},
		{ID: "blank", DueDate: "", Priority: model.Medium},
		{ID: "high", Priority: model.High},
	}
	assert.Equal(t, []string{"high", "blank", "low", "done-high"}, ids(RunningTodo(items)))
}

func TestToday(t *testing.T) {
	items := []model.Task{
		{ID: "p1", DueDate: "01/10"},
		{ID: "d1", DueDate: "01/10", Status: model.DONE},
		{ID: "other", DueDate: "01/11"},
		{ID: "p2", DueDate: "01/10"},
	}
	pending, done := Today(items, jan10)
	assert.Equal(t, []string{"p1", "p2"}, ids(pending))
	assert.Equal(t, []string{"d1"}, ids(done))
}

func TestNextDays(t *testing.T) {
	items := []model.Task{
		{ID: "x", DueDate: "01/12", Priority: model.Low},
		{ID: "y", DueDate: "01/12", Priority: model.High},
		{ID: "late", DueDate: "01/17"},
	}
	days := NextDays(items, jan10, 7)
	require.Len(t, days, 7)

	assert.Equal(t, "01/10", days[0].Date)
	assert.Equal(t, "Wed", days[0].DayName)
	assert.Equal(t, "Jan 10", days[0].FullDate)
	assert.Equal(t, "Fri", days[2].DayName)

	for i, d := range days {
		if i == 2 {
			assert.Equal(t, []string{"y", "x"}, ids(d.Tasks))
			continue
		}
		assert.Empty(t, d.Tasks, "bucket %d", i)
	}
}

func TestNextDaysCrossesMonth(t *testing.T) {
	days := NextDays(nil, time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, "02/01", days[2].Date)
}

func TestNextDaysNonPositive(t *testing.T) {
	for _, n := range []int{0, -1, -100} {
		days := NextDays(nil, jan10, n)
		require.Len(t, days, DefaultDays, n)
		assert.Equal(t, "01/10", days[0].Date)
	}
}

func TestOverdue(t *testing.T) {
	items := []model.Task{
		{ID: "yesterday", DueDate: "01/09"},
		{ID: "today", DueDate: "01/10"},
		{ID: "done", DueDate: "01/02", Status: model.DONE},
		{ID: "undated"},
	}
	assert.Equal(t, []string{"yesterday"}, ids(Overdue(items, jan10)))
}

func TestHabitWeek(t *testing.T) {
	checks := model.BlankWeek()
	checks[model.Mon] = true
	checks[model.Sun] = true
	rows := HabitWeek([]model.Habit{{ID: "1", Name: "Read", Checks: checks}})
	require.Len(t, rows, 1)
	assert.Equal(t, []bool{true, false, false, false, false, false, true}, rows[0].Checks)
	assert.Equal(t, 2, rows[0].Count)
}
