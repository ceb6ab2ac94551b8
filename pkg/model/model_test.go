package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("high")
	require.NoError(t, err)
	assert.Equal(t, High, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, Medium, p)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, High.Rank(), Medium.Rank())
	assert.Less(t, Medium.Rank(), Low.Rank())
	assert.Equal(t, 3, Priority("Someday").Rank())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("WORK")
	require.NoError(t, err)
	assert.Equal(t, Work, c)

	c, err = ParseCategory(" ")
	require.NoError(t, err)
	assert.Equal(t, School, c)

	_, err = ParseCategory("fun")
	assert.Error(t, err)
}

func TestStatusToggleTwice(t *testing.T) {
	for _, s := range []Status{PENDING, DONE} {
		assert.Equal(t, s, s.Toggle().Toggle())
	}
	assert.Equal(t, DONE, PENDING.Toggle())
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("wednesday")
	require.NoError(t, err)
	assert.Equal(t, Wed, d)

	_, err = ParseWeekday("xx")
	assert.Error(t, err)
}

func TestWeekdayOf(t *testing.T) {
	assert.Equal(t, Sun, WeekdayOf(time.Sunday))
	assert.Equal(t, Mon, WeekdayOf(time.Monday))
	assert.Equal(t, Sat, WeekdayOf(time.Saturday))
}

func TestHabitClone(t *testing.T) {
	h := Habit{ID: "h1", Name: "Climb", Checks: BlankWeek()}
	c := h.Clone()
	c.Checks[Mon] = true

	assert.False(t, h.Checks[Mon])
	assert.Equal(t, 1, c.CheckCount())
	assert.Len(t, BlankWeek(), 7)
}
