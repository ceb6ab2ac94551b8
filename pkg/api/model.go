package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/util"
)

// ID is a record identifier that may arrive as a JSON number or string.
type ID string

// UnmarshalJSON implements the json.Unmarshaler interface for ID.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("failed to parse id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as numbers so the server sees its own type back.
// Only canonical integers qualify; "007" or "+5" stay strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Timestamp accepts the timestamp forms the planner API emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements the json.Unmarshaler interface for Timestamp.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		ts.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("failed to parse timestamp '%s'", s)
}

// MarshalJSON implements the json.Marshaler interface for Timestamp.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + ts.Time.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// Task is the wire form of a task.
type Task struct {
	ID        ID         `json:"id,omitempty"`
	Title     string     `json:"title"`
	Priority  string     `json:"priority"`
	Minutes   int        `json:"minutes"`
	Category  string     `json:"category"`
	Status    string     `json:"status"`
	DueDate   *string    `json:"due_date"`
	CreatedAt *Timestamp `json:"created_at,omitempty"`
}

// Habit is the wire form of a habit: one boolean per weekday.
type Habit struct {
	ID        ID                     `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Mon       bool                   `json:"mon"`
	Tue       bool                   `json:"tue"`
	Wed       bool                   `json:"wed"`
	Thu       bool                   `json:"thu"`
	Fri       bool                   `json:"fri"`
	Sat       bool                   `json:"sat"`
	Sun       bool                   `json:"sun"`
	Checks    map[model.Weekday]bool `json:"checks,omitempty"`
	CreatedAt *Timestamp             `json:"created_at,omitempty"`
}

// TaskFromModel converts a local task into its wire form.
func TaskFromModel(t model.Task) Task {
	wire := Task{
		Title:    t.Title,
		Priority: string(t.Priority),
		Minutes:  t.Minutes,
		Category: string(t.Category),
		Status:   string(t.Status),
	}
	if t.Synced {
		wire.ID = ID(t.ID)
	}
	if t.HasDueDate() {
		due := t.DueDate
		wire.DueDate = &due
	}
	if !t.CreatedAt.IsZero() {
		wire.CreatedAt = &Timestamp{Time: t.CreatedAt}
	}
	return wire
}

// Normalize converts a wire task into the canonical local shape.
func (t Task) Normalize() model.Task {
	out := model.Task{
		ID:       string(t.ID),
		Title:    t.Title,
		Priority: model.Priority(t.Priority),
		Minutes:  t.Minutes,
		Category: model.Category(t.Category),
		Status:   model.Status(t.Status),
		Synced:   true,
	}
	if p, err := model.ParsePriority(t.Priority); err == nil {
		out.Priority = p
	}
	if c, err := model.ParseCategory(t.Category); err == nil {
		out.Category = c
	}
	if out.Status != model.DONE {
		out.Status = model.PENDING
	}
	if t.DueDate != nil {
		if due, err := util.NormalizeDueDate(*t.DueDate); err == nil {
			out.DueDate = due
		} else {
			out.DueDate = strings.TrimSpace(*t.DueDate)
		}
	}
	if t.CreatedAt != nil {
		out.CreatedAt = t.CreatedAt.Time
	}
	return out
}

// HabitFromModel converts a local habit into its wire form.
func HabitFromModel(h model.Habit) Habit {
	wire := Habit{
		Name: h.Name,
		Mon:  h.Checks[model.Mon],
		Tue:  h.Checks[model.Tue],
		Wed:  h.Checks[model.Wed],
		Thu:  h.Checks[model.Thu],
		Fri:  h.Checks[model.Fri],
		Sat:  h.Checks[model.Sat],
		Sun:  h.Checks[model.Sun],
	}
	if h.Synced {
		wire.ID = ID(h.ID)
	}
	if !h.CreatedAt.IsZero() {
		wire.CreatedAt = &Timestamp{Time: h.CreatedAt}
	}
	return wire
}

// Normalize converts a wire habit into the canonical local shape.
// A checks object, when present, wins over the per-day fields.
func (h Habit) Normalize() model.Habit {
	checks := map[model.Weekday]bool{
		model.Mon: h.Mon,
		model.Tue: h.Tue,
		model.Wed: h.Wed,
		model.Thu: h.Thu,
		model.Fri: h.Fri,
		model.Sat: h.Sat,
		model.Sun: h.Sun,
	}
	for day, v := range h.Checks {
		if _, ok := checks[day]; ok {
			checks[day] = v
		}
	}
	out := model.Habit{
		ID:     string(h.ID),
		Name:   h.Name,
		Checks: checks,
		Synced: true,
	}
	if h.CreatedAt != nil {
		out.CreatedAt = h.CreatedAt.Time
	}
	return out
}
