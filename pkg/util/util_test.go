package util

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
)

func TestMinutesRoundTrip(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{1.5, "1.5"},
		{2, "2"},
		{0, "0"},
		{0.3333, "0.3"},
		{10.1, "10.1"},
	}
	for _, c := range cases {
		got := FormatHours(HoursToMinutes(c.hours))
		if got != c.want {
			t.Errorf("FormatHours(HoursToMinutes(%v)) = %q, want %q", c.hours, got, c.want)
		}
	}

	if m := HoursToMinutes(1.5); m != 90 {
		t.Errorf("Expected 90 minutes, got %d", m)
	}
	if h := MinutesToHours(90); h != 1.5 {
		t.Errorf("Expected 1.5 hours, got %v", h)
	}
}

func TestParseHours(t *testing.T) {
	h, err := ParseHours("")
	if err != nil || h != 0 {
		t.Errorf("Expected empty input to be 0 hours, got %v, %v", h, err)
	}

	h, err = ParseHours(" 2.5 ")
	if err != nil || h != 2.5 {
		t.Errorf("Expected 2.5 hours, got %v, %v", h, err)
	}

	for _, bad := range []string{"abc", "-1", "NaN", "Inf"} {
		if _, err := ParseHours(bad); !errors.Is(err, ErrInvalidHours) {
			t.Errorf("ParseHours(%q): expected ErrInvalidHours, got %v", bad, err)
		}
	}
}

func TestNormalizeDueDate(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"05/01":                "05/01",
		"5/1":                  "05/01",
		"2024-01-12":           "01/12",
		"2024-01-12T09:30:00Z": "01/12",
	}
	for in, want := range cases {
		got, err := NormalizeDueDate(in)
		if err != nil {
			t.Errorf("NormalizeDueDate(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("NormalizeDueDate(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := NormalizeDueDate("tomorrow"); err == nil {
		t.Error("Expected error for unparseable due date")
	}
}

func TestResolveDueDate(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	got, err := ResolveDueDate("01/12", now)
	if err != nil {
		t.Fatalf("ResolveDueDate failed: %v", err)
	}
	want := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if MonthDay(now.AddDate(0, 0, 2)) != "01/12" {
		t.Errorf("Expected MonthDay to format 01/12")
	}
}

func TestConvertTaskToCalendarEvent(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	task := &model.Task{
		ID:       "42",
		Title:    "Essay draft",
		Priority: model.High,
		Minutes:  90,
		Category: model.School,
		Status:   model.PENDING,
		DueDate:  "01/12",
	}

	event, err := ConvertTaskToCalendarEvent(task, now)
	if err != nil {
		t.Fatalf("ConvertTaskToCalendarEvent failed: %v", err)
	}

	if event.ExtendedProperties == nil || event.ExtendedProperties.Private == nil {
		t.Fatal("ExtendedProperties or Private map is nil")
	}
	if val := event.ExtendedProperties.Private[PlannerIDProperty]; val != task.ID {
		t.Errorf("Expected planner_id %s, got %v", task.ID, val)
	}
	if event.Start.Date != "2024-01-12" || event.End.Date != "2024-01-13" {
		t.Errorf("Expected all-day event on 2024-01-12, got %s..%s", event.Start.Date, event.End.Date)
	}
	if event.Summary != "Essay draft" {
		t.Errorf("Expected plain summary, got %q", event.Summary)
	}
	if !strings.Contains(event.Description, "Estimate: 1.5h") {
		t.Errorf("Expected description to contain estimate, got: %s", event.Description)
	}
	if event.ColorId != CategoryColorID(model.School) {
		t.Errorf("Expected school colour, got %s", event.ColorId)
	}

	task.Status = model.DONE
	event, _ = ConvertTaskToCalendarEvent(task, now)
	if event.Summary != "✓ Essay draft" {
		t.Errorf("Expected done prefix, got %q", event.Summary)
	}

	task.Status = model.PENDING
	task.DueDate = "01/02"
	event, _ = ConvertTaskToCalendarEvent(task, now)
	if event.Summary != "! Essay draft" {
		t.Errorf("Expected overdue prefix, got %q", event.Summary)
	}

	task.DueDate = ""
	if _, err := ConvertTaskToCalendarEvent(task, now); err == nil {
		t.Error("Expected error for undated task")
	}
}

func TestEventNeedsUpdate(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	task := &model.Task{ID: "7", Title: "Gym", Category: model.Personal, Status: model.PENDING, DueDate: "01/11"}

	existing, _ := ConvertTaskToCalendarEvent(task, now)
	same, _ := ConvertTaskToCalendarEvent(task, now)
	if patch := EventNeedsUpdate(existing, same); patch != nil {
		t.Errorf("Expected no patch, got %+v", patch)
	}

	task.DueDate = "01/15"
	task.Title = "Gym day"
	moved, _ := ConvertTaskToCalendarEvent(task, now)
	patch := EventNeedsUpdate(existing, moved)
	if patch == nil {
		t.Fatal("Expected a patch")
	}
	if patch.Summary != "Gym day" || patch.Start.Date != "2024-01-15" {
		t.Errorf("Unexpected patch: %+v", patch)
	}
	if patch.ColorId != "" {
		t.Errorf("Expected unchanged colour to be left out of the patch")
	}
}
