package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"google.golang.org/api/calendar/v3"
)

// PlannerIDProperty is the private extended property that ties an event to a task.
const PlannerIDProperty = "planner_id"

const calendarDateLayout = "2006-01-02"

// Google Calendar event colour ids per category.
var categoryColors = map[model.Category]string{
	model.School:   "9", // blueberry
	model.Work:     "6", // tangerine
	model.Personal: "2", // sage
	model.Other:    "8", // graphite
}

// CategoryColorID returns the event colour for a category.
func CategoryColorID(c model.Category) string {
	if id, ok := categoryColors[c]; ok {
		return id
	}
	return "8"
}

// ConvertTaskToCalendarEvent maps a dated task onto an all-day event.
func ConvertTaskToCalendarEvent(task *model.Task, now time.Time) (*calendar.Event, error) {
	if task == nil {
		return nil, fmt.Errorf("could not convert nil Task")
	}
	if !task.HasDueDate() {
		return nil, fmt.Errorf("task %s has no due date", task.ID)
	}

	day, err := ResolveDueDate(task.DueDate, now)
	if err != nil {
		return nil, err
	}

	// 1. Summary prefix
	prefix := ""
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if task.Done() {
		prefix = "✓"
	} else if day.Before(today) {
		prefix = "!"
	}

	summary := task.Title
	if prefix != "" {
		summary = fmt.Sprintf("%s %s", prefix, task.Title)
	}

	// 2. Description
	var desc strings.Builder
	desc.WriteString(fmt.Sprintf("Status: %s\n", task.Status))
	desc.WriteString(fmt.Sprintf("Priority: %s\n", task.Priority))
	desc.WriteString(fmt.Sprintf("Category: %s\n", task.Category))
	if task.Minutes > 0 {
		desc.WriteString(fmt.Sprintf("Estimate: %sh\n", FormatHours(task.Minutes)))
	}
	desc.WriteString(fmt.Sprintf("ID: %s\n", task.ID))

	return &calendar.Event{
		Summary:     summary,
		Description: desc.String(),
		ColorId:     CategoryColorID(task.Category),
		Start:       &calendar.EventDateTime{Date: day.Format(calendarDateLayout)},
		End:         &calendar.EventDateTime{Date: day.AddDate(0, 0, 1).Format(calendarDateLayout)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				PlannerIDProperty: task.ID,
			},
		},
	}, nil
}

// EventNeedsUpdate returns a patch with the fields of target that differ from existing,
// or nil when the event is current.
func EventNeedsUpdate(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}
	if eventDate(existing.Start) != eventDate(target.Start) || eventDate(existing.End) != eventDate(target.End) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}
	// The id property moves when a local task gets its server id.
	if plannerID(existing) != plannerID(target) {
		patch.ExtendedProperties = target.ExtendedProperties
		needsUpdate = true
	}

	if needsUpdate {
		return patch
	}
	return nil
}

func eventDate(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.Date != "" {
		return dt.Date
	}
	return dt.DateTime
}

func plannerID(e *calendar.Event) string {
	if e.ExtendedProperties == nil || e.ExtendedProperties.Private == nil {
		return ""
	}
	return e.ExtendedProperties.Private[PlannerIDProperty]
}
