package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harrisonrobin/planner/pkg/index"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/util"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// CalendarClient mirrors planner tasks into one Google calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	logger     *zap.Logger
}

func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex, logger *zap.Logger) *CalendarClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx, logger: logger}
}

// SyncEvent creates the event for a dated task or patches the existing one.
func (c *CalendarClient) SyncEvent(ctx context.Context, task model.Task, now time.Time) (*calendar.Event, error) {
	event, err := util.ConvertTaskToCalendarEvent(&task, now)
	if err != nil {
		return nil, err
	}

	var existingEvent *calendar.Event
	// 1. Try local index first
	if c.index != nil {
		if eventID := c.index.Get(task.ID); eventID != "" {
			existingEvent, err = c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err != nil || existingEvent.Status == "cancelled" {
				existingEvent = nil
			}
		}
	}

	// 2. Fall back to searching by the planner id property
	if existingEvent == nil {
		existingEvent, err = c.GetEventByTaskID(ctx, task.ID)
		if err != nil {
			return nil, fmt.Errorf("error searching for event: %w", err)
		}
	}

	if existingEvent != nil {
		patch := util.EventNeedsUpdate(existingEvent, event)
		if patch == nil {
			c.remember(task.ID, existingEvent.Id)
			return existingEvent, nil
		}
		updatedEvent, err := c.PatchEvent(ctx, existingEvent.Id, patch)
		if err != nil {
			return nil, err
		}
		c.remember(task.ID, updatedEvent.Id)
		return updatedEvent, nil
	}

	createdEvent, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	c.remember(task.ID, createdEvent.Id)
	return createdEvent, nil
}

func (c *CalendarClient) remember(taskID, eventID string) {
	if c.index != nil {
		c.index.Set(taskID, eventID)
	}
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

// DeleteEvent deletes an event. An event that is already gone is not an error.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
		return nil
	}
	return err
}

// ListEvents fetches events starting after timeMin.
func (c *CalendarClient) ListEvents(ctx context.Context, timeMin time.Time) ([]*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).TimeMin(timeMin.Format(time.RFC3339)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}
	return events.Items, nil
}

// GetEventByTaskID finds the event carrying the task's planner id, or nil.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", util.PlannerIDProperty, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

// MirrorReport counts what one Mirror pass did.
type MirrorReport struct {
	Synced  int
	Removed int
	Failed  int
}

// Mirror brings the calendar in line with tasks: every dated task gets an
// event and indexed events whose task is gone or undated are deleted.
func (c *CalendarClient) Mirror(ctx context.Context, tasks []model.Task, now time.Time) (MirrorReport, error) {
	var (
		report MirrorReport
		errs   []error
	)
	dated := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		if !task.HasDueDate() {
			continue
		}
		dated[task.ID] = true
		if _, err := c.SyncEvent(ctx, task, now); err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			continue
		}
		report.Synced++
	}

	if c.index != nil {
		for _, taskID := range c.index.TaskIDs() {
			if dated[taskID] {
				continue
			}
			if err := c.DeleteEvent(ctx, c.index.Get(taskID)); err != nil {
				report.Failed++
				errs = append(errs, fmt.Errorf("event for task %s: %w", taskID, err))
				continue
			}
			c.index.Remove(taskID)
			report.Removed++
		}
	}

	c.logger.Info("calendar mirror finished",
		zap.Int("synced", report.Synced),
		zap.Int("removed", report.Removed),
		zap.Int("failed", report.Failed),
	)
	return report, errors.Join(errs...)
}
