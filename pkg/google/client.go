// Package google mirrors dated planner tasks into a Google calendar.
package google

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/planner/pkg/auth"
	"github.com/harrisonrobin/planner/pkg/index"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
)

// NewClient authorizes against Google with the credentials in dir and returns a
// client for the calendar named calendarName.
func NewClient(ctx context.Context, dir, calendarName string, idx *index.EventIndex, logger *zap.Logger) (*CalendarClient, error) {
	srv, err := auth.GetCalendarService(ctx, dir, logger)
	if err != nil {
		return nil, err
	}
	return ForCalendar(ctx, srv, calendarName, idx, logger)
}

// ForCalendar looks up calendarName in the user's calendar list.
func ForCalendar(ctx context.Context, srv *calendar.Service, calendarName string, idx *index.EventIndex, logger *zap.Logger) (*CalendarClient, error) {
	calendarList, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve calendar list: %w", err)
	}

	var calendarID string
	for _, item := range calendarList.Items {
		if item.Summary == calendarName {
			calendarID = item.Id
			break
		}
	}

	if calendarID == "" {
		return nil, fmt.Errorf("calendar '%s' not found", calendarName)
	}

	return NewCalendarClient(srv, calendarID, idx, logger), nil
}
