package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrisonrobin/planner/pkg/index"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// fakeCalendar serves the subset of the Calendar v3 API the mirror uses.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]*calendar.Event
	next    int
	patches int
}

func newFakeCalendar(t *testing.T) (*fakeCalendar, *calendar.Service) {
	t.Helper()
	fc := &fakeCalendar{events: make(map[string]*calendar.Event)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "primary", Summary: "Personal"},
			{Id: "cal-1", Summary: "Planner"},
		}})
	})
	mux.HandleFunc("GET /calendars/{cal}/events", fc.list)
	mux.HandleFunc("POST /calendars/{cal}/events", fc.insert)
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", fc.get)
	mux.HandleFunc("PATCH /calendars/{cal}/events/{id}", fc.patch)
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", fc.delete)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)
	return fc, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
}

func (fc *fakeCalendar) list(w http.ResponseWriter, r *http.Request) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	out := &calendar.Events{}
	want := r.URL.Query().Get("privateExtendedProperty")
	for _, e := range fc.events {
		if want != "" {
			k, v, _ := strings.Cut(want, "=")
			if e.ExtendedProperties == nil || e.ExtendedProperties.Private[k] != v {
				continue
			}
		}
		out.Items = append(out.Items, e)
	}
	writeJSON(w, out)
}

func (fc *fakeCalendar) insert(w http.ResponseWriter, r *http.Request) {
	var e calendar.Event
	json.NewDecoder(r.Body).Decode(&e)
	fc.mu.Lock()
	fc.next++
	e.Id = fmt.Sprintf("evt-%d", fc.next)
	fc.events[e.Id] = &e
	fc.mu.Unlock()
	writeJSON(w, &e)
}

func (fc *fakeCalendar) get(w http.ResponseWriter, r *http.Request) {
	fc.mu.Lock()
	e, ok := fc.events[r.PathValue("id")]
	fc.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, e)
}

func (fc *fakeCalendar) patch(w http.ResponseWriter, r *http.Request) {
	var p calendar.Event
	json.NewDecoder(r.Body).Decode(&p)
	fc.mu.Lock()
	defer fc.mu.Unlock()
	e, ok := fc.events[r.PathValue("id")]
	if !ok {
		notFound(w)
		return
	}
	fc.patches++
	if p.Summary != "" {
		e.Summary = p.Summary
	}
	if p.Description != "" {
		e.Description = p.Description
	}
	if p.ColorId != "" {
		e.ColorId = p.ColorId
	}
	if p.Start != nil {
		e.Start, e.End = p.Start, p.End
	}
	if p.ExtendedProperties != nil {
		e.ExtendedProperties = p.ExtendedProperties
	}
	writeJSON(w, e)
}

func (fc *fakeCalendar) delete(w http.ResponseWriter, r *http.Request) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if _, ok := fc.events[r.PathValue("id")]; !ok {
		notFound(w)
		return
	}
	delete(fc.events, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T) (*fakeCalendar, *CalendarClient, *index.EventIndex) {
	t.Helper()
	fc, srv := newFakeCalendar(t)
	idx, err := index.NewEventIndex(filepath.Join(t.TempDir(), "events.json"))
	require.NoError(t, err)
	c, err := ForCalendar(context.Background(), srv, "Planner", idx, zap.NewNop())
	require.NoError(t, err)
	return fc, c, idx
}

func TestForCalendar(t *testing.T) {
	_, srv := newFakeCalendar(t)
	c, err := ForCalendar(context.Background(), srv, "Planner", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "cal-1", c.calendarID)

	_, err = ForCalendar(context.Background(), srv, "Missing", nil, nil)
	assert.Error(t, err)
}

func TestSyncEvent(t *testing.T) {
	ctx := context.Background()
	fc, c, idx := newTestClient(t)
	task := model.Task{ID: "5", Title: "Essay", Priority: model.High, Category: model.School, Status: model.PENDING, DueDate: "01/12", Minutes: 90}

	created, err := c.SyncEvent(ctx, task, now)
	require.NoError(t, err)
	assert.Equal(t, "Essay", created.Summary)
	assert.Equal(t, "2024-01-12", created.Start.Date)
	assert.Equal(t, created.Id, idx.Get("5"))

	again, err := c.SyncEvent(ctx, task, now)
	require.NoError(t, err)
	assert.Equal(t, created.Id, again.Id)
	assert.Zero(t, fc.patches)

	task.Status = model.DONE
	updated, err := c.SyncEvent(ctx, task, now)
	require.NoError(t, err)
	assert.Equal(t, "✓ Essay", updated.Summary)
	assert.Equal(t, 1, fc.patches)
	assert.Len(t, fc.events, 1)

	_, err = c.SyncEvent(ctx, model.Task{ID: "6", Title: "Undated"}, now)
	assert.Error(t, err)
}

func TestSyncEventFindsByPropertyWhenIndexIsStale(t *testing.T) {
	ctx := context.Background()
	fc, c, idx := newTestClient(t)
	task := model.Task{ID: "5", Title: "Essay", Status: model.PENDING, DueDate: "01/12"}

	created, err := c.SyncEvent(ctx, task, now)
	require.NoError(t, err)
	idx.Set("5", "evt-gone")

	found, err := c.SyncEvent(ctx, task, now)
	require.NoError(t, err)
	assert.Equal(t, created.Id, found.Id)
	assert.Equal(t, created.Id, idx.Get("5"))
	assert.Len(t, fc.events, 1)
}

func TestMirror(t *testing.T) {
	ctx := context.Background()
	fc, c, idx := newTestClient(t)

	tasks := []model.Task{
		{ID: "1", Title: "Dated", Status: model.PENDING, DueDate: "01/11"},
		{ID: "2", Title: "Also dated", Status: model.PENDING, DueDate: "01/13"},
		{ID: "3", Title: "Running", Status: model.PENDING},
	}
	report, err := c.Mirror(ctx, tasks, now)
	require.NoError(t, err)
	assert.Equal(t, MirrorReport{Synced: 2}, report)
	assert.Len(t, fc.events, 2)

	// Task 2 is deleted and task 1 loses its due date.
	tasks = []model.Task{{ID: "1", Title: "Dated", Status: model.PENDING}}
	report, err = c.Mirror(ctx, tasks, now)
	require.NoError(t, err)
	assert.Equal(t, MirrorReport{Removed: 2}, report)
	assert.Empty(t, fc.events)
	assert.Empty(t, idx.TaskIDs())
}

func TestMirrorFollowsRekey(t *testing.T) {
	ctx := context.Background()
	fc, c, idx := newTestClient(t)
	local := model.Task{ID: "local-1", Title: "Offline", Status: model.PENDING, DueDate: "01/10"}
	_, err := c.SyncEvent(ctx, local, now)
	require.NoError(t, err)

	require.True(t, idx.Rekey("local-1", "42"))
	local.ID = "42"
	report, err := c.Mirror(ctx, []model.Task{local}, now)
	require.NoError(t, err)
	assert.Equal(t, MirrorReport{Synced: 1}, report)
	require.Len(t, fc.events, 1)
	for _, e := range fc.events {
		assert.Equal(t, "42", e.ExtendedProperties.Private[util.PlannerIDProperty])
	}
}

func TestDeleteEventIgnoresMissing(t *testing.T) {
	_, c, _ := newTestClient(t)
	assert.NoError(t, c.DeleteEvent(context.Background(), "nope"))
}
