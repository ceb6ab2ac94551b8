package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harrisonrobin/planner/pkg/api"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) *api.Client {
	t.Helper()
	srv, err := server.NewServer(server.NewRepository(), zap.NewNop(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return api.NewClient(ts.URL+"/api", api.WithHTTPClient(ts.Client()))
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	created, err := client.CreateTask(ctx, model.Task{
		ID:       "local-uuid",
		Title:    "Read chapter 4",
		Priority: model.High,
		Minutes:  90,
		Category: model.School,
		Status:   model.PENDING,
		DueDate:  "01/12",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", created.ID)
	assert.True(t, created.Synced)
	assert.Equal(t, "01/12", created.DueDate)
	assert.False(t, created.CreatedAt.IsZero())

	created.Status = model.DONE
	updated, err := client.UpdateTask(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, model.DONE, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	tasks, err := client.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Read chapter 4", tasks[0].Title)

	require.NoError(t, client.DeleteTask(ctx, created.ID))
	tasks, err = client.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestHabitLifecycle(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	h, err := client.CreateHabit(ctx, model.Habit{Name: "Climb", Checks: model.BlankWeek()})
	require.NoError(t, err)
	assert.Equal(t, "1", h.ID)
	assert.Len(t, h.Checks, 7)

	h.Checks[model.Wed] = true
	updated, err := client.UpdateHabit(ctx, h)
	require.NoError(t, err)
	assert.True(t, updated.Checks[model.Wed])
	assert.Equal(t, 1, updated.CheckCount())

	habits, err := client.ListHabits(ctx)
	require.NoError(t, err)
	require.Len(t, habits, 1)

	require.NoError(t, client.DeleteHabit(ctx, h.ID))
}

func TestErrorMessage(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	err := client.DeleteTask(ctx, "99")
	require.Error(t, err)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "API Error: 404 Not Found", err.Error())

	_, err = client.CreateTask(ctx, model.Task{Title: " "})
	assert.EqualError(t, err, "API Error: 400 Bad Request")
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := api.NewClient(url)
	_, err := client.ListTasks(context.Background())
	require.Error(t, err)

	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.StatusCode)
	assert.True(t, strings.HasPrefix(err.Error(), "API Error: "))
}

func TestEmptyDeleteBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/5/", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := api.NewClient(ts.URL + "/api/")
	assert.NoError(t, client.DeleteTask(context.Background(), "5"))
}

func TestNormalizeRemoteSchema(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 3, "title": "Lab report", "priority": "low", "minutes": 45, "category": "Work",
			 "status": "done", "due_date": "2024-01-12", "created_at": "2024-01-10T08:00:00.123456Z"},
			{"id": "abc", "title": "Groceries", "priority": "High", "minutes": 0, "category": "Personal",
			 "status": "pending", "due_date": null, "created_at": null}
		]`))
	}))
	defer ts.Close()

	tasks, err := api.NewClient(ts.URL).ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "3", tasks[0].ID)
	assert.Equal(t, model.Low, tasks[0].Priority)
	assert.Equal(t, "01/12", tasks[0].DueDate)
	assert.Equal(t, model.DONE, tasks[0].Status)

	assert.Equal(t, "abc", tasks[1].ID)
	assert.Empty(t, tasks[1].DueDate)
	assert.True(t, tasks[1].CreatedAt.IsZero())
}

func TestIDMarshalJSON(t *testing.T) {
	tests := []struct {
		id   api.ID
		want string
	}{
		{id: "42", want: `42`},
		{id: "0", want: `0`},
		{id: "-3", want: `-3`},
		{id: "007", want: `"007"`},
		{id: "+5", want: `"+5"`},
		{id: "4f0c2a9e", want: `"4f0c2a9e"`},
		{id: "", want: `""`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(struct {
			ID api.ID `json:"id"`
		}{ID: tt.id})
		require.NoError(t, err, tt.id)
		assert.Equal(t, `{"id":`+tt.want+`}`, string(b))
		assert.True(t, json.Valid(b), tt.id)

		var back struct {
			ID api.ID `json:"id"`
		}
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, tt.id, back.ID)
	}
}
