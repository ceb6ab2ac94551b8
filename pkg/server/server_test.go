package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harrisonrobin/planner/pkg/api"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(NewRepository(), zap.NewNop(), nil)
	require.NoError(t, err)
	return s
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("uses defaults when config is nil", func(t *testing.T) {
		s := setupTestServer(t)
		assert.Equal(t, "localhost", s.config.Host)
		assert.Equal(t, 8000, s.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(nil, nil, nil)
		assert.Error(t, err)
	})
}

func TestHandleHealth(t *testing.T) {
	rec := do(setupTestServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateTask(t *testing.T) {
	s := setupTestServer(t)

	t.Run("applies defaults", func(t *testing.T) {
		rec := do(s, http.MethodPost, "/api/tasks/", `{"title":"  Essay  ","minutes":30,"due_date":""}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var task api.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.Equal(t, api.ID("1"), task.ID)
		assert.Equal(t, "Essay", task.Title)
		assert.Equal(t, "Medium", task.Priority)
		assert.Equal(t, "Other", task.Category)
		assert.Equal(t, "pending", task.Status)
		assert.Nil(t, task.DueDate)
		require.NotNil(t, task.CreatedAt)
	})

	t.Run("rejects invalid choices", func(t *testing.T) {
		rec := do(s, http.MethodPost, "/api/tasks/", `{"title":"x","priority":"Urgent","status":"started","minutes":-5}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var errs map[string][]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errs))
		assert.Contains(t, errs, "priority")
		assert.Contains(t, errs, "status")
		assert.Contains(t, errs, "minutes")
	})

	t.Run("rejects blank title", func(t *testing.T) {
		rec := do(s, http.MethodPost, "/api/tasks/", `{"title":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListTasksNewestFirst(t *testing.T) {
	s := setupTestServer(t)
	do(s, http.MethodPost, "/api/tasks/", `{"title":"first"}`)
	do(s, http.MethodPost, "/api/tasks/", `{"title":"second"}`)

	rec := do(s, http.MethodGet, "/api/tasks/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var tasks []api.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, "second", tasks[0].Title)
	assert.Equal(t, "first", tasks[1].Title)
}

func TestUpdateAndDeleteTask(t *testing.T) {
	s := setupTestServer(t)
	do(s, http.MethodPost, "/api/tasks/", `{"title":"Run"}`)

	rec := do(s, http.MethodPut, "/api/tasks/1/", `{"id":1,"title":"Run","status":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"done"`)

	rec = do(s, http.MethodPut, "/api/tasks/7/", `{"title":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, http.MethodDelete, "/api/tasks/1/", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(s, http.MethodDelete, "/api/tasks/1/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(s, http.MethodDelete, "/api/tasks/abc/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHabitChecksFolded(t *testing.T) {
	s := setupTestServer(t)
	rec := do(s, http.MethodPost, "/api/habits/", `{"name":"Stretch","checks":{"Tue":true}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var h api.Habit
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.True(t, h.Tue)
	assert.False(t, h.Mon)

	rec = do(s, http.MethodPost, "/api/habits/", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics(t *testing.T) {
	s := setupTestServer(t)
	do(s, http.MethodGet, "/api/tasks/", "")
	do(s, http.MethodDelete, "/api/tasks/9/", "")

	ok := s.Metrics().requests.WithLabelValues(http.MethodGet, "/api/tasks/", "200")
	assert.Equal(t, float64(1), testutil.ToFloat64(ok))
	missing := s.Metrics().requests.WithLabelValues(http.MethodDelete, "/api/tasks/:id/", "404")
	assert.Equal(t, float64(1), testutil.ToFloat64(missing))

	rec := do(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "planner_http_requests_total")
}
