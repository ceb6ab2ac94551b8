// Package server is a reference implementation of the planner REST API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harrisonrobin/planner/pkg/api"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	maxTitleLength   = 200
	maxDueDateLength = 10
)

// Server serves /api/tasks/ and /api/habits/.
type Server struct {
	echo    *echo.Echo
	repo    *Repository
	metrics *Metrics
	logger  *zap.Logger
	config  *Config
}

type Config struct {
	Host string
	Port int
}

func NewServer(repo *Repository, logger *zap.Logger, cfg *Config) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if repo == nil {
		repo = NewRepository()
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8000}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		repo:    repo,
		metrics: NewMetrics(),
		logger:  logger,
		config:  cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})
	e.Use(s.metrics.Middleware())

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", s.metrics.Handler())

	g := s.echo.Group("/api")
	g.GET("/tasks/", s.handleListTasks)
	g.POST("/tasks/", s.handleCreateTask)
	g.PUT("/tasks/:id/", s.handleUpdateTask)
	g.DELETE("/tasks/:id/", s.handleDeleteTask)

	g.GET("/habits/", s.handleListHabits)
	g.POST("/habits/", s.handleCreateHabit)
	g.PUT("/habits/:id/", s.handleUpdateHabit)
	g.DELETE("/habits/:id/", s.handleDeleteHabit)
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting planner api", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down planner api")
	return s.echo.Shutdown(ctx)
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// fieldErrors mirrors the {field: [messages]} body of a validation failure.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

func (s *Server) handleListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, s.repo.ListTasks())
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var req api.Task
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid task body", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	task, errs := validateTask(req)
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	return c.JSON(http.StatusCreated, s.repo.CreateTask(task))
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req api.Task
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	task, errs := validateTask(req)
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	updated, err := s.repo.UpdateTask(id, task)
	if errors.Is(err, errNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Not found.")
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTask(id); errors.Is(err, errNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Not found.")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListHabits(c echo.Context) error {
	return c.JSON(http.StatusOK, s.repo.ListHabits())
}

func (s *Server) handleCreateHabit(c echo.Context) error {
	var req api.Habit
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	habit, errs := validateHabit(req)
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	return c.JSON(http.StatusCreated, s.repo.CreateHabit(habit))
}

func (s *Server) handleUpdateHabit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req api.Habit
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	habit, errs := validateHabit(req)
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}
	updated, err := s.repo.UpdateHabit(id, habit)
	if errors.Is(err, errNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Not found.")
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteHabit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteHabit(id); errors.Is(err, errNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Not found.")
	}
	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Not found.")
	}
	return id, nil
}

// validateTask applies field defaults and the choice constraints of the task table.
func validateTask(t api.Task) (api.Task, fieldErrors) {
	errs := fieldErrors{}

	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		errs.add("title", "This field may not be blank.")
	} else if utf8.RuneCountInString(t.Title) > maxTitleLength {
		errs.add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLength))
	}

	if t.Priority == "" {
		t.Priority = string(model.Medium)
	} else if !validChoice(t.Priority, model.Priorities) {
		errs.add("priority", fmt.Sprintf("%q is not a valid choice.", t.Priority))
	}

	if t.Category == "" {
		t.Category = string(model.Other)
	} else if !validChoice(t.Category, model.Categories) {
		errs.add("category", fmt.Sprintf("%q is not a valid choice.", t.Category))
	}

	if t.Status == "" {
		t.Status = string(model.PENDING)
	} else if t.Status != string(model.PENDING) && t.Status != string(model.DONE) {
		errs.add("status", fmt.Sprintf("%q is not a valid choice.", t.Status))
	}

	if t.Minutes < 0 {
		errs.add("minutes", "Ensure this value is greater than or equal to 0.")
	}

	if t.DueDate != nil {
		due := strings.TrimSpace(*t.DueDate)
		switch {
		case due == "":
			t.DueDate = nil
		case len(due) > maxDueDateLength:
			errs.add("due_date", fmt.Sprintf("Ensure this field has no more than %d characters.", maxDueDateLength))
		default:
			t.DueDate = &due
		}
	}

	return t, errs
}

// validateHabit folds a checks object into the per-day fields the table stores.
func validateHabit(h api.Habit) (api.Habit, fieldErrors) {
	errs := fieldErrors{}
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		errs.add("name", "This field may not be blank.")
	} else if utf8.RuneCountInString(h.Name) > maxTitleLength {
		errs.add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLength))
	}
	folded := api.HabitFromModel(h.Normalize())
	folded.ID = h.ID
	return folded, errs
}

func validChoice[T ~string](v string, choices []T) bool {
	for _, c := range choices {
		if string(c) == v {
			return true
		}
	}
	return false
}
