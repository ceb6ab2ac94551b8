// Package api is a client for the planner REST service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
	"go.uber.org/zap"
)

// DefaultBaseURL is where the reference server listens by default.
const DefaultBaseURL = "http://localhost:8000/api"

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

type Option func(*Client)

// WithHTTPClient sets the transport, e.g. one carrying an oauth2 token source.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var wire []Task
	if err := c.do(ctx, http.MethodGet, "/tasks/", nil, &wire); err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(wire))
	for _, t := range wire {
		tasks = append(tasks, t.Normalize())
	}
	return tasks, nil
}

func (c *Client) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	body := TaskFromModel(task)
	body.ID = ""
	var created Task
	if err := c.do(ctx, http.MethodPost, "/tasks/", body, &created); err != nil {
		return model.Task{}, err
	}
	return created.Normalize(), nil
}

func (c *Client) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	var updated Task
	if err := c.do(ctx, http.MethodPut, taskPath(task.ID), TaskFromModel(task), &updated); err != nil {
		return model.Task{}, err
	}
	return updated.Normalize(), nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) ListHabits(ctx context.Context) ([]model.Habit, error) {
	var wire []Habit
	if err := c.do(ctx, http.MethodGet, "/habits/", nil, &wire); err != nil {
		return nil, err
	}
	habits := make([]model.Habit, 0, len(wire))
	for _, h := range wire {
		habits = append(habits, h.Normalize())
	}
	return habits, nil
}

func (c *Client) CreateHabit(ctx context.Context, habit model.Habit) (model.Habit, error) {
	body := HabitFromModel(habit)
	body.ID = ""
	var created Habit
	if err := c.do(ctx, http.MethodPost, "/habits/", body, &created); err != nil {
		return model.Habit{}, err
	}
	return created.Normalize(), nil
}

func (c *Client) UpdateHabit(ctx context.Context, habit model.Habit) (model.Habit, error) {
	var updated Habit
	if err := c.do(ctx, http.MethodPut, habitPath(habit.ID), HabitFromModel(habit), &updated); err != nil {
		return model.Habit{}, err
	}
	return updated.Normalize(), nil
}

func (c *Client) DeleteHabit(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, habitPath(id), nil, nil)
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id) + "/"
}

func habitPath(id string) string {
	return "/habits/" + url.PathEscape(id) + "/"
}

// do sends one JSON request. out may be nil; an empty response body is not an error.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &Error{Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &Error{StatusCode: resp.StatusCode, StatusText: statusText(resp.StatusCode, resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Err: fmt.Errorf("failed to decode response body: %w", err)}
	}
	return nil
}
