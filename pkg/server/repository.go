package server

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/harrisonrobin/planner/pkg/api"
)

var errNotFound = errors.New("not found")

// Repository is an in-memory task and habit table with auto-increment ids.
type Repository struct {
	mu        sync.Mutex
	tasks     map[int64]api.Task
	habits    map[int64]api.Habit
	nextTask  int64
	nextHabit int64
	now       func() time.Time
}

func NewRepository() *Repository {
	return &Repository{
		tasks:  make(map[int64]api.Task),
		habits: make(map[int64]api.Habit),
		now:    time.Now,
	}
}

// ListTasks returns tasks newest id first.
func (r *Repository) ListTasks() []api.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := sortedDesc(r.tasks)
	out := make([]api.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.tasks[id])
	}
	return out
}

func (r *Repository) CreateTask(t api.Task) api.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextTask++
	t.ID = api.ID(strconv.FormatInt(r.nextTask, 10))
	t.CreatedAt = &api.Timestamp{Time: r.now().UTC()}
	r.tasks[r.nextTask] = t
	return t
}

// UpdateTask replaces every writable field; id and created_at are kept.
func (r *Repository) UpdateTask(id int64, t api.Task) (api.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.tasks[id]
	if !ok {
		return api.Task{}, errNotFound
	}
	t.ID = old.ID
	t.CreatedAt = old.CreatedAt
	r.tasks[id] = t
	return t, nil
}

func (r *Repository) DeleteTask(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return errNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *Repository) ListHabits() []api.Habit {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := sortedDesc(r.habits)
	out := make([]api.Habit, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.habits[id])
	}
	return out
}

func (r *Repository) CreateHabit(h api.Habit) api.Habit {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextHabit++
	h.ID = api.ID(strconv.FormatInt(r.nextHabit, 10))
	h.CreatedAt = &api.Timestamp{Time: r.now().UTC()}
	r.habits[r.nextHabit] = h
	return h
}

func (r *Repository) UpdateHabit(id int64, h api.Habit) (api.Habit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.habits[id]
	if !ok {
		return api.Habit{}, errNotFound
	}
	h.ID = old.ID
	h.CreatedAt = old.CreatedAt
	r.habits[id] = h
	return h, nil
}

func (r *Repository) DeleteHabit(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.habits[id]; !ok {
		return errNotFound
	}
	delete(r.habits, id)
	return nil
}

func sortedDesc[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids
}
