// Package store keeps the in-memory list of tasks and habits and reconciles it
// with the planner API.
//
// Remote-backed entry points (CreateTask, UpdateTask, RemoveTask, FetchTasks,
// CreateHabit, FetchHabits) report failures to the caller and record them in
// State.Error. Local-only entry points (AddTaskLocal, ToggleTaskLocal,
// DeleteTaskLocal, AddHabit, ToggleHabitCheck) never touch the network. The
// store-owned entry points (AddTask, ToggleTask, SetTaskDone, DeleteTask,
// TrackHabit, CheckHabit, DropHabit) try the remote call first and apply the
// local mutation themselves when it fails.
//
// Every local-only mutation is recorded in a pending table so Resync can
// replay it later.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/pending"
	"github.com/harrisonrobin/planner/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrEmptyTitle      = errors.New("title must not be empty")
	ErrInvalidHours    = util.ErrInvalidHours
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDueDate  = errors.New("invalid due date")
	ErrEmptyHabitName  = errors.New("habit name must not be empty")
	ErrHabitLimit      = errors.New("habit limit reached")
	ErrTaskNotFound    = errors.New("task not found")
	ErrHabitNotFound   = errors.New("habit not found")
	ErrUnknownDay      = errors.New("unknown weekday")
	ErrNoRemote        = errors.New("no remote service configured")
)

const (
	defaultResyncRate  = 5
	defaultResyncBurst = 1
)

// Remote is the planner API as the store sees it. *api.Client implements it.
type Remote interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, task model.Task) (model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error

	ListHabits(ctx context.Context) ([]model.Habit, error)
	CreateHabit(ctx context.Context, habit model.Habit) (model.Habit, error)
	UpdateHabit(ctx context.Context, habit model.Habit) (model.Habit, error)
	DeleteHabit(ctx context.Context, id string) error
}

// State is a point-in-time copy of the store. Error is empty when no error is set.
type State struct {
	Items   []model.Task
	Habits  []model.Habit
	Loading bool
	Error   string
}

type Store struct {
	mu      sync.Mutex
	items   []model.Task
	habits  []model.Habit
	loading int
	err     string
	pending *pending.Table

	listeners    []listener
	nextListener int

	remote  Remote
	locks   *keyedMutex
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

type listener struct {
	id int
	fn func(State)
}

type Option func(*Store)

func WithRemote(r Remote) Option {
	return func(s *Store) {
		s.remote = r
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPending sets the table local-only mutations are recorded in.
func WithPending(t *pending.Table) Option {
	return func(s *Store) {
		if t != nil {
			s.pending = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithResyncLimit paces the requests Resync sends.
func WithResyncLimit(perSecond float64, burst int) Option {
	return func(s *Store) {
		if perSecond <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New returns an empty store. Without WithRemote every remote-backed entry
// point fails with ErrNoRemote and store-owned ones apply locally.
func New(opts ...Option) *Store {
	table, _ := pending.NewTable("")
	s := &Store{
		pending: table,
		locks:   newKeyedMutex(),
		limiter: rate.NewLimiter(rate.Limit(defaultResyncRate), defaultResyncBurst),
		logger:  zap.NewNop(),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to be called with a fresh State after every change.
// The returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextListener++
	id := s.nextListener
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Restore replaces items and habits, e.g. from a snapshot written by an
// earlier process.
func (s *Store) Restore(items []model.Task, habits []model.Habit) {
	s.apply(func() error {
		s.items = cloneTasks(items)
		s.habits = cloneHabits(habits)
		return nil
	})
}

// Pending returns the table of mutations not yet confirmed by the remote.
func (s *Store) Pending() *pending.Table {
	return s.pending
}

func (s *Store) ClearError() {
	s.apply(func() error {
		s.err = ""
		return nil
	})
}

// apply runs fn under the state lock. Listeners are notified afterwards unless
// fn fails, in which case the state is left as fn found it.
func (s *Store) apply(fn func() error) error {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	fns := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l.fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
	return nil
}

func (s *Store) snapshotLocked() State {
	return State{
		Items:   cloneTasks(s.items),
		Habits:  cloneHabits(s.habits),
		Loading: s.loading > 0,
		Error:   s.err,
	}
}

// fail records a remote failure in State.Error and hands it back.
func (s *Store) fail(op string, err error) error {
	s.logger.Warn("remote operation failed", zap.String("op", op), zap.Error(err))
	s.apply(func() error {
		s.err = err.Error()
		return nil
	})
	return err
}

func (s *Store) setLoading(delta int) {
	s.apply(func() error {
		s.loading += delta
		return nil
	})
}

func cloneTasks(in []model.Task) []model.Task {
	if in == nil {
		return []model.Task{}
	}
	out := make([]model.Task, len(in))
	copy(out, in)
	return out
}

func cloneHabits(in []model.Habit) []model.Habit {
	out := make([]model.Habit, 0, len(in))
	for _, h := range in {
		out = append(out, h.Clone())
	}
	return out
}
