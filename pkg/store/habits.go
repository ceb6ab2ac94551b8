package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/pending"
	"go.uber.org/zap"
)

// AddHabit appends an unsynced habit with an unchecked week. Once MaxHabits
// exist it returns ErrHabitLimit and leaves the store unchanged.
func (s *Store) AddHabit(name string) (model.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Habit{}, ErrEmptyHabitName
	}
	habit := model.Habit{
		ID:        s.newID(),
		Name:      name,
		Checks:    model.BlankWeek(),
		CreatedAt: s.now(),
	}
	err := s.apply(func() error {
		if len(s.habits) >= model.MaxHabits {
			return ErrHabitLimit
		}
		s.habits = append(s.habits, habit)
		s.pending.Record(pending.KindHabit, habit.ID, pending.OpCreate, s.now())
		return nil
	})
	if err != nil {
		return model.Habit{}, err
	}
	return habit.Clone(), nil
}

// ToggleHabitCheck flips one day of a habit.
func (s *Store) ToggleHabitCheck(id string, day model.Weekday) (model.Habit, error) {
	if !validDay(day) {
		return model.Habit{}, fmt.Errorf("%w: %q", ErrUnknownDay, day)
	}
	var out model.Habit
	err := s.apply(func() error {
		i := s.habitIndexLocked(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		h := s.habits[i].Clone()
		h.Checks[day] = !h.Checks[day]
		s.habits[i] = h
		s.recordHabitChangeLocked(h)
		out = h.Clone()
		return nil
	})
	return out, err
}

// FetchHabits replaces the habit list with the server's, keeping pending
// local changes on top.
func (s *Store) FetchHabits(ctx context.Context) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	s.setLoading(1)
	fetched, err := s.remote.ListHabits(ctx)
	if err != nil {
		s.apply(func() error {
			s.loading--
			s.err = err.Error()
			return nil
		})
		s.logger.Warn("remote operation failed", zap.String("op", "fetch habits"), zap.Error(err))
		return err
	}
	s.apply(func() error {
		s.loading--
		s.habits = s.overlayHabitsLocked(fetched)
		s.err = ""
		return nil
	})
	return nil
}

func (s *Store) overlayHabitsLocked(fetched []model.Habit) []model.Habit {
	if s.pending.Len() == 0 {
		return cloneHabits(fetched)
	}
	local := make(map[string]model.Habit, len(s.habits))
	for _, h := range s.habits {
		local[h.ID] = h
	}

	out := make([]model.Habit, 0, len(fetched))
	for _, h := range fetched {
		if e, ok := s.pending.Get(pending.KindHabit, h.ID); ok {
			switch e.Op {
			case pending.OpDelete:
				continue
			case pending.OpUpdate:
				if l, ok := local[h.ID]; ok {
					h = l
				}
			}
		}
		out = append(out, h.Clone())
	}
	for _, e := range s.pending.Due() {
		if e.Kind != pending.KindHabit || e.Op != pending.OpCreate {
			continue
		}
		if l, ok := local[e.ID]; ok {
			out = append(out, l.Clone())
		}
	}
	return out
}

// CreateHabit posts a new habit with an unchecked week and appends the
// server's copy.
func (s *Store) CreateHabit(ctx context.Context, name string) (model.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Habit{}, ErrEmptyHabitName
	}
	if s.remote == nil {
		return model.Habit{}, ErrNoRemote
	}
	unlock := s.locks.Lock(habitCreateKey)
	defer unlock()

	s.mu.Lock()
	full := len(s.habits) >= model.MaxHabits
	s.mu.Unlock()
	if full {
		return model.Habit{}, ErrHabitLimit
	}

	created, err := s.remote.CreateHabit(ctx, model.Habit{Name: name, Checks: model.BlankWeek()})
	if err != nil {
		return model.Habit{}, s.fail("create habit", err)
	}
	err = s.apply(func() error {
		// A local AddHabit may have filled the list during the request.
		if len(s.habits) >= model.MaxHabits {
			return ErrHabitLimit
		}
		s.habits = append(s.habits, created)
		s.err = ""
		return nil
	})
	if err != nil {
		if derr := s.remote.DeleteHabit(ctx, created.ID); derr != nil {
			s.logger.Warn("could not remove habit over the limit", zap.String("id", created.ID), zap.Error(derr))
		}
		return model.Habit{}, err
	}
	return created.Clone(), nil
}

// TrackHabit creates a habit remotely and keeps it locally when that fails.
func (s *Store) TrackHabit(ctx context.Context, name string) (model.Habit, error) {
	if strings.TrimSpace(name) == "" {
		return model.Habit{}, ErrEmptyHabitName
	}
	if s.remote != nil {
		created, err := s.CreateHabit(ctx, name)
		if err == nil {
			return created, nil
		}
		if errors.Is(err, ErrHabitLimit) {
			return model.Habit{}, err
		}
		s.logger.Warn("keeping habit locally", zap.String("name", name), zap.Error(err))
	}
	return s.AddHabit(name)
}

// CheckHabit flips one day locally and then pushes the habit. A failed push
// leaves the local change queued for Resync.
func (s *Store) CheckHabit(ctx context.Context, id string, day model.Weekday) (model.Habit, error) {
	unlock := s.locks.Lock(habitKey(id))
	defer unlock()

	habit, err := s.ToggleHabitCheck(id, day)
	if err != nil {
		return model.Habit{}, err
	}
	if s.remote == nil || !habit.Synced {
		return habit, nil
	}

	updated, err := s.remote.UpdateHabit(ctx, habit)
	if err != nil {
		s.fail("update habit", err)
		return habit, nil
	}
	s.apply(func() error {
		s.landHabitLocked(id, habit, updated)
		s.err = ""
		return nil
	})
	return updated.Clone(), nil
}

// DropHabit deletes a habit remotely, falling back to a local delete.
func (s *Store) DropHabit(ctx context.Context, id string) error {
	unlock := s.locks.Lock(habitKey(id))
	defer unlock()

	habit, ok := s.findHabit(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrHabitNotFound, id)
	}
	if s.remote != nil && habit.Synced {
		err := s.remote.DeleteHabit(ctx, id)
		if err == nil {
			s.apply(func() error {
				if i := s.habitIndexLocked(id); i >= 0 {
					s.habits = append(s.habits[:i], s.habits[i+1:]...)
				}
				s.pending.Remove(pending.KindHabit, id)
				s.err = ""
				return nil
			})
			return nil
		}
		s.fail("delete habit", err)
		s.logger.Warn("deleting habit locally", zap.String("id", id), zap.Error(err))
	}
	return s.deleteHabitLocal(id)
}

func (s *Store) deleteHabitLocal(id string) error {
	return s.apply(func() error {
		i := s.habitIndexLocked(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		habit := s.habits[i]
		s.habits = append(s.habits[:i], s.habits[i+1:]...)
		if habit.Synced {
			s.pending.Record(pending.KindHabit, id, pending.OpDelete, s.now())
		} else {
			s.pending.Remove(pending.KindHabit, id)
		}
		return nil
	})
}

// FindHabit returns the habit with id.
func (s *Store) FindHabit(id string) (model.Habit, bool) {
	return s.findHabit(id)
}

func (s *Store) findHabit(id string) (model.Habit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.habitIndexLocked(id); i >= 0 {
		return s.habits[i].Clone(), true
	}
	return model.Habit{}, false
}

func (s *Store) habitIndexLocked(id string) int {
	for i, h := range s.habits {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// landHabitLocked is landTaskLocked for habits.
func (s *Store) landHabitLocked(id string, before, synced model.Habit) bool {
	i := s.habitIndexLocked(id)
	if i < 0 {
		return false
	}
	s.pending.Remove(pending.KindHabit, id)
	local := s.habits[i]
	if !habitEdited(before, local) {
		s.habits[i] = synced.Clone()
		return true
	}
	local = local.Clone()
	local.ID, local.CreatedAt, local.Synced = synced.ID, synced.CreatedAt, true
	s.habits[i] = local
	s.pending.Record(pending.KindHabit, local.ID, pending.OpUpdate, s.now())
	return true
}

func habitEdited(before, local model.Habit) bool {
	if before.Name != local.Name {
		return true
	}
	for _, d := range model.Weekdays {
		if before.Checks[d] != local.Checks[d] {
			return true
		}
	}
	return false
}

func (s *Store) recordHabitChangeLocked(h model.Habit) {
	op := pending.OpUpdate
	if !h.Synced {
		op = pending.OpCreate
	}
	s.pending.Record(pending.KindHabit, h.ID, op, s.now())
}

func validDay(day model.Weekday) bool {
	for _, d := range model.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}
