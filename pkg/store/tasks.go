package store

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/pending"
	"go.uber.org/zap"
)

// AddTaskLocal validates in and appends it as an unsynced task.
func (s *Store) AddTaskLocal(in TaskInput) (model.Task, error) {
	task, err := s.newTask(in)
	if err != nil {
		return model.Task{}, err
	}
	s.insertLocalTask(task)
	return task, nil
}

func (s *Store) insertLocalTask(task model.Task) {
	task.Synced = false
	s.apply(func() error {
		s.items = append(s.items, task)
		s.pending.Record(pending.KindTask, task.ID, pending.OpCreate, s.now())
		return nil
	})
}

// CreateTask posts task and appends the server's copy. The server id replaces
// whatever id task carried.
func (s *Store) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	if s.remote == nil {
		return model.Task{}, ErrNoRemote
	}
	created, err := s.remote.CreateTask(ctx, task)
	if err != nil {
		return model.Task{}, s.fail("create task", err)
	}
	s.apply(func() error {
		s.items = append(s.items, created)
		s.err = ""
		return nil
	})
	return created, nil
}

// ToggleTaskLocal flips a task between pending and done.
func (s *Store) ToggleTaskLocal(id string) (model.Task, error) {
	var out model.Task
	err := s.apply(func() error {
		i := s.taskIndexLocked(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		s.items[i].Status = s.items[i].Status.Toggle()
		s.recordTaskChangeLocked(s.items[i])
		out = s.items[i]
		return nil
	})
	return out, err
}

// UpdateTask sends the full task and replaces the local entry with the
// response. An unsynced task is only replaced locally; Resync ships it.
func (s *Store) UpdateTask(ctx context.Context, task model.Task) (model.Task, error) {
	unlock := s.locks.Lock(taskKey(task.ID))
	defer unlock()
	return s.updateTask(ctx, task)
}

func (s *Store) updateTask(ctx context.Context, task model.Task) (model.Task, error) {
	stored, ok := s.findTask(task.ID)
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, task.ID)
	}
	// The store decides whether the server knows this task, not the caller.
	task.Synced = stored.Synced
	if !task.Synced {
		err := s.apply(func() error {
			i := s.taskIndexLocked(task.ID)
			if i < 0 {
				return fmt.Errorf("%w: %s", ErrTaskNotFound, task.ID)
			}
			s.items[i] = task
			s.recordTaskChangeLocked(task)
			return nil
		})
		if err != nil {
			return model.Task{}, err
		}
		return task, nil
	}
	if s.remote == nil {
		return model.Task{}, ErrNoRemote
	}

	updated, err := s.remote.UpdateTask(ctx, task)
	if err != nil {
		return model.Task{}, s.fail("update task", err)
	}
	s.apply(func() error {
		s.landTaskLocked(task.ID, stored, updated)
		s.err = ""
		return nil
	})
	return updated, nil
}

// DeleteTaskLocal removes a task from the list.
func (s *Store) DeleteTaskLocal(id string) error {
	return s.apply(func() error {
		i := s.taskIndexLocked(id)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		task := s.items[i]
		s.items = append(s.items[:i], s.items[i+1:]...)
		if task.Synced {
			s.pending.Record(pending.KindTask, id, pending.OpDelete, s.now())
		} else {
			s.pending.Remove(pending.KindTask, id)
		}
		return nil
	})
}

// RemoveTask deletes a task remotely, then locally. An unsynced task is only
// removed locally.
func (s *Store) RemoveTask(ctx context.Context, id string) error {
	unlock := s.locks.Lock(taskKey(id))
	defer unlock()
	return s.removeTask(ctx, id)
}

func (s *Store) removeTask(ctx context.Context, id string) error {
	task, ok := s.findTask(id)
	if ok && !task.Synced {
		return s.DeleteTaskLocal(id)
	}
	if s.remote == nil {
		return ErrNoRemote
	}
	if err := s.remote.DeleteTask(ctx, id); err != nil {
		return s.fail("delete task", err)
	}
	s.apply(func() error {
		if i := s.taskIndexLocked(id); i >= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		}
		s.pending.Remove(pending.KindTask, id)
		s.err = ""
		return nil
	})
	return nil
}

// FetchTasks replaces the task list with the server's. Local mutations that
// are still pending are laid over the fetched list.
func (s *Store) FetchTasks(ctx context.Context) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	s.setLoading(1)
	fetched, err := s.remote.ListTasks(ctx)
	if err != nil {
		s.apply(func() error {
			s.loading--
			s.err = err.Error()
			return nil
		})
		s.logger.Warn("remote operation failed", zap.String("op", "fetch tasks"), zap.Error(err))
		return err
	}
	s.apply(func() error {
		s.loading--
		s.items = s.overlayTasksLocked(fetched)
		s.err = ""
		return nil
	})
	return nil
}

func (s *Store) overlayTasksLocked(fetched []model.Task) []model.Task {
	if s.pending.Len() == 0 {
		return cloneTasks(fetched)
	}
	local := make(map[string]model.Task, len(s.items))
	for _, t := range s.items {
		local[t.ID] = t
	}

	out := make([]model.Task, 0, len(fetched))
	for _, t := range fetched {
		if e, ok := s.pending.Get(pending.KindTask, t.ID); ok {
			switch e.Op {
			case pending.OpDelete:
				continue
			case pending.OpUpdate:
				if l, ok := local[t.ID]; ok {
					t = l
				}
			}
		}
		out = append(out, t)
	}
	for _, e := range s.pending.Due() {
		if e.Kind != pending.KindTask || e.Op != pending.OpCreate {
			continue
		}
		if l, ok := local[e.ID]; ok {
			out = append(out, l)
		}
	}
	return out
}

// AddTask creates a task remotely and keeps it locally when that fails.
// Only invalid input is reported as an error.
func (s *Store) AddTask(ctx context.Context, in TaskInput) (model.Task, error) {
	task, err := s.newTask(in)
	if err != nil {
		return model.Task{}, err
	}
	if s.remote != nil {
		created, err := s.CreateTask(ctx, task)
		if err == nil {
			return created, nil
		}
		s.logger.Warn("keeping task locally", zap.String("id", task.ID), zap.Error(err))
	}
	s.insertLocalTask(task)
	return task, nil
}

// ToggleTask flips a task's status remotely, falling back to a local toggle.
func (s *Store) ToggleTask(ctx context.Context, id string) (model.Task, error) {
	return s.setStatus(ctx, id, func(st model.Status) model.Status { return st.Toggle() })
}

// SetTaskDone marks a task done or pending. It is a no-op when the task is
// already in that state.
func (s *Store) SetTaskDone(ctx context.Context, id string, done bool) (model.Task, error) {
	want := model.PENDING
	if done {
		want = model.DONE
	}
	return s.setStatus(ctx, id, func(model.Status) model.Status { return want })
}

func (s *Store) setStatus(ctx context.Context, id string, next func(model.Status) model.Status) (model.Task, error) {
	unlock := s.locks.Lock(taskKey(id))
	defer unlock()

	task, ok := s.findTask(id)
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	status := next(task.Status)
	if status == task.Status {
		return task, nil
	}

	if s.remote != nil && task.Synced {
		task.Status = status
		updated, err := s.updateTask(ctx, task)
		if err == nil {
			return updated, nil
		}
		s.logger.Warn("toggling task locally", zap.String("id", id), zap.Error(err))
	}
	return s.ToggleTaskLocal(id)
}

// DeleteTask deletes a task remotely, falling back to a local delete.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	unlock := s.locks.Lock(taskKey(id))
	defer unlock()

	task, ok := s.findTask(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if s.remote != nil && task.Synced {
		err := s.removeTask(ctx, id)
		if err == nil {
			return nil
		}
		s.logger.Warn("deleting task locally", zap.String("id", id), zap.Error(err))
	}
	return s.DeleteTaskLocal(id)
}

// FindTask returns the task with id.
func (s *Store) FindTask(id string) (model.Task, bool) {
	return s.findTask(id)
}

func (s *Store) findTask(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.taskIndexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return model.Task{}, false
}

func (s *Store) taskIndexLocked(id string) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// landTaskLocked stores synced, the server's answer to a request, in place of
// the task with id. before is the local copy when the request started; a
// local edit made since then survives and is queued as an update of the
// server record. It reports false when the task is gone, leaving the pending
// table untouched.
func (s *Store) landTaskLocked(id string, before, synced model.Task) bool {
	i := s.taskIndexLocked(id)
	if i < 0 {
		return false
	}
	s.pending.Remove(pending.KindTask, id)
	local := s.items[i]
	if !taskEdited(before, local) {
		s.items[i] = synced
		return true
	}
	local.ID, local.CreatedAt, local.Synced = synced.ID, synced.CreatedAt, true
	s.items[i] = local
	s.pending.Record(pending.KindTask, local.ID, pending.OpUpdate, s.now())
	return true
}

func taskEdited(before, local model.Task) bool {
	return before.Title != local.Title ||
		before.Priority != local.Priority ||
		before.Minutes != local.Minutes ||
		before.Category != local.Category ||
		before.Status != local.Status ||
		before.DueDate != local.DueDate
}

// recordTaskChangeLocked queues a changed task. An unsynced task still needs
// its create, which carries the latest fields.
func (s *Store) recordTaskChangeLocked(task model.Task) {
	op := pending.OpUpdate
	if !task.Synced {
		op = pending.OpCreate
	}
	s.pending.Record(pending.KindTask, task.ID, op, s.now())
}
