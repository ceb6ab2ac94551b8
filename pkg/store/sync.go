package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/harrisonrobin/planner/pkg/api"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/pending"
	"go.uber.org/zap"
)

// ResyncReport summarizes one Resync pass. Rekeyed maps local ids to the ids
// the server assigned.
type ResyncReport struct {
	Synced  int
	Failed  int
	Rekeyed map[string]string
}

// Resync replays pending local mutations against the remote, oldest first.
// Entries that fail stay queued; their errors are joined into the result.
func (s *Store) Resync(ctx context.Context) (ResyncReport, error) {
	report := ResyncReport{Rekeyed: make(map[string]string)}
	if s.remote == nil {
		return report, ErrNoRemote
	}

	s.mu.Lock()
	due := s.pending.Due()
	s.mu.Unlock()

	var errs []error
	for _, e := range due {
		if err := s.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		newID, err := s.replay(ctx, e)
		if err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("%s %s %s: %w", e.Op, e.Kind, e.ID, err))
			continue
		}
		report.Synced++
		if newID != "" && newID != e.ID {
			report.Rekeyed[e.ID] = newID
		}
	}

	s.logger.Info("resync finished",
		zap.Int("synced", report.Synced),
		zap.Int("failed", report.Failed),
		zap.Int("rekeyed", len(report.Rekeyed)),
	)
	return report, errors.Join(errs...)
}

func (s *Store) replay(ctx context.Context, e pending.Entry) (string, error) {
	switch e.Kind {
	case pending.KindTask:
		unlock := s.locks.Lock(taskKey(e.ID))
		defer unlock()
		return s.replayTask(ctx, e)
	case pending.KindHabit:
		unlock := s.locks.Lock(habitKey(e.ID))
		defer unlock()
		return s.replayHabit(ctx, e)
	}
	return "", fmt.Errorf("unknown pending kind %q", e.Kind)
}

func (s *Store) replayTask(ctx context.Context, e pending.Entry) (string, error) {
	if e.Op == pending.OpDelete {
		if err := s.remote.DeleteTask(ctx, e.ID); err != nil && !notFound(err) {
			return "", s.fail("delete task", err)
		}
		s.settle(pending.KindTask, e.ID)
		return "", nil
	}

	task, ok := s.findTask(e.ID)
	if !ok {
		s.settle(pending.KindTask, e.ID)
		return "", nil
	}

	var (
		synced model.Task
		err    error
	)
	if e.Op == pending.OpCreate {
		synced, err = s.remote.CreateTask(ctx, task)
	} else {
		synced, err = s.remote.UpdateTask(ctx, task)
	}
	if err != nil {
		return "", s.fail(string(e.Op)+" task", err)
	}

	s.apply(func() error {
		if !s.landTaskLocked(e.ID, task, synced) && e.Op == pending.OpCreate {
			// Deleted locally while the create was in flight.
			s.pending.Remove(pending.KindTask, e.ID)
			s.pending.Record(pending.KindTask, synced.ID, pending.OpDelete, s.now())
		}
		s.err = ""
		return nil
	})
	return synced.ID, nil
}

func (s *Store) replayHabit(ctx context.Context, e pending.Entry) (string, error) {
	if e.Op == pending.OpDelete {
		if err := s.remote.DeleteHabit(ctx, e.ID); err != nil && !notFound(err) {
			return "", s.fail("delete habit", err)
		}
		s.settle(pending.KindHabit, e.ID)
		return "", nil
	}

	habit, ok := s.findHabit(e.ID)
	if !ok {
		s.settle(pending.KindHabit, e.ID)
		return "", nil
	}

	var (
		synced model.Habit
		err    error
	)
	if e.Op == pending.OpCreate {
		synced, err = s.remote.CreateHabit(ctx, habit)
	} else {
		synced, err = s.remote.UpdateHabit(ctx, habit)
	}
	if err != nil {
		return "", s.fail(string(e.Op)+" habit", err)
	}

	s.apply(func() error {
		if !s.landHabitLocked(e.ID, habit, synced) && e.Op == pending.OpCreate {
			s.pending.Remove(pending.KindHabit, e.ID)
			s.pending.Record(pending.KindHabit, synced.ID, pending.OpDelete, s.now())
		}
		s.err = ""
		return nil
	})
	return synced.ID, nil
}

func (s *Store) settle(kind pending.Kind, id string) {
	s.apply(func() error {
		s.pending.Remove(kind, id)
		return nil
	})
}

// notFound reports a 404 from the remote; a delete of a missing record is done.
func notFound(err error) bool {
	var apiErr *api.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
