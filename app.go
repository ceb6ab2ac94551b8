package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrisonrobin/planner/pkg/api"
	"github.com/harrisonrobin/planner/pkg/auth"
	"github.com/harrisonrobin/planner/pkg/config"
	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/harrisonrobin/planner/pkg/model"
	"github.com/harrisonrobin/planner/pkg/pending"
	"github.com/harrisonrobin/planner/pkg/snapshot"
	"github.com/harrisonrobin/planner/pkg/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	pendingFile = "pending.json"
	eventsFile  = "events.json"
)

// app is one CLI invocation's view of the planner: config, logger and a store
// restored from the last snapshot.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.Store
	snap     *snapshot.File
	table    *pending.Table
	stateDir string

	fetchedAt time.Time
}

// loadConfig applies the persistent flags on top of config.Load.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// configDir holds credentials.json and token.json next to the config file.
func configDir() (string, error) {
	if configPath != "" {
		return filepath.Dir(configPath), nil
	}
	return config.GetXdgHome()
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dir, err := cfg.StateDir()
	if err != nil {
		return nil, err
	}

	table, err := pending.NewTable(filepath.Join(dir, pendingFile))
	if err != nil {
		return nil, fmt.Errorf("open pending table: %w", err)
	}

	opts := []store.Option{
		store.WithLogger(logger),
		store.WithPending(table),
		store.WithResyncLimit(cfg.Sync.RatePerSecond, cfg.Sync.Burst),
	}
	if !offline {
		hc := auth.APIClient(cmd.Context(), cfg.API.Token, cfg.API.Timeout)
		client := api.NewClient(cfg.API.BaseURL, api.WithHTTPClient(hc), api.WithLogger(logger))
		opts = append(opts, store.WithRemote(client))
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store.New(opts...),
		snap:     snapshot.Open(dir),
		table:    table,
		stateDir: dir,
	}

	snap, err := a.snap.Load()
	if err != nil {
		return nil, err
	}
	a.store.Restore(snap.Items, snap.Habits)
	a.fetchedAt = snap.FetchedAt
	return a, nil
}

// refresh pulls tasks and habits from the API. Failures leave the restored
// snapshot in place.
func (a *app) refresh(ctx context.Context) {
	if offline {
		return
	}
	taskErr := a.store.FetchTasks(ctx)
	habitErr := a.store.FetchHabits(ctx)
	if err := errors.Join(taskErr, habitErr); err != nil {
		a.logger.Warn("using local copy", zap.Error(err))
		return
	}
	a.fetchedAt = time.Now()
}

// close persists the store and the pending table.
func (a *app) close() error {
	defer logging.Sync(a.logger)
	st := a.store.State()
	snapErr := a.snap.Save(&snapshot.Snapshot{
		Items:     st.Items,
		Habits:    st.Habits,
		FetchedAt: a.fetchedAt,
	})
	return errors.Join(snapErr, a.table.Save())
}

func (a *app) eventsPath() string {
	return filepath.Join(a.stateDir, eventsFile)
}

var errAmbiguousID = errors.New("ambiguous id")

// resolveTaskID accepts a full id or a unique prefix of one.
func resolveTaskID(items []model.Task, ref string) (string, error) {
	ids := make([]string, len(items))
	for i, t := range items {
		ids[i] = t.ID
	}
	id, err := resolveID(ids, ref)
	if err != nil {
		return "", fmt.Errorf("task %q: %w", ref, err)
	}
	return id, nil
}

func resolveHabitID(habits []model.Habit, ref string) (string, error) {
	ids := make([]string, len(habits))
	for i, h := range habits {
		ids[i] = h.ID
	}
	id, err := resolveID(ids, ref)
	if err != nil {
		return "", fmt.Errorf("habit %q: %w", ref, err)
	}
	return id, nil
}

func resolveID(ids []string, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	var matches []string
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if ref != "" && strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.New("not found")
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: matches %s", errAmbiguousID, strings.Join(matches, ", "))
}

// withApp opens the app, runs fn and persists the result even when fn fails,
// so local fallbacks are never lost.
func withApp(cmd *cobra.Command, fn func(*app) error) (err error) {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.close())
	}()
	return fn(a)
}
