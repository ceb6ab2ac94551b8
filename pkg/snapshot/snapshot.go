// Package snapshot persists the planner's tasks and habits between CLI runs.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/planner/pkg/model"
)

const FileName = "state.json"

// Snapshot is the last known store contents.
type Snapshot struct {
	Items     []model.Task  `json:"items"`
	Habits    []model.Habit `json:"habits"`
	FetchedAt time.Time     `json:"fetched_at,omitempty"`
}

type File struct {
	Path string
}

// Open returns the snapshot file in dir.
func Open(dir string) *File {
	return &File{Path: filepath.Join(dir, FileName)}
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (f *File) Load() (*Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return &Snapshot{Items: []model.Task{}, Habits: []model.Habit{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Items == nil {
		snap.Items = []model.Task{}
	}
	if snap.Habits == nil {
		snap.Habits = []model.Habit{}
	}
	return &snap, nil
}

// Save writes snap atomically. An unchanged snapshot is not rewritten.
func (f *File) Save(snap *Snapshot) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if existing, err := os.ReadFile(f.Path); err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read snapshot: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(f.Path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(data)
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp snapshot: %w", err)
	}

	if err := os.Rename(name, f.Path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
