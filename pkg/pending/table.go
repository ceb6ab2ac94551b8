// Package pending tracks local-only mutations that the remote service has not
// yet confirmed.
package pending

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type Kind string

const (
	KindTask  Kind = "task"
	KindHabit Kind = "habit"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type Entry struct {
	Kind   Kind      `json:"kind"`
	ID     string    `json:"id"`
	Op     Op        `json:"op"`
	Queued time.Time `json:"queued"`
}

// Table is not safe for concurrent use; callers serialize access.
type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	dirty   bool
}

// NewTable opens the table stored at path. An empty path keeps it in memory only.
func NewTable(path string) (*Table, error) {
	t := &Table{
		Path:    path,
		Entries: make(map[string]Entry),
	}

	if path == "" {
		return t, nil
	}
	if _, err := os.Stat(path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(t); err != nil {
		return err
	}
	if t.Entries == nil {
		t.Entries = make(map[string]Entry)
	}
	return nil
}

func (t *Table) Save() error {
	if !t.dirty || t.Path == "" {
		return nil
	}
	dir := filepath.Dir(t.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.Create(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(t)
	if err == nil {
		t.dirty = false
	}
	return err
}

func key(kind Kind, id string) string {
	return string(kind) + ":" + id
}

// Record merges op into the entry for (kind, id).
// A create absorbs later updates, and a create followed by a delete cancels out.
func (t *Table) Record(kind Kind, id string, op Op, now time.Time) {
	k := key(kind, id)
	old, exists := t.Entries[k]
	if exists {
		switch {
		case old.Op == OpCreate && op == OpUpdate:
			return
		case old.Op == OpCreate && op == OpDelete:
			delete(t.Entries, k)
			t.dirty = true
			return
		case old.Op == op:
			return
		}
		// Keep the original queue position so replay order follows the first change.
		now = old.Queued
	}
	t.Entries[k] = Entry{Kind: kind, ID: id, Op: op, Queued: now}
	t.dirty = true
}

func (t *Table) Get(kind Kind, id string) (Entry, bool) {
	e, ok := t.Entries[key(kind, id)]
	return e, ok
}

func (t *Table) Remove(kind Kind, id string) {
	k := key(kind, id)
	if _, exists := t.Entries[k]; exists {
		delete(t.Entries, k)
		t.dirty = true
	}
}

func (t *Table) Len() int {
	return len(t.Entries)
}

// Due returns every entry, oldest first.
func (t *Table) Due() []Entry {
	due := make([]Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		due = append(due, e)
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].Queued.Equal(due[j].Queued) {
			return due[i].Queued.Before(due[j].Queued)
		}
		return key(due[i].Kind, due[i].ID) < key(due[j].Kind, due[j].ID)
	})
	return due
}
