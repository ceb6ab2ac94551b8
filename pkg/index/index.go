// Package index maps planner task ids to the calendar events that mirror them.
package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

type EventIndex struct {
	Mappings map[string]string `json:"mappings"`
	Path     string            `json:"-"`
	mu       sync.RWMutex
	dirty    bool
}

// NewEventIndex opens the index stored at path, creating an empty one if the
// file does not exist yet.
func NewEventIndex(path string) (*EventIndex, error) {
	idx := &EventIndex{
		Mappings: make(map[string]string),
		Path:     path,
	}

	if _, err := os.Stat(path); err == nil {
		if err := idx.Load(); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func (idx *EventIndex) Load() error {
	f, err := os.Open(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&idx.Mappings); err != nil {
		return err
	}
	if idx.Mappings == nil {
		idx.Mappings = make(map[string]string)
	}
	return nil
}

func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	dir := filepath.Dir(idx.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	f, err := os.Create(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(idx.Mappings); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Mappings[taskID]
}

func (idx *EventIndex) Set(taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.Mappings[taskID] != eventID {
		idx.Mappings[taskID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.Mappings[taskID]; exists {
		delete(idx.Mappings, taskID)
		idx.dirty = true
	}
}

// Rekey moves the event of oldID to newID, after the server has assigned a
// task its permanent id.
func (idx *EventIndex) Rekey(oldID, newID string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	eventID, exists := idx.Mappings[oldID]
	if !exists || oldID == newID {
		return false
	}
	delete(idx.Mappings, oldID)
	idx.Mappings[newID] = eventID
	idx.dirty = true
	return true
}

// TaskIDs lists every indexed task id in order.
func (idx *EventIndex) TaskIDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.Mappings))
	for id := range idx.Mappings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
