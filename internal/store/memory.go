package store

import (
	"context"
	"sync"

	"github.com/harrison/autopr/internal/models"
)

// Memory is a mutex-guarded in-process store with no durability.
// It is the default backend for tests.
type Memory struct {
	mu    sync.RWMutex
	tasks map[string]models.TaskRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tasks: make(map[string]models.TaskRecord)}
}

// Put stores a copy of the record.
func (m *Memory) Put(_ context.Context, rec models.TaskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[rec.ID] = rec
	return nil
}

// Get returns the record for id, or ErrNotFound.
func (m *Memory) Get(_ context.Context, id string) (models.TaskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.tasks[id]
	if !ok {
		return models.TaskRecord{}, ErrNotFound
	}
	return rec, nil
}

// List returns all records.
func (m *Memory) List(_ context.Context) ([]models.TaskRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.TaskRecord, 0, len(m.tasks))
	for _, rec := range m.tasks {
		out = append(out, rec)
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
