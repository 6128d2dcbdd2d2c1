package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/harrison/autopr/internal/filelock"
	"github.com/harrison/autopr/internal/models"
)

// File persists all records as a single JSON document mapping id to record.
//
// The document is loaded once at startup into an in-memory mirror; every Put
// updates the mirror and rewrites the whole document atomically (temp file +
// rename under a flock lock), so a crash mid-write never leaves a truncated
// file. Writes from other processes become visible on the next startup only,
// which is an accepted limitation of this backend.
type File struct {
	path  string
	mu    sync.RWMutex
	tasks map[string]models.TaskRecord
}

// NewFile creates a file store at path, loading any existing document.
func NewFile(path string) (*File, error) {
	f := &File{
		path:  path,
		tasks: make(map[string]models.TaskRecord),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

// load reads the state document from disk. A missing file means an empty store.
func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read state file %s: %w", f.path, err)
	}
	if err := json.Unmarshal(data, &f.tasks); err != nil {
		return fmt.Errorf("failed to parse state file %s: %w", f.path, err)
	}
	return nil
}

// Put updates the mirror and rewrites the full document atomically.
// The mirror is only updated once the disk write succeeded, so a failed Put
// never leaves memory and disk disagreeing.
func (f *File) Put(_ context.Context, rec models.TaskRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.tasks[rec.ID]
	f.tasks[rec.ID] = rec

	data, err := json.MarshalIndent(f.tasks, "", "  ")
	if err != nil {
		// Cannot happen for plain record fields, but restore the mirror anyway.
		f.restore(rec.ID, prev, existed)
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := filelock.LockAndWrite(f.path, data); err != nil {
		f.restore(rec.ID, prev, existed)
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

// restore rolls the mirror entry for id back after a failed write.
func (f *File) restore(id string, prev models.TaskRecord, existed bool) {
	if existed {
		f.tasks[id] = prev
	} else {
		delete(f.tasks, id)
	}
}

// Get returns the record for id from the mirror, or ErrNotFound.
func (f *File) Get(_ context.Context, id string) (models.TaskRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	rec, ok := f.tasks[id]
	if !ok {
		return models.TaskRecord{}, ErrNotFound
	}
	return rec, nil
}

// List returns all records from the mirror.
func (f *File) List(_ context.Context) ([]models.TaskRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.TaskRecord, 0, len(f.tasks))
	for _, rec := range f.tasks {
		out = append(out, rec)
	}
	return out, nil
}

// Close is a no-op: every Put already leaves a durable document behind.
func (f *File) Close() error { return nil }

var _ Store = (*File)(nil)
