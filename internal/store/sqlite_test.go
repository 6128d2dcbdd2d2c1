package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/harrison/autopr/internal/models"
)

func TestSQLiteContract(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer s.Close()

	runStoreContract(t, s)
}

func TestSQLiteConcurrent(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer s.Close()

	runConcurrentPuts(t, s, 50)
}

func TestSQLiteRestartRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	ctx := context.Background()

	first, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}

	const n = 5
	for i := 0; i < n; i++ {
		rec := testRecord(fmt.Sprintf("task-%02d", i))
		if err := first.Put(ctx, rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite after restart failed: %v", err)
	}
	defer second.Close()

	all, err := second.List(ctx)
	if err != nil {
		t.Fatalf("List after restart failed: %v", err)
	}
	if len(all) != n {
		t.Errorf("List returned %d records after restart, want %d", len(all), n)
	}

	got, err := second.Get(ctx, "task-00")
	if err != nil {
		t.Fatalf("Get after restart failed: %v", err)
	}
	if got.Prompt != "add docs" || got.Status != models.StatusQueued {
		t.Errorf("record after restart = %+v", got)
	}
}
