package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/harrison/autopr/internal/models"
)

func TestFileContract(t *testing.T) {
	s, err := NewFile(filepath.Join(t.TempDir(), "tasks.json"))
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	runStoreContract(t, s)
}

// TestFileRestartRoundTrip writes N records, reopens the store from disk and
// verifies every record reads back identically.
func TestFileRestartRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	ctx := context.Background()

	first, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	const n = 10
	want := make(map[string]models.TaskRecord, n)
	for i := 0; i < n; i++ {
		rec := testRecord(fmt.Sprintf("task-%02d", i))
		rec.Result = ""
		if i%2 == 0 {
			rec.Status = models.StatusCompleted
			rec.Result = fmt.Sprintf("https://github.com/o/r/pull/%d", i)
		}
		if err := first.Put(ctx, rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		want[rec.ID] = rec
	}

	// Simulate a process restart.
	second, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile after restart failed: %v", err)
	}

	for id, wantRec := range want {
		got, err := second.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%s) after restart failed: %v", id, err)
		}
		if got.ID != wantRec.ID || got.Prompt != wantRec.Prompt ||
			got.Status != wantRec.Status || got.Result != wantRec.Result ||
			!got.CreatedAt.Equal(wantRec.CreatedAt) || !got.UpdatedAt.Equal(wantRec.UpdatedAt) {
			t.Errorf("record %s after restart = %+v, want %+v", id, got, wantRec)
		}
	}
}

// TestFileConcurrentWritersDocumentIntegrity submits many concurrent writers
// and checks the persisted document afterwards: valid JSON, exactly one entry
// per id, none dropped or duplicated.
func TestFileConcurrentWritersDocumentIntegrity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	s, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}

	const n = 60
	runConcurrentPuts(t, s, n)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read state file: %v", err)
	}
	var doc map[string]models.TaskRecord
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("state file is not valid JSON: %v", err)
	}
	if len(doc) != n {
		t.Errorf("state file holds %d records, want %d", len(doc), n)
	}
	for id, rec := range doc {
		if rec.ID != id {
			t.Errorf("document key %s maps to record id %s", id, rec.ID)
		}
	}
}

func TestFileLoadsMissingFileAsEmpty(t *testing.T) {
	s, err := NewFile(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("NewFile on absent path failed: %v", err)
	}
	all, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("List returned %d records, want 0", len(all))
	}
}

func TestFileRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}
	if _, err := NewFile(path); err == nil {
		t.Error("NewFile on corrupt document = nil, want error")
	}
}
