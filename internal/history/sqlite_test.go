package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndRecent(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	started := time.Now().Add(-time.Minute).Truncate(time.Second)

	records := []Record{
		{BuildID: "build-1", StartedAt: started, Duration: 1200 * time.Millisecond, Outcome: "success", CacheHits: 3, CacheMisses: 1},
		{BuildID: "build-2", StartedAt: started.Add(10 * time.Second), Duration: 300 * time.Millisecond, Outcome: "failed", Error: "plugin boom"},
		{BuildID: "build-3", StartedAt: started.Add(20 * time.Second), Duration: 150 * time.Millisecond, Outcome: "success", CacheHits: 4},
	}
	for _, r := range records {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("failed to append record: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("failed to query recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].BuildID != "build-3" || recent[1].BuildID != "build-2" {
		t.Errorf("expected newest first, got %s then %s", recent[0].BuildID, recent[1].BuildID)
	}
	if recent[1].Error != "plugin boom" {
		t.Errorf("expected error message preserved, got %q", recent[1].Error)
	}
	if recent[0].CacheHits != 4 || recent[0].CacheMisses != 0 {
		t.Errorf("expected cache counters 4/0, got %d/%d", recent[0].CacheHits, recent[0].CacheMisses)
	}
	if !recent[1].StartedAt.Equal(started.Add(10 * time.Second)) {
		t.Errorf("expected started_at %v, got %v", started.Add(10*time.Second), recent[1].StartedAt)
	}
	if recent[1].Duration != 300*time.Millisecond {
		t.Errorf("expected duration 300ms, got %v", recent[1].Duration)
	}
}

func TestRecentEmptyStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	recent, err := store.Recent(t.Context(), 5)
	if err != nil {
		t.Fatalf("failed to query recent: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected no records, got %d", len(recent))
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), DefaultFileName)

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	record := Record{BuildID: "build-1", StartedAt: time.Now(), Duration: time.Second, Outcome: "success"}
	if err := store.Append(t.Context(), record); err != nil {
		t.Fatalf("failed to append record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	recent, err := reopened.Recent(t.Context(), 10)
	if err != nil {
		t.Fatalf("failed to query recent: %v", err)
	}
	if len(recent) != 1 || recent[0].BuildID != "build-1" {
		t.Fatalf("expected persisted record, got %v", recent)
	}
}
