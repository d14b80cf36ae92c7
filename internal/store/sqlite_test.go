// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers document upsert/lookup and command log filtering and ordering

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "bot.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetDocument(ctx, "notes"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.PutDocument(ctx, "notes", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}
	if err := store.PutDocument(ctx, "notes", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("PutDocument (update) failed: %v", err)
	}
	if err := store.PutDocument(ctx, "counters", []byte(`[]`)); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}

	doc, err := store.GetDocument(ctx, "notes")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if string(doc.Value) != `{"a":2}` {
		t.Errorf("value mismatch: got %s", doc.Value)
	}
	if time.Since(doc.UpdatedAt) > time.Minute {
		t.Errorf("updated_at looks wrong: %v", doc.UpdatedAt)
	}

	names, err := store.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(names) != 2 || names[0] != "counters" || names[1] != "notes" {
		t.Errorf("unexpected names: %v", names)
	}

	if err := store.DeleteDocument(ctx, "notes"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if _, err := store.GetDocument(ctx, "notes"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteDocument(ctx, "missing"); err != nil {
		t.Errorf("deleting a missing document should succeed: %v", err)
	}
}

func TestDocuments_SurviveReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bot.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if err := first.PutDocument(ctx, "state", []byte(`"kept"`)); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	doc, err := second.GetDocument(ctx, "state")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if string(doc.Value) != `"kept"` {
		t.Errorf("value mismatch after reopen: %s", doc.Value)
	}
}

func TestCommandLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	records := []*CommandRecord{
		{Path: "ping", Platform: "matrix", ChannelID: "!a", SenderID: "@x", OK: true, Timestamp: base},
		{Path: "mod.ban", Platform: "matrix", ChannelID: "!b", SenderID: "@y", OK: false, Timestamp: base.Add(time.Second)},
		{Path: "note.set", Platform: "matrix", ChannelID: "!a", SenderID: "@x", OK: true, Timestamp: base.Add(2 * time.Second)},
	}
	for _, rec := range records {
		if err := store.AppendCommand(ctx, rec); err != nil {
			t.Fatalf("AppendCommand failed: %v", err)
		}
		if rec.ID == "" {
			t.Error("AppendCommand should assign an ID")
		}
	}

	all, err := store.ListCommands(ctx, CommandFilter{})
	if err != nil {
		t.Fatalf("ListCommands failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].Path != "note.set" || all[2].Path != "ping" {
		t.Errorf("records not newest first: %s .. %s", all[0].Path, all[2].Path)
	}
	if all[1].OK {
		t.Error("mod.ban should be recorded as failed")
	}
	if !all[0].Timestamp.Equal(base.Add(2 * time.Second)) {
		t.Errorf("timestamp mismatch: %v", all[0].Timestamp)
	}

	inA, err := store.ListCommands(ctx, CommandFilter{ChannelID: "!a"})
	if err != nil {
		t.Fatalf("ListCommands failed: %v", err)
	}
	if len(inA) != 2 {
		t.Errorf("expected 2 records in !a, got %d", len(inA))
	}

	recent, err := store.ListCommands(ctx, CommandFilter{Since: base.Add(time.Second), Limit: 1})
	if err != nil {
		t.Fatalf("ListCommands failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Path != "note.set" {
		t.Errorf("unexpected filtered records: %+v", recent)
	}
}

func TestNormalizeLimit(t *testing.T) {
	for in, want := range map[int]int{0: 20, -1: 20, 5: 5, 10000: 500} {
		if got := normalizeLimit(in); got != want {
			t.Errorf("normalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
