package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func sampleEvents() []Event {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []Event{
		{RunID: "run-1", NodeID: "schema:user:a.json", Kind: "schema", Action: "create", Path: "a.json", Status: StatusApplied, At: at},
		{RunID: "run-1", NodeID: "doc:user:a.md", Kind: "doc", Action: "delete", Path: "a.md", Status: StatusFailed, Error: "boom", At: at},
		{RunID: "run-2", NodeID: "schema:user:a.json", Kind: "schema", Action: "update", Path: "a.json", Status: StatusApplied, At: at},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	for _, ev := range sampleEvents() {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	events, err := store.List(ctx, Filter{RunID: "run-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Error != "boom" || events[1].Status != StatusFailed {
		t.Fatalf("unexpected event: %+v", events[1])
	}

	events, err = store.List(ctx, Filter{NodeID: "schema:user:a.json", Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].RunID != "run-1" {
		t.Fatalf("unexpected limited events: %+v", events)
	}

	events, err = store.List(ctx, Filter{Status: StatusApplied})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 applied events, got %d", len(events))
	}
	if !events[0].At.Equal(sampleEvents()[0].At) {
		t.Fatalf("timestamp not preserved: %v", events[0].At)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file:apply_audit_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	exerciseStore(t, store)

	// A second store on a migrated database sees the same rows.
	again, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("remigrate: %v", err)
	}
	events, err := again.List(context.Background(), Filter{})
	if err != nil || len(events) != len(sampleEvents()) {
		t.Fatalf("expected %d events after remigrate, got %d (%v)", len(sampleEvents()), len(events), err)
	}
	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil || version != len(migrations) {
		t.Fatalf("user_version = %d (%v), want %d", version, err, len(migrations))
	}
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tsera", "audit.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Record(context.Background(), sampleEvents()[0]); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	events, err := reopened.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected persisted event, got %d", len(events))
	}
}

func TestNewSQLiteStoreNilDB(t *testing.T) {
	if _, err := NewSQLiteStore(nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
