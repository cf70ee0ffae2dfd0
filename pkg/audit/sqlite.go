package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// migrations are applied in order; PRAGMA user_version holds how many ran.
var migrations = []string{
	`CREATE TABLE steps (
		seq     INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id  TEXT NOT NULL,
		node_id TEXT NOT NULL,
		kind    TEXT NOT NULL,
		action  TEXT NOT NULL,
		path    TEXT NOT NULL DEFAULT '',
		hash    TEXT NOT NULL DEFAULT '',
		status  TEXT NOT NULL,
		error   TEXT NOT NULL DEFAULT '',
		at      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX steps_run ON steps(run_id)`,
	`CREATE INDEX steps_node ON steps(node_id)`,
}

// SQLiteStore persists audit events in a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// NewSQLiteStore migrates db and returns a store on it. The caller keeps
// ownership of db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("audit: nil database")
	}
	if err := migrate(context.Background(), db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// OpenSQLite opens the database at path, creating it and its directory as
// needed. Close releases it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	// One writer; concurrent connections only contend on the file lock.
	db.SetMaxOpenConns(1)
	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: %s: %w", path, err)
	}
	s.owned = true
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var applied int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&applied); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if applied >= len(migrations) {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i := applied; i < len(migrations); i++ {
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, len(migrations))); err != nil {
		return err
	}
	return tx.Commit()
}

// Close closes the database when the store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Record(ctx context.Context, ev Event) error {
	at := ""
	if !ev.At.IsZero() {
		at = ev.At.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO steps (run_id, node_id, kind, action, path, hash, status, error, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.NodeID, ev.Kind, ev.Action, ev.Path, ev.Hash, ev.Status, ev.Error, at)
	if err != nil {
		return fmt.Errorf("audit: record %s: %w", ev.NodeID, err)
	}
	return nil
}

// List returns matching events oldest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Event, error) {
	var (
		conds []string
		args  []any
	)
	for _, c := range []struct{ column, value string }{
		{"run_id", filter.RunID},
		{"node_id", filter.NodeID},
		{"status", filter.Status},
	} {
		if c.value != "" {
			conds = append(conds, c.column+" = ?")
			args = append(args, c.value)
		}
	}

	var q strings.Builder
	q.WriteString(`SELECT run_id, node_id, kind, action, path, hash, status, error, at FROM steps`)
	if len(conds) > 0 {
		q.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	q.WriteString(" ORDER BY seq")
	if filter.Limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev Event
			at string
		)
		if err := rows.Scan(&ev.RunID, &ev.NodeID, &ev.Kind, &ev.Action, &ev.Path, &ev.Hash, &ev.Status, &ev.Error, &at); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		if at != "" {
			if ev.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
				return nil, fmt.Errorf("audit: bad timestamp %q: %w", at, err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
