// Package history keeps a bounded SQLite log of dispatched commands.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS dispatches (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	page    TEXT    NOT NULL,
	button  TEXT    NOT NULL,
	command TEXT    NOT NULL,
	ok      INTEGER NOT NULL,
	error   TEXT    NOT NULL DEFAULT '',
	at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS dispatches_at ON dispatches(at);
`

// Entry is one dispatch attempt.
type Entry struct {
	ID      int64     `json:"id"`
	Page    string    `json:"page"`
	Button  string    `json:"button"`
	Command string    `json:"command"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Log is the dispatch history database.
type Log struct {
	db    *sql.DB
	limit int
	now   func() time.Time
}

// Open opens or creates the database at path and keeps at most limit rows.
func Open(path string, limit int) (*Log, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("history limit must be positive, got %d", limit)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Join(fmt.Errorf("init history schema: %w", err), db.Close())
	}
	return &Log{db: db, limit: limit, now: time.Now}, nil
}

// Record appends e and trims the table to the configured limit. A zero At
// is stamped with the current time.
func (l *Log) Record(ctx context.Context, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = l.now()
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dispatches(page, button, command, ok, error, at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Page, e.Button, e.Command, e.OK, e.Error, at.UnixMilli(),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record dispatch: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dispatches WHERE id NOT IN (SELECT id FROM dispatches ORDER BY id DESC LIMIT ?)`,
		l.limit,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("trim history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > l.limit {
		limit = l.limit
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, page, button, command, ok, error, at FROM dispatches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e  Entry
			at int64
		)
		if err := rows.Scan(&e.ID, &e.Page, &e.Button, &e.Command, &e.OK, &e.Error, &at); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.At = time.UnixMilli(at)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (l *Log) Close() error {
	if err := l.db.Close(); err != nil {
		slog.Warn("[WARN-HISTORY] close failed", "error", err)
		return err
	}
	return nil
}
