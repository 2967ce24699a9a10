package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lognarrator/src/internal/core"
	"lognarrator/src/internal/format"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	source TEXT NOT NULL,
	content TEXT NOT NULL,
	encrypted INTEGER NOT NULL DEFAULT 0,
	sent INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_logs_sent ON logs(sent);
`

// Record is a stored entry with its row id
type Record struct {
	ID    int64
	Entry core.LogEntry
	Sent  bool
}

// Store is an append-only SQLite table of entries with a sent flag
type Store struct {
	db        *sql.DB
	formatter *format.JSONFormatter
}

// Open creates or opens the database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: cannot create database directory %s: %v", core.ErrFilesystem, dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db, formatter: format.NewJSONFormatter()}, nil
}

// Append inserts entries as unsent rows in one transaction
func (s *Store) Append(ctx context.Context, entries []core.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO logs (timestamp, source, content, encrypted, sent) VALUES (?, ?, ?, 0, 0)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		content, err := s.formatter.Format(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, e.Time.UnixMilli(), e.Source, string(content)); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Unsent returns up to limit unsent rows, oldest first
func (s *Store) Unsent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content FROM logs WHERE sent = 0 ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsent: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			id      int64
			content string
		)
		if err := rows.Scan(&id, &content); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entry, err := format.ParseLine([]byte(content))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", id, err)
		}
		records = append(records, Record{ID: id, Entry: entry})
	}
	return records, rows.Err()
}

// MarkSent flags the given rows as delivered
func (s *Store) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx, "UPDATE logs SET sent = 1 WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("failed to mark sent: %w", err)
	}
	return nil
}

// Cleanup deletes sent rows with a timestamp before cutoff and returns the count
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM logs WHERE sent = 1 AND timestamp < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up: %w", err)
	}
	return res.RowsAffected()
}

// Counts returns the number of unsent and sent rows
func (s *Store) Counts(ctx context.Context) (unsent, sent int64, err error) {
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(CASE WHEN sent = 0 THEN 1 ELSE 0 END), 0), COALESCE(SUM(sent), 0) FROM logs").
		Scan(&unsent, &sent)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return unsent, sent, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
