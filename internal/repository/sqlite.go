package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	limits Limits
	now    func() time.Time
}

// NewSQLiteStore opens dsn and creates the history tables.
func NewSQLiteStore(dsn string, limits Limits) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to an in-memory database sees its own database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db, limits: limits, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			last_access INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id, id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts entries and deletes everything but the newest MaxEntries.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, entries ...Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.expire(ctx, tx); err != nil {
		return err
	}
	if err := s.touch(ctx, tx, sessionID); err != nil {
		return err
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history (session_id, role, content) VALUES (?, ?, ?)`,
			sessionID, e.Role, e.Content); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if s.limits.MaxEntries > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM history WHERE session_id = ? AND id NOT IN (
				SELECT id FROM history WHERE session_id = ? ORDER BY id DESC LIMIT ?
			)`,
			sessionID, sessionID, s.limits.MaxEntries); err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
	}

	return tx.Commit()
}

// History returns the session entries, oldest first.
func (s *SQLiteStore) History(ctx context.Context, sessionID string) ([]Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.expire(ctx, tx); err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT role, content FROM history WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Role, &e.Content); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(entries) > 0 {
		if err := s.touch(ctx, tx, sessionID); err != nil {
			return nil, err
		}
	}
	return entries, tx.Commit()
}

func (s *SQLiteStore) touch(ctx context.Context, tx *sql.Tx, sessionID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, last_access) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET last_access = excluded.last_access`,
		sessionID, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) expire(ctx context.Context, tx *sql.Tx) error {
	if s.limits.TTL <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.limits.TTL).UnixNano()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM history WHERE session_id IN (SELECT session_id FROM sessions WHERE last_access < ?)`,
		cutoff); err != nil {
		return fmt.Errorf("failed to expire history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE last_access < ?`, cutoff); err != nil {
		return fmt.Errorf("failed to expire sessions: %w", err)
	}
	return nil
}
