package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/trialogue/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_updated ON threads(updated_at)`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn_id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			model TEXT,
			fault TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_thread ON turns(thread_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateThread creates a new thread.
func (s *SQLiteStore) CreateThread(ctx context.Context, thread *domain.Thread) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (thread_id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		thread.ThreadID, thread.Title, thread.CreatedAt, thread.UpdatedAt)
	return err
}

// ListThreads lists all threads, most recently updated first.
func (s *SQLiteStore) ListThreads(ctx context.Context) ([]domain.Thread, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thread_id, title, created_at, updated_at FROM threads ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []domain.Thread
	for rows.Next() {
		var th domain.Thread
		if err := rows.Scan(&th.ThreadID, &th.Title, &th.CreatedAt, &th.UpdatedAt); err != nil {
			return nil, err
		}
		threads = append(threads, th)
	}
	return threads, rows.Err()
}

// GetThread retrieves a thread with its turns, oldest first. Returns nil if
// the thread does not exist.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) (*domain.ThreadDetail, error) {
	var detail domain.ThreadDetail
	err := s.db.QueryRowContext(ctx,
		`SELECT thread_id, title, created_at, updated_at FROM threads WHERE thread_id = ?`,
		threadID).Scan(&detail.ThreadID, &detail.Title, &detail.CreatedAt, &detail.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	turns, err := s.GetTurns(ctx, threadID)
	if err != nil {
		return nil, err
	}
	detail.Turns = turns
	return &detail, nil
}

// DeleteThread deletes a thread and, via cascade, its turns.
func (s *SQLiteStore) DeleteThread(ctx context.Context, threadID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE thread_id = ?`, threadID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateThreadTitle updates a thread's title and touches updated_at.
func (s *SQLiteStore) UpdateThreadTitle(ctx context.Context, threadID, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE threads SET title = ?, updated_at = ? WHERE thread_id = ?`,
		title, time.Now(), threadID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AppendTurn inserts a turn and touches the thread's updated_at.
func (s *SQLiteStore) AppendTurn(ctx context.Context, turn *domain.Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (turn_id, thread_id, role, content, model, fault, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.TurnID, turn.ThreadID, turn.Role, turn.Content,
		nullString(string(turn.Model)), nullString(turn.Fault), turn.CreatedAt)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE threads SET updated_at = ? WHERE thread_id = ?`,
		time.Now(), turn.ThreadID)
	return err
}

// GetTurns retrieves all turns for a thread, oldest first.
func (s *SQLiteStore) GetTurns(ctx context.Context, threadID string) ([]domain.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn_id, thread_id, role, content, model, fault, created_at FROM turns WHERE thread_id = ? ORDER BY created_at ASC, turn_id ASC`,
		threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.Turn
	for rows.Next() {
		var t domain.Turn
		var model, fault sql.NullString
		if err := rows.Scan(&t.TurnID, &t.ThreadID, &t.Role, &t.Content, &model, &fault, &t.CreatedAt); err != nil {
			return nil, err
		}
		if model.Valid {
			t.Model = domain.ModelID(model.String)
		}
		if fault.Valid {
			t.Fault = fault.String
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
