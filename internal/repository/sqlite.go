package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentpanel/agentpanel/internal/domain"
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

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			thread_id TEXT,
			last_file_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS session_logs (
			log_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_logs ON session_logs(session_id, created_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetOrCreateSession returns the session, creating it on first sight.
func (s *SQLiteStore) GetOrCreateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)`,
		sessionID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &domain.Session{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) getSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, COALESCE(thread_id, ''), COALESCE(last_file_id, ''), created_at, updated_at
		 FROM sessions WHERE session_id = ?`, sessionID)

	var session domain.Session
	err := row.Scan(&session.SessionID, &session.ThreadID, &session.LastFileID,
		&session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &session, nil
}

// SetSessionThread stores the thread id held by a session.
func (s *SQLiteStore) SetSessionThread(ctx context.Context, sessionID, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET thread_id = ?, updated_at = ? WHERE session_id = ?`,
		threadID, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session thread: %w", err)
	}
	return nil
}

// SetSessionFile stores the most recently uploaded file id for a session.
func (s *SQLiteStore) SetSessionFile(ctx context.Context, sessionID, fileID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_file_id = ?, updated_at = ? WHERE session_id = ?`,
		fileID, time.Now().UTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session file: %w", err)
	}
	return nil
}

// AppendLog appends one activity log entry.
func (s *SQLiteStore) AppendLog(ctx context.Context, entry *domain.LogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_logs (log_id, session_id, level, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.LogID, entry.SessionID, string(entry.Level), entry.Message, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

// GetLogs returns a session's activity log in insertion order.
func (s *SQLiteStore) GetLogs(ctx context.Context, sessionID string, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT log_id, session_id, level, message, created_at
		 FROM session_logs WHERE session_id = ?
		 ORDER BY created_at ASC, log_id ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.LogEntry{}
	for rows.Next() {
		var entry domain.LogEntry
		var level string
		if err := rows.Scan(&entry.LogID, &entry.SessionID, &level, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		entry.Level = domain.LogLevel(level)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// ClearLogs removes a session's activity log. Starting a new thread resets
// the visible log.
func (s *SQLiteStore) ClearLogs(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_logs WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear logs: %w", err)
	}
	return nil
}
