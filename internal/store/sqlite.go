package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avoronin/termfix/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_last_seen ON users(last_seen_at);

	CREATE TABLE IF NOT EXISTS suggestion_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		command TEXT NOT NULL,
		error_line TEXT NOT NULL,
		suggestions_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_suggestion_events_user ON suggestion_events(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_suggestion_events_created ON suggestion_events(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// GetInactiveUsers retrieves users whose last activity exceeds the TTL.
func (s *SQLiteStore) GetInactiveUsers(ctx context.Context, ttl time.Duration) ([]*domain.User, error) {
	threshold := time.Now().Add(-ttl).Unix()
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE last_seen_at < ?`

	rows, err := s.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("query inactive users: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close inactive users rows", "error", closeErr)
		}
	}()

	var users []*domain.User
	for rows.Next() {
		var user domain.User
		var lastSeen, createdAt, updatedAt int64

		if err := rows.Scan(&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan inactive user row: %w", err)
		}

		user.LastSeenAt = time.Unix(lastSeen, 0)
		user.CreatedAt = time.Unix(createdAt, 0)
		user.UpdatedAt = time.Unix(updatedAt, 0)
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inactive users: %w", err)
	}

	return users, nil
}

// RecordSuggestionEvent persists one failure/suggestions exchange.
// Retries with exponential backoff on SQLITE_BUSY, since writes race with
// the prune worker.
func (s *SQLiteStore) RecordSuggestionEvent(ctx context.Context, event *domain.SuggestionEvent) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.recordSuggestionEventOnce(ctx, event)
		if err == nil {
			return nil
		}

		if isSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			slog.Debug("RecordSuggestionEvent hit SQLITE_BUSY, retrying",
				"user_id", event.UserID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("record suggestion event for %s: %w", event.UserID, err)
	}

	return nil
}

func (s *SQLiteStore) recordSuggestionEventOnce(ctx context.Context, event *domain.SuggestionEvent) error {
	query := `
	INSERT INTO suggestion_events (user_id, session_id, command, error_line, suggestions_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		event.UserID, event.SessionID, event.Command,
		event.ErrorLine, event.SuggestionsJSON, event.CreatedAt.Unix(),
	)
	if err != nil {
		return err
	}

	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// ListSuggestionEvents returns a user's most recent exchanges, newest first.
func (s *SQLiteStore) ListSuggestionEvents(ctx context.Context, userID string, limit int) ([]*domain.SuggestionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, session_id, command, error_line, suggestions_json, created_at
		FROM suggestion_events
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query suggestion events: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close suggestion events rows", "error", closeErr)
		}
	}()

	var events []*domain.SuggestionEvent
	for rows.Next() {
		var event domain.SuggestionEvent
		var createdAt int64

		if err := rows.Scan(
			&event.ID, &event.UserID, &event.SessionID,
			&event.Command, &event.ErrorLine, &event.SuggestionsJSON,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan suggestion event row: %w", err)
		}

		event.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestion events: %w", err)
	}

	return events, nil
}

// PruneSuggestionEvents removes exchanges older than the retention window.
func (s *SQLiteStore) PruneSuggestionEvents(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM suggestion_events WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune suggestion events: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// isSQLiteConflictError reports whether err is a SQLITE_BUSY or "database is
// locked" concurrency error that warrants a retry.
func isSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
