// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/avoronin/termfix/internal/domain"
)

// Repository defines the interface for persisting user records and
// suggestion history.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns (nil, nil) when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetInactiveUsers retrieves users whose last activity exceeds the TTL.
	GetInactiveUsers(ctx context.Context, ttl time.Duration) ([]*domain.User, error)

	// RecordSuggestionEvent persists one failure/suggestions exchange.
	RecordSuggestionEvent(ctx context.Context, event *domain.SuggestionEvent) error

	// ListSuggestionEvents returns a user's most recent exchanges, newest
	// first, capped at limit.
	ListSuggestionEvents(ctx context.Context, userID string, limit int) ([]*domain.SuggestionEvent, error)

	// PruneSuggestionEvents removes exchanges older than the retention
	// window, returning the number deleted.
	PruneSuggestionEvents(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
