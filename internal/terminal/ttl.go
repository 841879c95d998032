package terminal

import (
	"context"
	"log/slog"
	"time"

	"github.com/avoronin/termfix/internal/store"
)

// ttlCheckInterval is how often the reaper scans for inactive users.
const ttlCheckInterval = time.Minute

// TTLWorker disconnects terminal sessions of users who have been inactive
// past the TTL and prunes old suggestion history.
type TTLWorker struct {
	repo      store.Repository
	sm        *SessionManager
	ttl       time.Duration
	retention time.Duration
	logger    *slog.Logger
}

// NewTTLWorker creates a TTL worker.
func NewTTLWorker(repo store.Repository, sm *SessionManager, ttl, retention time.Duration, logger *slog.Logger) *TTLWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTLWorker{
		repo:      repo,
		sm:        sm,
		ttl:       ttl,
		retention: retention,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, sweeping on a fixed interval.
func (w *TTLWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(ttlCheckInterval)
	defer ticker.Stop()

	w.logger.Info("[TTL] Worker started", "ttl", w.ttl, "retention", w.retention)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("[TTL] Worker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *TTLWorker) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	users, err := w.repo.GetInactiveUsers(sweepCtx, w.ttl)
	if err != nil {
		w.logger.Error("[TTL] Failed to query inactive users", "error", err)
		return
	}

	for _, user := range users {
		if w.sm.GetActiveForUser(user.UserID) == 0 {
			continue
		}
		w.logger.Info("[TTL] Disconnecting inactive user",
			"user_id", user.UserID,
			"last_seen", user.LastSeenAt,
		)
		w.sm.CloseUser(user.UserID)
	}

	pruned, err := w.repo.PruneSuggestionEvents(sweepCtx, w.retention)
	if err != nil {
		w.logger.Error("[TTL] Failed to prune suggestion events", "error", err)
		return
	}
	if pruned > 0 {
		w.logger.Info("[TTL] Pruned old suggestion events", "count", pruned)
	}
}
