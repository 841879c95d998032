package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/avoronin/termfix/internal/domain"
	"github.com/avoronin/termfix/internal/identity"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// historyEntry is one exchange in the history response.
type historyEntry struct {
	ID          int64               `json:"id"`
	SessionID   string              `json:"session_id"`
	Command     string              `json:"command"`
	ErrorLine   string              `json:"error_line"`
	Suggestions []domain.Suggestion `json:"suggestions"`
	CreatedAt   time.Time           `json:"created_at"`
}

// SuggestionHistory handles GET /api/suggestions/history. Returns the
// requesting user's recent failure/suggestion exchanges, newest first.
func (h *Handler) SuggestionHistory(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "no identity")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	events, err := h.repo.ListSuggestionEvents(r.Context(), userID, limit)
	if err != nil {
		slog.Error("Failed to list suggestion events", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	entries := make([]historyEntry, 0, len(events))
	for _, event := range events {
		var suggestions []domain.Suggestion
		if err := json.Unmarshal([]byte(event.SuggestionsJSON), &suggestions); err != nil {
			slog.Warn("Skipping unreadable suggestion event", "id", event.ID, "error", err)
			continue
		}
		entries = append(entries, historyEntry{
			ID:          event.ID,
			SessionID:   event.SessionID,
			Command:     event.Command,
			ErrorLine:   event.ErrorLine,
			Suggestions: suggestions,
			CreatedAt:   event.CreatedAt,
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{"events": entries})
}
