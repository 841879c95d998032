// Package domain holds the core data types shared across the application.
package domain

import (
	"time"
)

// Suggestion is one candidate corrected command paired with a short
// human-readable description.
type Suggestion struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// SuggestionEvent is a persisted record of one failure -> suggestions
// exchange, associated with the command and error line that triggered it.
type SuggestionEvent struct {
	ID              int64
	UserID          string
	SessionID       string
	Command         string
	ErrorLine       string
	SuggestionsJSON string
	CreatedAt       time.Time
}
