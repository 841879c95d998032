// Package assist implements the failure-detection and suggestion pipeline:
// command tracking from the raw keystroke stream, failure classification of
// streamed shell output, per-session deduplication, and fetching + parsing of
// assistant replies into structured suggestions.
package assist

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey indicates no assistant credential is configured. It is
	// returned before any network call is attempted.
	ErrNoAPIKey = errors.New("assistant api key not configured")

	// ErrEmptyCommand indicates there is no command to correct. Empty
	// commands are never sent upstream.
	ErrEmptyCommand = errors.New("empty command")

	// ErrMissingReply indicates the upstream response envelope did not
	// contain the expected reply field.
	ErrMissingReply = errors.New("assistant response missing reply field")
)

// UpstreamError wraps transport failures, timeouts, and non-success status
// codes from the assistant service.
type UpstreamError struct {
	Status int // HTTP status, 0 for transport-level failures
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("assistant request failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("assistant request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
