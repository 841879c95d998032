package assist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// fetchTimeout bounds one assistant round trip.
const fetchTimeout = 12 * time.Second

// maxSuggestions is how many alternatives the assistant is asked for.
const maxSuggestions = 3

// Completer performs a single free-text completion round trip against the
// external assistant service. Implementations must honor context
// cancellation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Fetcher asks the assistant for corrected alternatives to a failed command.
// It owns prompt construction and the request timeout; response caching is
// the dedup cache's responsibility, one layer up.
type Fetcher struct {
	completer Completer
	logger    *slog.Logger
}

// NewFetcher creates a fetcher. A nil completer means no credential is
// configured; every Fetch then fails with ErrNoAPIKey before any network
// call.
func NewFetcher(completer Completer, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		completer: completer,
		logger:    logger,
	}
}

// Fetch requests correction suggestions for a failed command and returns the
// assistant's raw reply text.
func (f *Fetcher) Fetch(ctx context.Context, command, errorLine, recentOutput string) (string, error) {
	if f.completer == nil {
		return "", ErrNoAPIKey
	}

	command = strings.TrimSpace(command)
	if command == "" {
		return "", ErrEmptyCommand
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	start := time.Now()
	reply, err := f.completer.Complete(ctx, buildPrompt(command, errorLine, recentOutput))
	if err != nil {
		return "", err
	}

	f.logger.Debug("[FETCH] Assistant reply received",
		"command", command,
		"reply_len", len(reply),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

// buildPrompt embeds the failed command and its error line into a single
// natural-language instruction. The arrow separator named here is the
// parser's primary strategy.
func buildPrompt(command, errorLine, recentOutput string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following shell command failed.\n\nCommand: %s\nError: %s\n", command, errorLine)
	if recentOutput = strings.TrimSpace(recentOutput); recentOutput != "" {
		fmt.Fprintf(&b, "\nRecent terminal output:\n%s\n", recentOutput)
	}
	fmt.Fprintf(&b, "\nSuggest up to %d corrected alternative commands, best first, ", maxSuggestions)
	b.WriteString("one per line, numbered, each in exactly this form:\n")
	b.WriteString("1. <command> → <short description>\n\n")
	fmt.Fprintf(&b, "If the command is already correct, reply with %q.", NoCorrectionsSentinel)
	return b.String()
}
