package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxResponseBody caps how much of the assistant response is read (1MB).
const maxResponseBody = 1 << 20

// HTTPCompleter calls the assistant's free-text completion endpoint: a POST
// carrying a prompt and a model identifier, answered by a single reply
// field.
type HTTPCompleter struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPCompleter creates an HTTP-backed completer. A missing credential is
// ErrNoAPIKey; callers check this at startup, before any request is made.
func NewHTTPCompleter(endpoint, apiKey, model string, logger *slog.Logger) (*HTTPCompleter, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPCompleter{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		// Per-request deadlines come from the caller's context; the
		// fetcher applies the pipeline timeout.
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

type completionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Reply string `json:"reply"`
}

// Complete implements Completer.
func (c *HTTPCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:  c.model,
		Prompt: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close assistant response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		// Drain a bounded amount so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return "", &UpstreamError{
			Status: resp.StatusCode,
			Err:    errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	var decoded completionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&decoded); err != nil {
		return "", &UpstreamError{Err: fmt.Errorf("decode completion response: %w", err)}
	}
	if decoded.Reply == "" {
		return "", ErrMissingReply
	}
	return decoded.Reply, nil
}
