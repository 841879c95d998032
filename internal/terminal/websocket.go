package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avoronin/termfix/internal/assist"
	"github.com/avoronin/termfix/internal/domain"
	"github.com/avoronin/termfix/internal/identity"
	"github.com/avoronin/termfix/internal/store"
	"github.com/coder/websocket"
)

// WebSocketHandler handles WebSocket-based terminal sessions. Each
// connection gets its own shell PTY and failure-detection pipeline.
type WebSocketHandler struct {
	repo          store.Repository
	sm            *SessionManager
	completer     assist.Completer
	exchangeCfg   assist.ExchangeLogConfig
	shell         string
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler. A nil completer
// disables suggestion fetching; failures still surface local fallbacks.
func NewWebSocketHandler(repo store.Repository, sm *SessionManager, completer assist.Completer, exchangeCfg assist.ExchangeLogConfig, shell, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		sm:            sm,
		completer:     completer,
		exchangeCfg:   exchangeCfg,
		shell:         shell,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsWriter adapts websocket.Conn to io.Writer.
// Uses context.Background() for writes since WebSocket library handles its own
// connection state. The passed context is only for initial setup.
type wsWriter struct {
	conn *websocket.Conn
	ctx  context.Context
}

func (w *wsWriter) Write(p []byte) (int, error) {
	if w.ctx.Err() != nil {
		return 0, w.ctx.Err()
	}

	if err := w.conn.Write(context.Background(), websocket.MessageBinary, p); err != nil {
		if w.ctx.Err() != nil {
			// Context cancelled, connection closing - this is expected
			return 0, w.ctx.Err()
		}
		slog.Debug("WebSocket write error", "error", err)
		return 0, err
	}
	return len(p), nil
}

// wsMessage represents WebSocket message structure.
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Cols    uint   `json:"cols,omitempty"`
	Rows    uint   `json:"rows,omitempty"`
}

// wsNotifier delivers pipeline events to the browser as JSON text frames.
type wsNotifier struct {
	conn   *websocket.Conn
	logger *slog.Logger
}

func (n *wsNotifier) OnFailureDetected(message string) {
	n.send(map[string]string{
		"type":    "failure",
		"message": message,
	})
}

func (n *wsNotifier) OnSuggestionsReady(command, errorLine string, suggestions []domain.Suggestion) {
	n.send(map[string]any{
		"type":        "suggestions",
		"command":     command,
		"error_line":  errorLine,
		"suggestions": suggestions,
	})
}

func (n *wsNotifier) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		n.logger.Error("Failed to encode notification", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.conn.Write(ctx, websocket.MessageText, data); err != nil {
		n.logger.Debug("Failed to deliver notification", "error", err)
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}

	shell, err := StartShell(h.shell)
	if err != nil {
		slog.Error("Failed to start shell", "error", err, "user_id", userID)
		if writeErr := h.writeJSON(ws, map[string]string{"error": "failed_to_start_shell"}); writeErr != nil {
			slog.Debug("Failed to send failed_to_start_shell error", "error", writeErr)
		}
		_ = ws.Close(websocket.StatusInternalError, "shell unavailable")
		return
	}

	logger := slog.Default().With("user_id", userID, "session_id", sessionID)
	exchanges := assist.NewExchangeLogger(h.exchangeCfg, userID, sessionID, logger)
	pipeline := assist.NewPipeline(assist.PipelineConfig{
		UserID:    userID,
		SessionID: sessionID,
		Fetcher:   assist.NewFetcher(h.completer, logger),
		Notifier:  &wsNotifier{conn: ws, logger: logger},
		Recorder:  h.repo,
		Exchanges: exchanges,
		Logger:    logger,
	})

	sess := &Session{
		Conn:      ws,
		Shell:     shell,
		Pipeline:  pipeline,
		Exchanges: exchanges,
	}
	defer sess.Teardown("session ended")

	h.sm.Register(userID, sessionID, sess)
	defer h.sm.Unregister(userID, sessionID, sess)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	// Input loop: WebSocket -> shell.
	go func() {
		defer wg.Done()
		defer cancel()
		h.inputLoop(ctx, ws, shell, pipeline, userID, sessionID)
	}()

	// Output loop: shell -> WebSocket.
	go func() {
		defer wg.Done()
		defer cancel()
		h.outputLoop(ctx, ws, shell, pipeline, userID)
	}()

	wg.Wait()
	slog.Info("Terminal session ended", "user_id", userID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) inputLoop(ctx context.Context, ws *websocket.Conn, shell *ShellSession, pipeline *assist.Pipeline, userID, sessionID string) {
	slog.Debug("Starting input loop", "user_id", userID)
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			// Fallback to raw data.
			if _, err := shell.Write(message); err != nil {
				slog.Error("Shell write error", "error", err)
				return
			}
			pipeline.HandleInput(message)
			continue
		}

		switch msg.Type {
		case "data":
			if _, err := shell.Write([]byte(msg.Content)); err != nil {
				slog.Error("Shell stdin write error", "error", err)
				return
			}
			pipeline.HandleInput([]byte(msg.Content))
		case "ping":
			if err := h.writeJSON(ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		case "resize":
			if err := shell.Resize(msg.Cols, msg.Rows); err != nil {
				slog.Warn("Failed to resize", "error", err)
			}
		case "terminate":
			slog.Info("Terminal terminate requested", "user_id", userID, "session_id", sessionID)
			if err := h.writeJSON(ws, map[string]string{"type": "terminated"}); err != nil {
				slog.Debug("Failed to send terminated acknowledgment", "error", err)
			}
			return
		}

		// Update last seen asynchronously with timeout.
		go func() {
			updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.repo.UpdateLastSeen(updateCtx, userID, time.Now()); err != nil {
				slog.Warn("Failed to update last seen", "error", err)
			}
		}()
	}
}

func (h *WebSocketHandler) outputLoop(ctx context.Context, ws *websocket.Conn, shell *ShellSession, pipeline *assist.Pipeline, userID string) {
	writer := NewAsyncDualWriter(&wsWriter{ws, ctx}, pipeline, userID, nil)
	defer func() {
		if closeErr := writer.Close(); closeErr != nil {
			slog.Debug("Failed to close async dual writer", "error", closeErr, "user_id", userID)
		}
	}()

	_, err := io.Copy(writer, shell)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		slog.Debug("Shell output ended", "error", err, "user_id", userID)
	}
}

func (h *WebSocketHandler) writeJSON(ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(context.Background(), websocket.MessageText, data)
}
