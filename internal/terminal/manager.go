// Package terminal provides WebSocket-based terminal session management.
package terminal

import (
	"log/slog"
	"sync"

	"github.com/avoronin/termfix/internal/assist"
	"github.com/coder/websocket"
)

// Session bundles the live resources of one connected terminal tab: the
// WebSocket, the shell PTY, and the failure-detection pipeline watching it.
type Session struct {
	Conn      *websocket.Conn
	Shell     *ShellSession
	Pipeline  *assist.Pipeline
	Exchanges *assist.ExchangeLogger
}

// Teardown releases the session's resources in dependency order: the
// pipeline first so no notifier callback races the closing socket.
func (s *Session) Teardown(reason string) {
	if s.Pipeline != nil {
		s.Pipeline.Close()
	}
	if s.Exchanges != nil {
		s.Exchanges.Close()
	}
	if s.Shell != nil {
		_ = s.Shell.Close()
	}
	if s.Conn != nil {
		_ = s.Conn.Close(websocket.StatusNormalClosure, reason)
	}
}

// SessionManager tracks active terminal sessions per user.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*Session
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[string]*Session),
	}
}

// GetActive returns the active session for a user and session ID.
func (m *SessionManager) GetActive(userID, sessionID string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Register adds a new terminal session for a user/session ID. An existing
// session under the same key is torn down first.
func (m *SessionManager) Register(userID, sessionID string, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*Session)
	}

	if existing, exists := m.active[userID][sessionID]; exists && existing != sess {
		existing.Teardown("session replaced")
	}

	m.active[userID][sessionID] = sess
	slog.Info("Terminal session registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes a terminal session for a user/session ID. Only the
// registered session itself can unregister; a replaced session's deferred
// cleanup must not evict its successor.
func (m *SessionManager) Unregister(userID, sessionID string, sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == sess {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Terminal session unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// CloseUser forcefully terminates all active sessions for a user.
func (m *SessionManager) CloseUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, ok := m.active[userID]
	if !ok {
		return
	}

	for sid, sess := range sessions {
		sess.Teardown("session closed")
		slog.Info("Terminal session closed", "user_id", userID, "session_id", sid)
	}
	delete(m.active, userID)
}

// GetActiveForUser returns the number of live sessions for one user.
func (m *SessionManager) GetActiveForUser(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active[userID])
}

// ActiveCount returns the total number of live sessions.
func (m *SessionManager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}
