package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avoronin/termfix/internal/domain"
	"github.com/avoronin/termfix/internal/identity"
	"github.com/avoronin/termfix/internal/terminal"
)

// fakeRepo implements store.Repository for handler tests.
type fakeRepo struct {
	users  map[string]*domain.User
	events []*domain.SuggestionEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*domain.User)}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	return f.users[userID], nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.users[user.UserID] = user
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, userID string, lastSeen time.Time) error {
	if u, ok := f.users[userID]; ok {
		u.LastSeenAt = lastSeen
	}
	return nil
}

func (f *fakeRepo) GetInactiveUsers(context.Context, time.Duration) ([]*domain.User, error) {
	return nil, nil
}

func (f *fakeRepo) RecordSuggestionEvent(_ context.Context, event *domain.SuggestionEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeRepo) ListSuggestionEvents(_ context.Context, userID string, limit int) ([]*domain.SuggestionEvent, error) {
	var out []*domain.SuggestionEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].UserID == userID {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) PruneSuggestionEvents(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) Close() error               { return nil }

func serveWithIdentity(t *testing.T, repo *fakeRepo, handlerFunc http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	identity.Middleware(repo, true)(handlerFunc).ServeHTTP(rec, req)
	return rec
}

func anonUserID(t *testing.T, repo *fakeRepo) string {
	t.Helper()
	if len(repo.users) != 1 {
		t.Fatalf("users = %d, want the middleware to create exactly 1", len(repo.users))
	}
	for id := range repo.users {
		return id
	}
	return ""
}

func TestSuggestionHistory(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, terminal.NewSessionManager())

	// Establish an identity, then seed an event for it.
	rec := serveWithIdentity(t, repo, h.SuggestionHistory, "/api/suggestions/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	userID := anonUserID(t, repo)

	repo.events = append(repo.events, &domain.SuggestionEvent{
		ID:              1,
		UserID:          userID,
		SessionID:       "tab-1",
		Command:         "gti status",
		ErrorLine:       "bash: gti: command not found",
		SuggestionsJSON: `[{"command":"git status","description":"Show status"}]`,
		CreatedAt:       time.Now(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/suggestions/history", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	rec2 := httptest.NewRecorder()
	identity.Middleware(repo, true)(http.HandlerFunc(h.SuggestionHistory)).ServeHTTP(rec2, req)

	if rec2.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec2.Code)
	}

	var body struct {
		Events []struct {
			Command     string              `json:"command"`
			ErrorLine   string              `json:"error_line"`
			Suggestions []domain.Suggestion `json:"suggestions"`
		} `json:"events"`
	}
	if err := json.Unmarshal(rec2.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(body.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(body.Events))
	}
	if body.Events[0].Command != "gti status" {
		t.Errorf("command = %q", body.Events[0].Command)
	}
	if len(body.Events[0].Suggestions) != 1 || body.Events[0].Suggestions[0].Command != "git status" {
		t.Errorf("suggestions = %v", body.Events[0].Suggestions)
	}
}

func TestSuggestionHistoryInvalidLimit(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, terminal.NewSessionManager())

	rec := serveWithIdentity(t, repo, h.SuggestionHistory, "/api/suggestions/history?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec = serveWithIdentity(t, newFakeRepo(), h.SuggestionHistory, "/api/suggestions/history?limit=-1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	repo := newFakeRepo()
	h := NewHandler(repo, terminal.NewSessionManager())

	rec := serveWithIdentity(t, repo, h.Health, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}
