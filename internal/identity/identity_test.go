package identity

import (
	"testing"
)

func TestGenerateAnonID(t *testing.T) {
	id, err := generateAnonID()
	if err != nil {
		t.Fatalf("generateAnonID: %v", err)
	}
	if !isValidAnonID(id) {
		t.Errorf("generated ID %q fails its own validation", id)
	}

	other, err := generateAnonID()
	if err != nil {
		t.Fatalf("generateAnonID: %v", err)
	}
	if id == other {
		t.Error("two generated IDs collided")
	}
}

func TestIsValidAnonID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"anon_0123456789abcdef0123456789abcdef", true},
		{"anon_0123456789ABCDEF0123456789abcdef", false},
		{"anon_short", false},
		{"0123456789abcdef0123456789abcdef", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isValidAnonID(tt.id); got != tt.want {
			t.Errorf("isValidAnonID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestSanitizeSessionID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tab-1", "tab-1"},
		{"  tab-1  ", "tab-1"},
		{"", DefaultSessionIDValue},
		{"bad session id", DefaultSessionIDValue},
		{"../../etc", DefaultSessionIDValue},
		{"a.b_c:d-e", "a.b_c:d-e"},
	}
	for _, tt := range tests {
		if got := sanitizeSessionID(tt.in); got != tt.want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeriveUsername(t *testing.T) {
	if got := deriveUsername("anon_0123456789abcdef0123456789abcdef"); got != "anon-89abcdef" {
		t.Errorf("deriveUsername = %q, want %q", got, "anon-89abcdef")
	}
	if got := deriveUsername("short"); got != "anon-user" {
		t.Errorf("deriveUsername(short) = %q, want %q", got, "anon-user")
	}
}
