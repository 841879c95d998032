package assist

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestExchangeLoggerDisabled(t *testing.T) {
	l := NewExchangeLogger(ExchangeLogConfig{Enabled: false}, "anon_x", "tab-1", nil)
	if l != nil {
		t.Fatal("disabled config should yield a nil logger")
	}
	// Nil receiver must be safe.
	l.Log("ls", "err", "reply")
	l.Close()
}

func TestExchangeLoggerWritesNDJSON(t *testing.T) {
	dir := t.TempDir()
	l := NewExchangeLogger(ExchangeLogConfig{Enabled: true, Dir: dir, QueueSize: 8}, "anon_abc", "tab-1", nil)
	if l == nil {
		t.Fatal("expected a live logger")
	}

	l.Log("gti status", "bash: gti: command not found", "1. git status → Show status")
	l.Log("mk", "zsh: command not found: mk", "1. mkdir → Create directory")
	l.Close()

	f, err := os.Open(filepath.Join(dir, "anon_abc", "tab-1.ndjson"))
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var records []exchangeRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec exchangeRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Command != "gti status" || records[1].Command != "mk" {
		t.Errorf("commands = %q, %q", records[0].Command, records[1].Command)
	}
	if records[0].Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestExchangeLoggerStripsEscapes(t *testing.T) {
	dir := t.TempDir()
	l := NewExchangeLogger(ExchangeLogConfig{Enabled: true, Dir: dir, QueueSize: 8}, "anon_abc", "tab-1", nil)
	l.Log("ls", "\x1b[31mls: error\x1b[0m", "reply\x00text")
	l.Close()

	data, err := os.ReadFile(filepath.Join(dir, "anon_abc", "tab-1.ndjson"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	var rec exchangeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ErrorLine != "ls: error" {
		t.Errorf("error line = %q, want escapes stripped", rec.ErrorLine)
	}
	if rec.Reply != "replytext" {
		t.Errorf("reply = %q, want control bytes stripped", rec.Reply)
	}
}

func TestSanitizePathComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"anon_abc123", "anon_abc123"},
		{"tab-1", "tab-1"},
		{"../../etc/passwd", "______etc_passwd"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := sanitizePathComponent(tt.in); got != tt.want {
			t.Errorf("sanitizePathComponent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
