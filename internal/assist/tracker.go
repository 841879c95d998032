package assist

import (
	"strings"
	"sync"
)

// historyCapacity bounds the recent-command ring per session.
const historyCapacity = 10

// Control bytes recognized by the tracker.
const (
	byteCtrlC     = 0x03
	byteBackspace = 0x08
	byteEscape    = 0x1b
	byteDelete    = 0x7f
)

// Tracker reconstructs the logical command line from the raw keystroke
// stream sent toward the shell. It never fails; it only mutates state.
type Tracker struct {
	mu            sync.Mutex
	buffer        strings.Builder
	lastCommand   string
	history       []string
	inEscapeSeq   bool
	escSawBracket bool
	escSawSS3     bool
}

// NewTracker creates an empty command tracker.
func NewTracker() *Tracker {
	return &Tracker{
		history: make([]string, 0, historyCapacity),
	}
}

// ProcessInput feeds raw input bytes into the tracker, consuming the whole
// chunk even when it holds several Enter presses (a pasted multi-line
// command block arrives as one frame). Every finalized non-empty line is
// recorded; the most recent one is returned with true.
func (t *Tracker) ProcessInput(data []byte) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		lastSubmitted string
		submitted     bool
	)

	for _, b := range data {
		// Track and swallow ANSI escape/control sequences (e.g. arrow
		// keys: ESC [ A, or ESC O A in application-cursor mode) so cursor
		// movement never pollutes the buffer.
		if t.inEscapeSeq {
			if t.escSawBracket {
				// A CSI sequence terminates on a byte in the 0x40-0x7E range.
				if b >= 0x40 && b <= 0x7e {
					t.inEscapeSeq = false
					t.escSawBracket = false
				}
				continue
			}
			if t.escSawSS3 {
				// SS3 sequences are ESC O plus exactly one final byte.
				t.inEscapeSeq = false
				t.escSawSS3 = false
				continue
			}
			if b == '[' {
				t.escSawBracket = true
				continue
			}
			if b == 'O' {
				t.escSawSS3 = true
				continue
			}
			// Other two-byte escape sequence, swallow this byte.
			t.inEscapeSeq = false
			continue
		}

		switch b {
		case byteEscape:
			t.inEscapeSeq = true
			t.escSawBracket = false
			t.escSawSS3 = false

		case '\r', '\n':
			cmd := strings.TrimSpace(t.buffer.String())
			t.buffer.Reset()
			if cmd != "" {
				t.lastCommand = cmd
				t.appendHistory(cmd)
				lastSubmitted = cmd
				submitted = true
			}

		case byteDelete, byteBackspace:
			current := t.buffer.String()
			if runes := []rune(current); len(runes) > 0 {
				t.buffer.Reset()
				t.buffer.WriteString(string(runes[:len(runes)-1]))
			}

		case byteCtrlC:
			// Interrupt discards the line without registering a command.
			t.buffer.Reset()

		default:
			if b >= 0x20 {
				t.buffer.WriteByte(b)
			}
		}
	}

	return lastSubmitted, submitted
}

// appendHistory records a submitted command, evicting the oldest entry past
// capacity. An already-present command is not re-appended.
func (t *Tracker) appendHistory(cmd string) {
	for _, existing := range t.history {
		if existing == cmd {
			return
		}
	}
	t.history = append(t.history, cmd)
	if len(t.history) > historyCapacity {
		t.history = t.history[len(t.history)-historyCapacity:]
	}
}

// LastCommand returns the most recently submitted command, if any.
func (t *Tracker) LastCommand() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastCommand
}

// Buffer returns the command line currently being typed.
func (t *Tracker) Buffer() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffer.String()
}

// History returns a copy of the recent-command history, oldest first.
func (t *Tracker) History() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.history))
	copy(out, t.history)
	return out
}
