package assist

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ExchangeLogConfig controls on-disk logging of assistant exchanges.
type ExchangeLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// exchangeRecord is one NDJSON line in an exchange log file.
type exchangeRecord struct {
	Timestamp time.Time `json:"ts"`
	Command   string    `json:"command"`
	ErrorLine string    `json:"error_line"`
	Reply     string    `json:"reply"`
}

// ansiRe matches CSI and OSC escape sequences for log readability.
var ansiRe = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[a-zA-Z]|\][^\x07\x1b]*(?:\x07|\x1b\\))`)

// ExchangeLogger appends failure/reply exchanges to a per-session NDJSON
// file, asynchronously so the pipeline never blocks on disk. When the queue
// is full new records are dropped.
type ExchangeLogger struct {
	path   string
	queue  chan exchangeRecord
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// NewExchangeLogger creates a logger writing to dir/userID/sessionID.ndjson
// and starts its writer goroutine. Returns nil (a valid no-op receiver for
// Log and Close) when logging is disabled or the directory cannot be
// created.
func NewExchangeLogger(cfg ExchangeLogConfig, userID, sessionID string, logger *slog.Logger) *ExchangeLogger {
	if !cfg.Enabled || cfg.Dir == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	userDir := filepath.Join(cfg.Dir, sanitizePathComponent(userID))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		logger.Warn("[EXCHANGELOG] Failed to create log directory", "dir", userDir, "error", err)
		return nil
	}

	l := &ExchangeLogger{
		path:   filepath.Join(userDir, sanitizePathComponent(sessionID)+".ndjson"),
		queue:  make(chan exchangeRecord, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.writeLoop()
	return l
}

// Log enqueues one exchange for writing. Safe on a nil receiver.
func (l *ExchangeLogger) Log(command, errorLine, reply string) {
	if l == nil {
		return
	}
	rec := exchangeRecord{
		Timestamp: time.Now().UTC(),
		Command:   command,
		ErrorLine: stripControl(errorLine),
		Reply:     stripControl(reply),
	}
	select {
	case l.queue <- rec:
	default:
		l.logger.Debug("[EXCHANGELOG] Queue full, dropping record")
	}
}

// Close stops the writer after draining queued records. Safe on a nil
// receiver.
func (l *ExchangeLogger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		close(l.queue)
		<-l.done
	})
}

func (l *ExchangeLogger) writeLoop() {
	defer close(l.done)

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.logger.Warn("[EXCHANGELOG] Failed to open log file", "path", l.path, "error", err)
		for range l.queue {
		}
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for rec := range l.queue {
		if err := enc.Encode(rec); err != nil {
			l.logger.Warn("[EXCHANGELOG] Failed to write record", "error", err)
		}
	}
}

// stripControl removes escape sequences and non-printable control bytes so
// log files stay greppable.
func stripControl(s string) string {
	s = ansiRe.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// sanitizePathComponent keeps identifiers safe for use as file names.
func sanitizePathComponent(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	if s == "" {
		return "unknown"
	}
	return s
}
