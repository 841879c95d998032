package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avoronin/termfix/internal/domain"
)

// State is the pipeline's processing state.
type State int

const (
	// StateIdle means the pipeline is watching output for failures.
	StateIdle State = iota
	// StateProcessing means a suggestion request is in flight; further
	// failure evidence is ignored until it completes.
	StateProcessing
)

// graceDelay is how long the pipeline stays in the processing state after
// delivering suggestions, absorbing the trailing output burst (prompt
// redraw, exit-status lines) that follows a failure.
const graceDelay = 300 * time.Millisecond

// maxPromptOutputBytes caps the recent-output context attached to assistant
// prompts.
const maxPromptOutputBytes = 2048

// Notifier receives pipeline events for delivery to the user. Callbacks are
// invoked from the pipeline's goroutines and must not block for long.
type Notifier interface {
	OnFailureDetected(message string)
	OnSuggestionsReady(command, errorLine string, suggestions []domain.Suggestion)
}

// Recorder persists completed failure/suggestion exchanges.
type Recorder interface {
	RecordSuggestionEvent(ctx context.Context, event *domain.SuggestionEvent) error
}

// PipelineConfig carries the pipeline's collaborators and identity.
type PipelineConfig struct {
	UserID    string
	SessionID string
	Fetcher   *Fetcher
	Notifier  Notifier
	Recorder  Recorder // optional
	Exchanges *ExchangeLogger
	Logger    *slog.Logger
	Now       func() time.Time // optional, defaults to time.Now
	Grace     time.Duration    // optional, defaults to graceDelay
}

// Pipeline watches one terminal session's keystroke and output streams,
// detects failed commands, and runs at most one suggestion request at a
// time. HandleInput and HandleOutput are safe for concurrent use.
type Pipeline struct {
	cfg        PipelineConfig
	tracker    *Tracker
	classifier *Classifier
	parser     *Parser
	ring       *OutputRing

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	state          State
	dedup          *DedupCache
	currentCommand string
	lastEvidence   string
}

// NewPipeline creates a pipeline for one terminal session.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Grace <= 0 {
		cfg.Grace = graceDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		cfg:        cfg,
		tracker:    NewTracker(),
		classifier: NewClassifier(),
		parser:     NewParser(),
		ring:       NewOutputRing(maxPromptOutputBytes),
		dedup:      NewDedupCache(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// HandleInput feeds raw keystroke bytes from the user into the command
// tracker.
func (p *Pipeline) HandleInput(data []byte) {
	command, submitted := p.tracker.ProcessInput(data)
	if !submitted {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if command != p.currentCommand {
		// A different command starts with a clean slate: its failures must
		// never be suppressed by the previous command's dedup keys or
		// evidence.
		p.dedup.PurgeCommand(p.currentCommand)
		p.lastEvidence = ""
		p.ring.Reset()
	}
	p.currentCommand = command
}

// HandleOutput feeds a chunk of terminal output through failure
// classification, possibly starting a suggestion request.
func (p *Pipeline) HandleOutput(chunk []byte) {
	_, _ = p.ring.Write(chunk)

	evidence, failed := p.classifier.Classify(string(chunk))
	if !failed {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateProcessing {
		return
	}

	command := p.currentCommand
	if command == "" {
		// Failure text with no attributable command, e.g. output from a
		// background job or shell startup. Nothing to suggest against.
		return
	}

	if evidence == p.lastEvidence {
		// The same evidence line echoing again within one command's output,
		// typically the terminal re-rendering.
		return
	}

	if p.classifier.IsCommandNotFound(evidence) {
		// Retrying a still-missing command should always produce a fresh
		// request, regardless of the time bucket.
		p.dedup.PurgeCommand(command)
	}

	if !p.dedup.ShouldProcess(command, evidence, p.cfg.Now()) {
		p.cfg.Logger.Debug("[PIPELINE] Duplicate failure suppressed",
			"command", command,
			"error_line", evidence,
		)
		return
	}

	p.state = StateProcessing
	p.lastEvidence = evidence
	recent := p.ring.String()

	p.cfg.Logger.Info("[PIPELINE] Failure detected",
		"command", command,
		"error_line", evidence,
	)
	p.cfg.Notifier.OnFailureDetected(fmt.Sprintf("Command %q failed: %s", command, evidence))

	p.wg.Add(1)
	go p.run(command, evidence, recent)
}

// run performs one fetch/parse/deliver cycle, then returns the pipeline to
// idle after the grace delay.
func (p *Pipeline) run(command, errorLine, recentOutput string) {
	defer p.wg.Done()
	defer p.finish()

	suggestions := p.obtainSuggestions(command, errorLine, recentOutput)

	// The session may have been torn down while the request was in flight.
	select {
	case <-p.ctx.Done():
		return
	default:
	}

	p.cfg.Notifier.OnSuggestionsReady(command, errorLine, suggestions)
	p.record(command, errorLine, suggestions)
}

// obtainSuggestions fetches and parses assistant suggestions, degrading to a
// local fallback or an empty batch on failure.
func (p *Pipeline) obtainSuggestions(command, errorLine, recentOutput string) []domain.Suggestion {
	reply, err := p.cfg.Fetcher.Fetch(p.ctx, command, errorLine, recentOutput)
	if err != nil {
		p.cfg.Logger.Warn("[PIPELINE] Suggestion fetch failed",
			"command", command,
			"error", err,
		)
		return heuristicFallback(command, errorLine)
	}

	if p.cfg.Exchanges != nil {
		p.cfg.Exchanges.Log(command, errorLine, reply)
	}

	suggestions := p.parser.Parse(reply)
	if len(suggestions) == 0 {
		p.cfg.Logger.Warn("[PIPELINE] Assistant reply not parseable",
			"command", command,
			"reply_len", len(reply),
		)
		return []domain.Suggestion{{
			Command:     command,
			Description: "no suggestions could be parsed",
		}}
	}
	return suggestions
}

// record persists the exchange when a recorder is configured.
func (p *Pipeline) record(command, errorLine string, suggestions []domain.Suggestion) {
	if p.cfg.Recorder == nil {
		return
	}

	payload, err := json.Marshal(suggestions)
	if err != nil {
		p.cfg.Logger.Error("[PIPELINE] Failed to encode suggestions", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
	defer cancel()
	event := &domain.SuggestionEvent{
		UserID:          p.cfg.UserID,
		SessionID:       p.cfg.SessionID,
		Command:         command,
		ErrorLine:       errorLine,
		SuggestionsJSON: string(payload),
		CreatedAt:       p.cfg.Now().UTC(),
	}
	if err := p.cfg.Recorder.RecordSuggestionEvent(ctx, event); err != nil {
		p.cfg.Logger.Error("[PIPELINE] Failed to record suggestion event", "error", err)
	}
}

// finish holds the processing state for the grace delay, then returns to
// idle. The delay absorbs the output burst that trails a failed command so
// it cannot immediately re-trigger the pipeline.
func (p *Pipeline) finish() {
	timer := time.NewTimer(p.cfg.Grace)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-p.ctx.Done():
	}

	p.mu.Lock()
	p.state = StateIdle
	p.mu.Unlock()
}

// State returns the current processing state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// CurrentCommand returns the most recently submitted command line.
func (p *Pipeline) CurrentCommand() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentCommand
}

// Close cancels any in-flight request and waits for worker goroutines to
// exit. After Close, no notifier callback will be invoked.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}

// heuristicFallback produces a local best-effort suggestion when the
// assistant is unreachable. For option errors it retries the command with
// flag-like tokens removed; other failure classes have no cheap local
// correction and yield an empty batch.
func heuristicFallback(command, errorLine string) []domain.Suggestion {
	lower := strings.ToLower(errorLine)
	optionError := strings.Contains(lower, "option") || strings.Contains(lower, "unknown flag")
	if !optionError {
		return nil
	}

	var kept []string
	for _, field := range strings.Fields(command) {
		if strings.HasPrefix(field, "-") {
			continue
		}
		kept = append(kept, field)
	}
	stripped := strings.Join(kept, " ")
	if stripped == "" || stripped == command {
		return nil
	}
	return []domain.Suggestion{{
		Command:     stripped,
		Description: "Retry without the unrecognized option",
	}}
}
