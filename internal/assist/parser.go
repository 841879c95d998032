package assist

import (
	"regexp"
	"strings"

	"github.com/avoronin/termfix/internal/domain"
)

// NoCorrectionsSentinel is the literal phrase the assistant replies with when
// the failed command needs no fixing.
const NoCorrectionsSentinel = "no corrections needed"

// genericDescription is attached to last-resort matches that carry no
// description of their own.
const genericDescription = "Suggested fix"

// Reply line formats, tried in priority order. The assistant is asked for
// the arrow form, but models drift between conventions, so every observed
// variant gets a matcher.
var (
	// 1. node -v → Show Node.js version
	numberedArrowRe = regexp.MustCompile(`^\d+[.)]\s*(.+?)\s*(?:→|->)\s*(.+)$`)
	// 1. node -v: Show Node.js version
	numberedColonRe = regexp.MustCompile(`^\d+[.)]\s*([^:]+?):\s+(.+)$`)
	// 1. node -v - Show Node.js version
	numberedHyphenRe = regexp.MustCompile(`^\d+[.)]\s*(.+?)\s+-\s+(.+)$`)
	// 1. `node -v` -- Show Node.js version
	numberedQuotedRe = regexp.MustCompile("^\\d+[.)]\\s*[`\"'](.+?)[`\"']\\s*-+\\s*(.+)$")
	// node -v ~ Show Node.js version
	tildeRe = regexp.MustCompile(`^(.+?)\s*~\s*(.+)$`)

	// Label prefixes some models prepend to the command token.
	labelPrefixRe = regexp.MustCompile(`(?i)^(?:command|cmd|fix|suggestion)\s*:\s*`)
)

// knownCommands is the last-resort allow-list: a reply line whose first token
// is one of these is treated as a bare command suggestion even when no
// separator convention matched.
var knownCommands = map[string]struct{}{
	"ls": {}, "cd": {}, "pwd": {}, "mkdir": {}, "touch": {}, "cat": {},
	"rm": {}, "cp": {}, "mv": {}, "echo": {}, "grep": {}, "find": {},
	"chmod": {}, "chown": {}, "tar": {}, "curl": {}, "wget": {}, "ssh": {},
	"kill": {}, "ps": {}, "man": {}, "sudo": {}, "apt": {}, "brew": {},
	"git": {}, "npm": {}, "npx": {}, "node": {}, "python": {}, "python3": {},
	"pip": {}, "pip3": {}, "go": {}, "cargo": {}, "docker": {}, "make": {},
}

// Parser turns the assistant's free-text reply into an ordered list of
// suggestions. It never fails; total non-recognition yields an empty batch.
type Parser struct{}

// NewParser creates a suggestion parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse processes the reply line by line, trying format strategies in
// priority order and preserving input order in the result. Suggestions are
// not deduplicated; the reply's own ordering and repetition is meaningful.
func (p *Parser) Parse(raw string) []domain.Suggestion {
	if strings.Contains(strings.ToLower(raw), NoCorrectionsSentinel) {
		return []domain.Suggestion{{Command: NoCorrectionsSentinel}}
	}

	var suggestions []domain.Suggestion
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s, ok := matchLine(line); ok {
			suggestions = append(suggestions, s)
			continue
		}
		// No separator convention matched this line; it may still be a
		// bare allow-listed command.
		if s, ok := matchBareCommand(line); ok {
			suggestions = append(suggestions, s)
		}
	}
	return suggestions
}

// matchLine tries the separator-based strategies in priority order.
func matchLine(line string) (domain.Suggestion, bool) {
	for _, re := range []*regexp.Regexp{
		numberedArrowRe,
		numberedColonRe,
		numberedHyphenRe,
		numberedQuotedRe,
		tildeRe,
	} {
		if m := re.FindStringSubmatch(line); m != nil {
			return newSuggestion(m[1], m[2]), true
		}
	}

	// An arrow anywhere in the line still separates command from
	// description, numbered or not.
	for _, sep := range []string{"→", "->"} {
		if idx := strings.Index(line, sep); idx > 0 {
			return newSuggestion(line[:idx], line[idx+len(sep):]), true
		}
	}

	return domain.Suggestion{}, false
}

// matchBareCommand accepts lines that start with a recognizable program
// name, splitting at the first whitespace into command and description.
func matchBareCommand(line string) (domain.Suggestion, bool) {
	token := cleanCommand(line)
	fields := strings.Fields(token)
	if len(fields) == 0 {
		return domain.Suggestion{}, false
	}
	if _, ok := knownCommands[fields[0]]; !ok {
		return domain.Suggestion{}, false
	}
	if len(fields) == 1 {
		return domain.Suggestion{Command: fields[0], Description: genericDescription}, true
	}
	return newSuggestion(fields[0], strings.Join(fields[1:], " ")), true
}

func newSuggestion(command, description string) domain.Suggestion {
	description = strings.TrimSpace(description)
	if description == "" {
		description = genericDescription
	}
	return domain.Suggestion{
		Command:     cleanCommand(command),
		Description: description,
	}
}

// cleanCommand strips surrounding quote/backtick characters and label-prefix
// artifacts from a command token.
func cleanCommand(command string) string {
	command = strings.TrimSpace(command)
	command = labelPrefixRe.ReplaceAllString(command, "")
	command = strings.Trim(command, "`\"'")
	return strings.TrimSpace(command)
}
