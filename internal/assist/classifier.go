package assist

import (
	"strings"
)

// failurePatterns are tested case-insensitively, in order, first against the
// whole chunk as a fast reject and then line by line to pick the evidence
// line. Covers shell-qualified forms ("zsh: command not found: mk") and
// path-qualified forms ("/usr/local/bin/node: bad option") via substring
// matching.
var failurePatterns = []string{
	"command not found",
	"permission denied",
	"no such file or directory",
	"cannot access",
	"error:",
	"failed:",
	"bad option",
	"unknown option",
	"unrecognized option",
	"invalid option",
	"illegal option",
	"unknown flag",
	"not a directory",
	"not recognized",
	"syntax error",
	"segmentation fault",
	"traceback",
	"exception",
	"modulenotfounderror",
	"cannot find module",
}

// commandNotFoundPattern identifies the failure class that gets dedup-reset
// treatment: retrying a still-missing command should always re-request
// suggestions.
const commandNotFoundPattern = "command not found"

// Classifier detects failure evidence in streamed shell output.
type Classifier struct{}

// NewClassifier creates an output classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify inspects one raw output chunk. When a failure signal is present
// it returns the first matching line as the evidence line. A chunk that
// matches only across a line break yields no evidence and is treated as a
// non-failure.
func (c *Classifier) Classify(chunk string) (string, bool) {
	lower := strings.ToLower(chunk)
	matched := false
	for _, pattern := range failurePatterns {
		if strings.Contains(lower, pattern) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	for _, line := range splitOutputLines(chunk) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lowerLine := strings.ToLower(line)
		for _, pattern := range failurePatterns {
			if strings.Contains(lowerLine, pattern) {
				return line, true
			}
		}
	}

	return "", false
}

// IsCommandNotFound reports whether an evidence line belongs to the
// command-not-found failure class.
func (c *Classifier) IsCommandNotFound(evidenceLine string) bool {
	return strings.Contains(strings.ToLower(evidenceLine), commandNotFoundPattern)
}

// splitOutputLines splits a terminal chunk on both bare and carriage-return
// line endings, which PTY output mixes freely.
func splitOutputLines(chunk string) []string {
	return strings.FieldsFunc(chunk, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
}
