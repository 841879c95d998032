package assist

import (
	"testing"
)

func TestClassifierClassify(t *testing.T) {
	tests := []struct {
		name         string
		chunk        string
		wantEvidence string
		wantFailed   bool
	}{
		{
			name:         "bash command not found",
			chunk:        "bash: gti: command not found\n",
			wantEvidence: "bash: gti: command not found",
			wantFailed:   true,
		},
		{
			name:         "zsh qualified form",
			chunk:        "zsh: command not found: mk\n",
			wantEvidence: "zsh: command not found: mk",
			wantFailed:   true,
		},
		{
			name:         "permission denied",
			chunk:        "touch: /etc/hosts: Permission denied\n",
			wantEvidence: "touch: /etc/hosts: Permission denied",
			wantFailed:   true,
		},
		{
			name:         "path-qualified bad option",
			chunk:        "/usr/local/bin/node: bad option: -w\n",
			wantEvidence: "/usr/local/bin/node: bad option: -w",
			wantFailed:   true,
		},
		{
			name:         "git typo error",
			chunk:        "git: 'comit' is not a git command. See 'git --help'.\n",
			wantEvidence: "git: 'comit' is not a git command. See 'git --help'.",
			wantFailed:   true,
		},
		{
			name:       "normal output",
			chunk:      "total 48\ndrwxr-xr-x  12 root root 4096 .\n",
			wantFailed: false,
		},
		{
			name:       "empty chunk",
			chunk:      "",
			wantFailed: false,
		},
		{
			name:         "first matching line wins",
			chunk:        "some output\nls: cannot access '/nope': No such file or directory\nerror: second line\n",
			wantEvidence: "ls: cannot access '/nope': No such file or directory",
			wantFailed:   true,
		},
		{
			name:         "crlf line endings",
			chunk:        "prompt$ gti\r\nbash: gti: command not found\r\n",
			wantEvidence: "bash: gti: command not found",
			wantFailed:   true,
		},
		{
			name:         "python traceback",
			chunk:        "Traceback (most recent call last):\n  File \"x.py\", line 1\n",
			wantEvidence: "Traceback (most recent call last):",
			wantFailed:   true,
		},
		{
			name:         "case insensitive match",
			chunk:        "ERROR: unable to resolve host\n",
			wantEvidence: "ERROR: unable to resolve host",
			wantFailed:   true,
		},
		{
			name:       "discussion of errors is still flagged by substring",
			chunk:      "grep finished with no matches\n",
			wantFailed: false,
		},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evidence, failed := c.Classify(tt.chunk)
			if failed != tt.wantFailed {
				t.Fatalf("failed = %v, want %v", failed, tt.wantFailed)
			}
			if failed && evidence != tt.wantEvidence {
				t.Errorf("evidence = %q, want %q", evidence, tt.wantEvidence)
			}
		})
	}
}

func TestClassifierIsCommandNotFound(t *testing.T) {
	c := NewClassifier()
	if !c.IsCommandNotFound("bash: gti: command not found") {
		t.Error("expected command-not-found classification")
	}
	if !c.IsCommandNotFound("zsh: Command Not Found: mk") {
		t.Error("expected case-insensitive classification")
	}
	if c.IsCommandNotFound("touch: Permission denied") {
		t.Error("unexpected command-not-found classification")
	}
}

func BenchmarkClassifierCleanOutput(b *testing.B) {
	c := NewClassifier()
	chunk := "drwxr-xr-x 12 root root 4096 Jan  1 00:00 usr\n" +
		"drwxr-xr-x  2 root root 4096 Jan  1 00:00 var\n" +
		"-rw-r--r--  1 root root  220 Jan  1 00:00 profile\n"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Classify(chunk)
	}
}
