package assist

import (
	"reflect"
	"testing"

	"github.com/avoronin/termfix/internal/domain"
)

func TestParserFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []domain.Suggestion
	}{
		{
			name: "numbered arrow form",
			raw:  "1. node -v → Show Node.js version",
			want: []domain.Suggestion{
				{Command: "node -v", Description: "Show Node.js version"},
			},
		},
		{
			name: "numbered ascii arrow form",
			raw:  "1) git status -> Show working tree status",
			want: []domain.Suggestion{
				{Command: "git status", Description: "Show working tree status"},
			},
		},
		{
			name: "multiple numbered suggestions keep order",
			raw:  "1. mkdir → Create directory\n2. touch → Create a file",
			want: []domain.Suggestion{
				{Command: "mkdir", Description: "Create directory"},
				{Command: "touch", Description: "Create a file"},
			},
		},
		{
			name: "numbered colon form",
			raw:  "1. node -v: Show Node.js version",
			want: []domain.Suggestion{
				{Command: "node -v", Description: "Show Node.js version"},
			},
		},
		{
			name: "numbered hyphen form",
			raw:  "1. ls -la - List all files",
			want: []domain.Suggestion{
				{Command: "ls -la", Description: "List all files"},
			},
		},
		{
			name: "numbered backquoted form",
			raw:  "1. `git status` -- Show working tree status",
			want: []domain.Suggestion{
				{Command: "git status", Description: "Show working tree status"},
			},
		},
		{
			name: "unnumbered tilde form",
			raw:  "mkdir ~ Create directory",
			want: []domain.Suggestion{
				{Command: "mkdir", Description: "Create directory"},
			},
		},
		{
			name: "arrow anywhere without numbering",
			raw:  "try git status → Show working tree status",
			want: []domain.Suggestion{
				{Command: "try git status", Description: "Show working tree status"},
			},
		},
		{
			name: "quotes are stripped from the command",
			raw:  "1. \"npm install\" → Install dependencies",
			want: []domain.Suggestion{
				{Command: "npm install", Description: "Install dependencies"},
			},
		},
		{
			name: "label prefix is stripped",
			raw:  "1. command: git status → Show working tree status",
			want: []domain.Suggestion{
				{Command: "git status", Description: "Show working tree status"},
			},
		},
		{
			name: "blank lines and prose between suggestions are skipped",
			raw:  "Here are some fixes:\n\n1. git status → Show status\n\nHope this helps!",
			want: []domain.Suggestion{
				{Command: "git status", Description: "Show status"},
			},
		},
		{
			name: "repeated suggestions are preserved",
			raw:  "1. ls → List files\n2. ls → List files",
			want: []domain.Suggestion{
				{Command: "ls", Description: "List files"},
				{Command: "ls", Description: "List files"},
			},
		},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParserNoCorrectionsSentinel(t *testing.T) {
	p := NewParser()
	got := p.Parse("No corrections needed.")
	want := []domain.Suggestion{{Command: NoCorrectionsSentinel}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}

func TestParserBareCommandLines(t *testing.T) {
	p := NewParser()
	// A line starting with an allow-listed program name is accepted even
	// though no separator convention matches it.
	got := p.Parse("You could just use\ngit log\ninstead")
	want := []domain.Suggestion{{Command: "git", Description: "log"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}

func TestParserMixedFormattedAndBareLines(t *testing.T) {
	p := NewParser()
	// A bare allow-listed line survives alongside formatted ones.
	got := p.Parse("1. mkdir → Create dir\nls -la")
	want := []domain.Suggestion{
		{Command: "mkdir", Description: "Create dir"},
		{Command: "ls", Description: "-la"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}

func TestParserBareSingleToken(t *testing.T) {
	p := NewParser()
	got := p.Parse("ls")
	want := []domain.Suggestion{{Command: "ls", Description: genericDescription}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %v, want %v", got, want)
	}
}

func TestParserUnparseableProse(t *testing.T) {
	p := NewParser()
	if got := p.Parse("I am not sure what went wrong here."); len(got) != 0 {
		t.Errorf("Parse = %v, want empty", got)
	}
	if got := p.Parse(""); len(got) != 0 {
		t.Errorf("Parse(empty) = %v, want empty", got)
	}
}

func TestCleanCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"`git status`", "git status"},
		{"\"ls -la\"", "ls -la"},
		{"'pwd'", "pwd"},
		{"command: git status", "git status"},
		{"Fix: npm install", "npm install"},
		{"  echo hi  ", "echo hi"},
	}
	for _, tt := range tests {
		if got := cleanCommand(tt.in); got != tt.want {
			t.Errorf("cleanCommand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
