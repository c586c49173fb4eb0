package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Compile-time interface conformance checks.
var (
	_ CommitWriter = (*ConsoleCommitWriter)(nil)
	_ CommitWriter = (*JSONCommitWriter)(nil)
	_ CommitWriter = (*CSVCommitWriter)(nil)
	_ CommitWriter = (*MarkdownCommitWriter)(nil)
	_ CommitWriter = (*CICommitWriter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatCI       OutputFormat = "ci"
)

// ParseFormat parses a format name; the empty string selects console.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatConsole, nil
	case FormatConsole, FormatJSON, FormatCSV, FormatMarkdown, FormatCI:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "ndjson":
		return FormatCI, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected console, json, csv, markdown or ci)", s)
	}
}

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format     OutputFormat
	OutputPath string
	// Top stops the report after this many commits; 0 is unlimited.
	Top int
}

// Header describes the traversal a report was produced from.
type Header struct {
	RepoPath    string
	Branch      string
	Order       string
	Since       *time.Time
	Until       *time.Time
	GeneratedAt time.Time
}

// Summary accumulates totals over the written commits.
type Summary struct {
	Commits    int `json:"commits"`
	Merges     int `json:"merges"`
	Files      int `json:"files"`
	Insertions int `json:"insertions"`
	Deletions  int `json:"deletions"`
	Authors    int `json:"authors"`

	authors map[string]struct{}
}

// Add counts one commit.
func (s *Summary) Add(rec *CommitRecord) {
	s.Commits++
	if rec.Merge {
		s.Merges++
	}
	if rec.Stats != nil {
		s.Files += rec.Stats.Files
		s.Insertions += rec.Stats.Insertions
		s.Deletions += rec.Stats.Deletions
	}
	if s.authors == nil {
		s.authors = make(map[string]struct{})
	}
	s.authors[strings.ToLower(rec.AuthorEmail)] = struct{}{}
	s.Authors = len(s.authors)
}

// CommitWriter streams commit records. Begin is called once before the first
// commit and End once after the last; nothing is buffered across commits.
type CommitWriter interface {
	Begin(h Header) error
	WriteCommit(rec *CommitRecord) error
	End(s Summary) error
}

// NewCommitWriter creates a commit writer for the specified format.
func NewCommitWriter(format OutputFormat, out io.Writer) CommitWriter {
	switch format {
	case FormatJSON:
		return &JSONCommitWriter{out: out}
	case FormatCSV:
		return NewCSVCommitWriter(out)
	case FormatMarkdown:
		return &MarkdownCommitWriter{out: out}
	case FormatCI:
		return &CICommitWriter{out: out}
	default:
		return &ConsoleCommitWriter{out: out}
	}
}
