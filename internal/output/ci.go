package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// CICommitWriter writes NDJSON (one JSON object per line) for CI pipelines:
// a commit line, one line per file, and a closing summary line.
type CICommitWriter struct {
	out io.Writer
}

// CICommitEntry is one commit line.
type CICommitEntry struct {
	Type        string  `json:"type"`
	Hash        string  `json:"hash"`
	Author      string  `json:"author"`
	CommittedAt string  `json:"committedAt"`
	Subject     string  `json:"subject"`
	Merge       bool    `json:"merge"`
	Files       int     `json:"files"`
	Insertions  int     `json:"insertions"`
	Deletions   int     `json:"deletions"`
	Entropy     float64 `json:"entropy"`
}

// CIFileEntry is one modification line.
type CIFileEntry struct {
	Type                 string `json:"type"`
	Commit               string `json:"commit"`
	Path                 string `json:"path"`
	OldPath              string `json:"oldPath,omitempty"`
	Kind                 string `json:"kind"`
	Added                int    `json:"added"`
	Deleted              int    `json:"deleted"`
	CyclomaticComplexity *int   `json:"cyclomaticComplexity,omitempty"`
}

// CISummary is the last line of CI output.
type CISummary struct {
	Type string `json:"type"`
	Summary
}

// Begin writes nothing; NDJSON has no header.
func (w *CICommitWriter) Begin(Header) error {
	return nil
}

// WriteCommit writes the commit line followed by its file lines.
func (w *CICommitWriter) WriteCommit(rec *CommitRecord) error {
	entry := CICommitEntry{
		Type:        "commit",
		Hash:        rec.Hash,
		Author:      rec.Author,
		CommittedAt: rec.CommittedAt.Format(time.RFC3339),
		Subject:     rec.Subject,
		Merge:       rec.Merge,
	}
	if rec.Stats != nil {
		entry.Files = rec.Stats.Files
		entry.Insertions = rec.Stats.Insertions
		entry.Deletions = rec.Stats.Deletions
		entry.Entropy = rec.Stats.Entropy
	}
	if err := writeNDJSONLine(w.out, entry); err != nil {
		return err
	}

	for _, f := range rec.Files {
		fe := CIFileEntry{
			Type:    "file",
			Commit:  rec.Hash,
			Path:    f.Path,
			OldPath: f.OldPath,
			Kind:    f.Kind,
			Added:   f.Added,
			Deleted: f.Deleted,
		}
		if f.Complexity != nil {
			cc := f.Complexity.CyclomaticComplexity
			fe.CyclomaticComplexity = &cc
		}
		if err := writeNDJSONLine(w.out, fe); err != nil {
			return err
		}
	}
	return nil
}

// End writes the summary line.
func (w *CICommitWriter) End(s Summary) error {
	return writeNDJSONLine(w.out, CISummary{Type: "summary", Summary: s})
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
