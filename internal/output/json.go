package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// JSONCommitWriter writes one JSON document whose commits array is streamed
// element by element.
type JSONCommitWriter struct {
	out   io.Writer
	count int
}

// JSONHeader is the leading part of the JSON document.
type JSONHeader struct {
	RepoPath    string  `json:"repo"`
	Branch      string  `json:"branch,omitempty"`
	Order       string  `json:"order,omitempty"`
	Since       *string `json:"since,omitempty"`
	Until       *string `json:"until,omitempty"`
	GeneratedAt string  `json:"generatedAt"`
}

// JSONReport is the complete document, as read back by consumers.
type JSONReport struct {
	JSONHeader
	Commits []CommitRecord `json:"commits"`
	Summary Summary        `json:"summary"`
}

// Begin writes the header fields and opens the commits array.
func (w *JSONCommitWriter) Begin(h Header) error {
	data, err := json.Marshal(JSONHeader{
		RepoPath:    h.RepoPath,
		Branch:      h.Branch,
		Order:       h.Order,
		Since:       formatDate(h.Since),
		Until:       formatDate(h.Until),
		GeneratedAt: h.GeneratedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	// Reopen the header object so the array and summary become its members.
	if _, err := w.out.Write(data[:len(data)-1]); err != nil {
		return err
	}
	_, err = io.WriteString(w.out, `,"commits":[`)
	return err
}

// WriteCommit appends one element to the commits array.
func (w *JSONCommitWriter) WriteCommit(rec *CommitRecord) error {
	data, err := json.MarshalIndent(rec, "  ", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	sep := "\n  "
	if w.count > 0 {
		sep = ",\n  "
	}
	w.count++
	if _, err := io.WriteString(w.out, sep); err != nil {
		return err
	}
	_, err = w.out.Write(data)
	return err
}

// End closes the array and writes the summary.
func (w *JSONCommitWriter) End(s Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintf(w.out, "\n],\"summary\":%s}\n", data)
	return err
}
