package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSVCommitWriter writes one row per modification, repeating the commit columns.
// Commits without modification data get a single row with empty file columns.
type CSVCommitWriter struct {
	writer *csv.Writer
}

// NewCSVCommitWriter creates a CSV writer on out.
func NewCSVCommitWriter(out io.Writer) *CSVCommitWriter {
	return &CSVCommitWriter{writer: csv.NewWriter(out)}
}

var csvHeaders = []string{
	"Hash", "Author", "AuthorEmail", "CommittedAt", "Merge", "Subject",
	"Files", "Insertions", "Deletions", "Entropy",
	"Path", "OldPath", "Kind", "Added", "Deleted", "Binary", "CyclomaticComplexity",
}

// Begin writes the header row.
func (w *CSVCommitWriter) Begin(Header) error {
	return w.writer.Write(csvHeaders)
}

// WriteCommit writes the rows of one commit and flushes them.
func (w *CSVCommitWriter) WriteCommit(rec *CommitRecord) error {
	base := []string{
		rec.Hash,
		rec.Author,
		rec.AuthorEmail,
		rec.CommittedAt.Format(reportDateTimeLayout),
		strconv.FormatBool(rec.Merge),
		rec.Subject,
	}
	if rec.Stats != nil {
		base = append(base,
			strconv.Itoa(rec.Stats.Files),
			strconv.Itoa(rec.Stats.Insertions),
			strconv.Itoa(rec.Stats.Deletions),
			fmt.Sprintf("%.6f", rec.Stats.Entropy),
		)
	} else {
		base = append(base, "", "", "", "")
	}

	if len(rec.Files) == 0 {
		if err := w.writer.Write(append(base, "", "", "", "", "", "", "")); err != nil {
			return err
		}
	}
	for _, f := range rec.Files {
		cc := ""
		if f.Complexity != nil {
			cc = strconv.Itoa(f.Complexity.CyclomaticComplexity)
		}
		row := append(append([]string{}, base...),
			f.Path,
			f.OldPath,
			f.Kind,
			strconv.Itoa(f.Added),
			strconv.Itoa(f.Deleted),
			strconv.FormatBool(f.Binary),
			cc,
		)
		if err := w.writer.Write(row); err != nil {
			return err
		}
	}
	w.writer.Flush()
	return w.writer.Error()
}

// End flushes any buffered rows.
func (w *CSVCommitWriter) End(Summary) error {
	w.writer.Flush()
	return w.writer.Error()
}
