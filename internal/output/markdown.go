package output

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// MarkdownCommitWriter writes a commit table in Markdown.
type MarkdownCommitWriter struct {
	out   io.Writer
	count int
}

// Begin writes the title and table header.
func (w *MarkdownCommitWriter) Begin(h Header) error {
	fmt.Fprintln(w.out, "# Commit History")
	fmt.Fprintln(w.out)
	fmt.Fprintf(w.out, "**Repository:** %s\n\n", h.RepoPath)
	if h.Branch != "" {
		fmt.Fprintf(w.out, "**Branch:** %s\n\n", h.Branch)
	}
	if label, value := dateRangeLabelAndValue(h.Since, h.Until); label != "" {
		fmt.Fprintf(w.out, "**%s:** %s\n\n", label, value)
	}
	fmt.Fprintln(w.out, "| # | Commit | Date | Author | Files | Churn | Entropy | Subject |")
	_, err := fmt.Fprintln(w.out, "|---|--------|------|--------|-------|-------|---------|---------|")
	return err
}

// WriteCommit writes one table row.
func (w *MarkdownCommitWriter) WriteCommit(rec *CommitRecord) error {
	w.count++
	files, churn, entropy := "-", "-", "-"
	if rec.Stats != nil {
		files = fmt.Sprintf("%d", rec.Stats.Files)
		churn = fmt.Sprintf("+%d / -%d", rec.Stats.Insertions, rec.Stats.Deletions)
		entropy = fmt.Sprintf("%.2f", rec.Stats.Entropy)
	}
	subject := truncateMessage(rec.Subject, 60)
	if rec.Merge {
		subject = "(merge) " + subject
	}
	_, err := fmt.Fprintf(w.out, "| %d | `%s` | %s | %s | %s | %s | %s | %s |\n",
		w.count, shortHash(rec.Hash), rec.CommittedAt.Format(reportDateLayout),
		escapeMarkdown(rec.Author), files, churn, entropy, escapeMarkdown(subject))
	return err
}

// End writes the totals below the table.
func (w *MarkdownCommitWriter) End(s Summary) error {
	fmt.Fprintln(w.out)
	fmt.Fprintf(w.out, "**Total Commits:** %s (%s merges, %s authors)\n",
		humanize.Comma(int64(s.Commits)), humanize.Comma(int64(s.Merges)), humanize.Comma(int64(s.Authors)))
	if s.Files > 0 {
		fmt.Fprintln(w.out)
		fmt.Fprintf(w.out, "**Total Churn:** +%s / -%s over %s file changes\n",
			humanize.Comma(int64(s.Insertions)), humanize.Comma(int64(s.Deletions)), humanize.Comma(int64(s.Files)))
	}
	return nil
}
