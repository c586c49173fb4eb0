package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// ConsoleCommitWriter prints commits the way git log does, with a file table and
// optional colored diffs.
type ConsoleCommitWriter struct {
	out io.Writer
}

var (
	hashColor    = color.New(color.FgYellow)
	refColor     = color.New(color.FgCyan, color.Bold)
	addColor     = color.New(color.FgGreen)
	delColor     = color.New(color.FgRed)
	hunkColor    = color.New(color.FgCyan)
	summaryColor = color.New(color.FgGreen)
)

// Begin prints the report header.
func (w *ConsoleCommitWriter) Begin(h Header) error {
	summaryColor.Fprintln(w.out, "Commit History")
	fmt.Fprintf(w.out, "Repository: %s\n", h.RepoPath)
	if h.Branch != "" {
		fmt.Fprintf(w.out, "Branch: %s\n", h.Branch)
	}
	if label, value := dateRangeLabelAndValue(h.Since, h.Until); label != "" {
		fmt.Fprintf(w.out, "%s: %s\n", label, value)
	}
	_, err := fmt.Fprintln(w.out)
	return err
}

// WriteCommit prints one commit.
func (w *ConsoleCommitWriter) WriteCommit(rec *CommitRecord) error {
	hashColor.Fprintf(w.out, "commit %s", rec.Hash)
	if len(rec.Refs) > 0 {
		fmt.Fprint(w.out, " (")
		refColor.Fprint(w.out, strings.Join(rec.Refs, ", "))
		fmt.Fprint(w.out, ")")
	}
	fmt.Fprintln(w.out)
	if rec.Merge {
		short := make([]string, len(rec.Parents))
		for i, p := range rec.Parents {
			short[i] = shortHash(p)
		}
		fmt.Fprintf(w.out, "Merge: %s\n", strings.Join(short, " "))
	}
	fmt.Fprintf(w.out, "Author: %s <%s>\n", rec.Author, rec.AuthorEmail)
	fmt.Fprintf(w.out, "Date:   %s\n\n", rec.AuthoredAt.Format(gitDateLayout))
	for _, line := range strings.Split(strings.TrimRight(rec.Message, "\n"), "\n") {
		fmt.Fprintf(w.out, "    %s\n", line)
	}

	if len(rec.Files) > 0 {
		fmt.Fprintln(w.out)
		tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
		for _, f := range rec.Files {
			path := f.Path
			if f.OldPath != "" {
				path = f.OldPath + " -> " + f.Path
			}
			churn := fmt.Sprintf("+%d -%d", f.Added, f.Deleted)
			if f.Binary {
				churn = "binary"
			}
			cc := ""
			if f.Complexity != nil {
				cc = fmt.Sprintf("cc=%d", f.Complexity.CyclomaticComplexity)
				if f.ComplexityDelta != nil {
					cc += fmt.Sprintf(" (%+d)", *f.ComplexityDelta)
				}
			}
			fmt.Fprintf(tw, " %s\t%s\t%s\t%s\n", kindSymbol(f.Kind), path, churn, cc)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if rec.Stats != nil {
			fmt.Fprintf(w.out, " %d files changed, %d insertions(+), %d deletions(-), entropy %.2f\n",
				rec.Stats.Files, rec.Stats.Insertions, rec.Stats.Deletions, rec.Stats.Entropy)
		}
	}

	for _, f := range rec.Files {
		if f.Diff == "" {
			continue
		}
		fmt.Fprintf(w.out, "\n--- %s\n+++ %s\n", orDevNull(f.OldPath, f.Path, f.Kind != "added"), orDevNull(f.Path, f.Path, f.Kind != "deleted"))
		writeDiff(w.out, f.Diff)
	}
	_, err := fmt.Fprintln(w.out)
	return err
}

// End prints totals.
func (w *ConsoleCommitWriter) End(s Summary) error {
	summaryColor.Fprintf(w.out, "%s commits (%s merges) by %s authors",
		humanize.Comma(int64(s.Commits)), humanize.Comma(int64(s.Merges)), humanize.Comma(int64(s.Authors)))
	if s.Files > 0 {
		fmt.Fprintf(w.out, ", %s file changes, +%s -%s",
			humanize.Comma(int64(s.Files)), humanize.Comma(int64(s.Insertions)), humanize.Comma(int64(s.Deletions)))
	}
	_, err := fmt.Fprintln(w.out)
	return err
}

func orDevNull(preferred, fallback string, exists bool) string {
	if !exists {
		return "/dev/null"
	}
	if preferred != "" {
		return preferred
	}
	return fallback
}

func writeDiff(out io.Writer, unified string) {
	for _, line := range strings.SplitAfter(unified, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "@@"):
			hunkColor.Fprint(out, line)
		case line[0] == '+':
			addColor.Fprint(out, line)
		case line[0] == '-':
			delColor.Fprint(out, line)
		default:
			fmt.Fprint(out, line)
		}
	}
}
