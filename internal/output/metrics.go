package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/masmgr/repominer/internal/aggregation"
	"github.com/masmgr/repominer/internal/coupling"
)

// FileMetricsRow is the serializable view of one file's process metrics.
type FileMetricsRow struct {
	Path              string    `json:"path"`
	Commits           int       `json:"commits"`
	Added             int       `json:"added"`
	Deleted           int       `json:"deleted"`
	MaxChurn          int       `json:"maxChurn"`
	AverageChurn      float64   `json:"averageChurn"`
	Hunks             int       `json:"hunks"`
	FixCommits        int       `json:"fixCommits"`
	Burst             float64   `json:"burst"`
	Contributors      int       `json:"contributors"`
	MinorContributors int       `json:"minorContributors"`
	Ownership         float64   `json:"ownership"`
	TopContributor    float64   `json:"topContributorShare"`
	FirstSeenAt       time.Time `json:"firstSeenAt"`
	LastModifiedAt    time.Time `json:"lastModifiedAt"`
}

// NewFileMetricsRow copies the derived values out of m.
func NewFileMetricsRow(m *aggregation.FileMetrics) FileMetricsRow {
	return FileMetricsRow{
		Path:              m.Path,
		Commits:           m.CommitCount,
		Added:             m.AddedLines,
		Deleted:           m.DeletedLines,
		MaxChurn:          m.MaxChurn,
		AverageChurn:      m.AverageChurn(),
		Hunks:             m.Hunks,
		FixCommits:        m.FixCommits,
		Burst:             m.BurstScore,
		Contributors:      m.ContributorCount(),
		MinorContributors: m.MinorContributors(),
		Ownership:         m.OwnershipRatio(),
		TopContributor:    m.TopContributorShare(),
		FirstSeenAt:       m.FirstSeenAt,
		LastModifiedAt:    m.LastModifiedAt,
	}
}

// MetricsReport holds process metrics for the files of a traversal window.
type MetricsReport struct {
	Header    Header
	Commits   int
	Files     []FileMetricsRow
	Couplings []coupling.ChangeCoupling
}

// MetricsReportWriter writes a complete metrics report.
type MetricsReportWriter interface {
	Write(report *MetricsReport, out io.Writer) error
}

// NewMetricsReportWriter creates a metrics writer for the specified format.
func NewMetricsReportWriter(format OutputFormat) MetricsReportWriter {
	switch format {
	case FormatJSON:
		return jsonMetricsWriter{}
	case FormatCSV:
		return csvMetricsWriter{}
	case FormatMarkdown:
		return markdownMetricsWriter{}
	case FormatCI:
		return ciMetricsWriter{}
	default:
		return consoleMetricsWriter{}
	}
}

type consoleMetricsWriter struct{}

func (consoleMetricsWriter) Write(r *MetricsReport, out io.Writer) error {
	summaryColor.Fprintln(out, "File Metrics")
	fmt.Fprintf(out, "Repository: %s\n", r.Header.RepoPath)
	if label, value := dateRangeLabelAndValue(r.Header.Since, r.Header.Until); label != "" {
		fmt.Fprintf(out, "%s: %s\n", label, value)
	}
	fmt.Fprintf(out, "Commits: %s\n\n", humanize.Comma(int64(r.Commits)))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPath\tCommits\tFixes\tChurn\tHunks\tBurst\tAuthors\tOwnership\tLast Modified")
	for i, f := range r.Files {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t+%d -%d\t%d\t%.2f\t%d\t%.0f%%\t%s\n",
			i+1, f.Path, f.Commits, f.FixCommits, f.Added, f.Deleted, f.Hunks, f.Burst, f.Contributors,
			f.Ownership*100, humanize.Time(f.LastModifiedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Couplings) > 0 {
		fmt.Fprintln(out)
		summaryColor.Fprintln(out, "Change Coupling")
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tFile A\tFile B\tCo-commits\tJaccard\tConfidence\tLift")
		for i, c := range r.Couplings {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.2f\t%.2f\t%.2f\n",
				i+1, c.FileA, c.FileB, c.CoCommitCount, c.JaccardCoefficient, c.Confidence, c.Lift)
		}
		return tw.Flush()
	}
	return nil
}

// JSONMetricsReport is the JSON document written for a metrics report.
type JSONMetricsReport struct {
	JSONHeader
	Commits   int                       `json:"commits"`
	Files     []FileMetricsRow          `json:"files"`
	Couplings []coupling.ChangeCoupling `json:"couplings,omitempty"`
}

type jsonMetricsWriter struct{}

func (jsonMetricsWriter) Write(r *MetricsReport, out io.Writer) error {
	doc := JSONMetricsReport{
		JSONHeader: JSONHeader{
			RepoPath:    r.Header.RepoPath,
			Branch:      r.Header.Branch,
			Order:       r.Header.Order,
			Since:       formatDate(r.Header.Since),
			Until:       formatDate(r.Header.Until),
			GeneratedAt: r.Header.GeneratedAt.Format(time.RFC3339),
		},
		Commits:   r.Commits,
		Files:     r.Files,
		Couplings: r.Couplings,
	}
	if doc.Files == nil {
		doc.Files = []FileMetricsRow{}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

var metricsCSVHeaders = []string{
	"Path", "Commits", "Added", "Deleted", "MaxChurn", "AverageChurn", "Hunks", "FixCommits", "Burst",
	"Contributors", "MinorContributors", "Ownership", "TopContributorShare", "FirstSeenAt", "LastModifiedAt",
}

// csvMetricsWriter writes the file table only; couplings need a second table.
type csvMetricsWriter struct{}

func (csvMetricsWriter) Write(r *MetricsReport, out io.Writer) error {
	w := csv.NewWriter(out)
	if err := w.Write(metricsCSVHeaders); err != nil {
		return err
	}
	for _, f := range r.Files {
		row := []string{
			f.Path,
			strconv.Itoa(f.Commits),
			strconv.Itoa(f.Added),
			strconv.Itoa(f.Deleted),
			strconv.Itoa(f.MaxChurn),
			strconv.FormatFloat(f.AverageChurn, 'f', 2, 64),
			strconv.Itoa(f.Hunks),
			strconv.Itoa(f.FixCommits),
			strconv.FormatFloat(f.Burst, 'f', 4, 64),
			strconv.Itoa(f.Contributors),
			strconv.Itoa(f.MinorContributors),
			strconv.FormatFloat(f.Ownership, 'f', 4, 64),
			strconv.FormatFloat(f.TopContributor, 'f', 4, 64),
			f.FirstSeenAt.Format(reportDateTimeLayout),
			f.LastModifiedAt.Format(reportDateTimeLayout),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type markdownMetricsWriter struct{}

func (markdownMetricsWriter) Write(r *MetricsReport, out io.Writer) error {
	fmt.Fprintln(out, "# File Metrics")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "**Repository:** %s\n\n", r.Header.RepoPath)
	if label, value := dateRangeLabelAndValue(r.Header.Since, r.Header.Until); label != "" {
		fmt.Fprintf(out, "**%s:** %s\n\n", label, value)
	}
	fmt.Fprintf(out, "**Commits:** %s\n\n", humanize.Comma(int64(r.Commits)))
	fmt.Fprintln(out, "| # | Path | Commits | Fixes | Churn | Hunks | Burst | Authors | Ownership |")
	fmt.Fprintln(out, "|---|------|---------|-------|-------|-------|-------|---------|-----------|")
	for i, f := range r.Files {
		fmt.Fprintf(out, "| %d | `%s` | %d | %d | +%d / -%d | %d | %.2f | %d | %.0f%% |\n",
			i+1, escapeMarkdown(f.Path), f.Commits, f.FixCommits, f.Added, f.Deleted, f.Hunks, f.Burst,
			f.Contributors, f.Ownership*100)
	}

	if len(r.Couplings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "## Change Coupling")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "| # | File A | File B | Co-commits | Jaccard | Confidence | Lift |")
		fmt.Fprintln(out, "|---|--------|--------|------------|---------|------------|------|")
		for i, c := range r.Couplings {
			fmt.Fprintf(out, "| %d | `%s` | `%s` | %d | %.2f | %.2f | %.2f |\n",
				i+1, escapeMarkdown(c.FileA), escapeMarkdown(c.FileB), c.CoCommitCount,
				c.JaccardCoefficient, c.Confidence, c.Lift)
		}
	}
	return nil
}

// CIMetricsFileEntry is one file line of CI metrics output.
type CIMetricsFileEntry struct {
	Type string `json:"type"`
	FileMetricsRow
}

// CICouplingEntry is one coupling line of CI metrics output.
type CICouplingEntry struct {
	Type string `json:"type"`
	coupling.ChangeCoupling
}

type ciMetricsWriter struct{}

func (ciMetricsWriter) Write(r *MetricsReport, out io.Writer) error {
	for _, f := range r.Files {
		if err := writeNDJSONLine(out, CIMetricsFileEntry{Type: "file", FileMetricsRow: f}); err != nil {
			return err
		}
	}
	for _, c := range r.Couplings {
		if err := writeNDJSONLine(out, CICouplingEntry{Type: "coupling", ChangeCoupling: c}); err != nil {
			return err
		}
	}
	return writeNDJSONLine(out, struct {
		Type    string `json:"type"`
		Commits int    `json:"commits"`
		Files   int    `json:"files"`
	}{Type: "summary", Commits: r.Commits, Files: len(r.Files)})
}
