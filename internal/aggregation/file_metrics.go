package aggregation

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/masmgr/repominer/internal/diff"
	"github.com/masmgr/repominer/internal/miner"
)

// MinorContributorShare is the share of a file's changed lines below which a
// contributor counts as minor.
const MinorContributorShare = 0.05

// FileMetrics holds process metrics for a single file.
type FileMetrics struct {
	Path                    string
	CommitCount             int
	AddedLines              int
	DeletedLines            int
	MaxChurn                int // Largest added+deleted of a single commit
	Hunks                   int
	FixCommits              int
	FirstSeenAt             time.Time
	LastModifiedAt          time.Time
	Contributors            map[string]struct{}
	ContributorCommitCounts map[string]int
	ContributorLines        map[string]int
	CommitTimes             []time.Time
	BurstScore              float64 // Set by burst.Calculator
}

// NewFileMetrics creates a new FileMetrics instance.
func NewFileMetrics(path string) *FileMetrics {
	return &FileMetrics{
		Path:                    path,
		Contributors:            make(map[string]struct{}),
		ContributorCommitCounts: make(map[string]int),
		ContributorLines:        make(map[string]int),
	}
}

// ChurnTotal returns total lines changed (added + deleted).
func (f *FileMetrics) ChurnTotal() int {
	return f.AddedLines + f.DeletedLines
}

// AverageChurn returns the mean lines changed per commit.
func (f *FileMetrics) AverageChurn() float64 {
	if f.CommitCount == 0 {
		return 0
	}
	return float64(f.ChurnTotal()) / float64(f.CommitCount)
}

// ContributorCount returns number of unique contributors.
func (f *FileMetrics) ContributorCount() int {
	return len(f.Contributors)
}

// OwnershipRatio returns proportion of commits by top contributor.
// A high ratio means concentrated ownership (one person owns the file).
// A low ratio means dispersed ownership (many people contribute).
func (f *FileMetrics) OwnershipRatio() float64 {
	if f.CommitCount == 0 || len(f.ContributorCommitCounts) == 0 {
		return 1.0
	}

	maxCommits := 0
	for _, count := range f.ContributorCommitCounts {
		if count > maxCommits {
			maxCommits = count
		}
	}

	return float64(maxCommits) / float64(f.CommitCount)
}

// TopContributorShare returns the share of changed lines written by the
// contributor who changed the most lines.
func (f *FileMetrics) TopContributorShare() float64 {
	total := f.ChurnTotal()
	if total == 0 {
		return 1.0
	}
	maxLines := 0
	for _, lines := range f.ContributorLines {
		if lines > maxLines {
			maxLines = lines
		}
	}
	return float64(maxLines) / float64(total)
}

// FixRatio returns the share of commits classified as bug fixes.
func (f *FileMetrics) FixRatio() float64 {
	if f.CommitCount == 0 {
		return 0
	}
	return float64(f.FixCommits) / float64(f.CommitCount)
}

// MinorContributors counts contributors whose share of changed lines is below
// MinorContributorShare.
func (f *FileMetrics) MinorContributors() int {
	total := f.ChurnTotal()
	if total == 0 {
		return 0
	}
	n := 0
	for _, lines := range f.ContributorLines {
		if float64(lines)/float64(total) < MinorContributorShare {
			n++
		}
	}
	return n
}

// Change is one modification's contribution to a file.
type Change struct {
	Author  string
	When    time.Time
	Added   int
	Deleted int
	Hunks   int
	Fix     bool
}

// AddChange adds a commit's contribution to this file's metrics.
func (f *FileMetrics) AddChange(ch Change) {
	f.CommitCount++
	f.AddedLines += ch.Added
	f.DeletedLines += ch.Deleted
	f.Hunks += ch.Hunks
	if ch.Fix {
		f.FixCommits++
	}
	f.CommitTimes = append(f.CommitTimes, ch.When)
	if churn := ch.Added + ch.Deleted; churn > f.MaxChurn {
		f.MaxChurn = churn
	}

	if f.LastModifiedAt.IsZero() || ch.When.After(f.LastModifiedAt) {
		f.LastModifiedAt = ch.When
	}
	if f.FirstSeenAt.IsZero() || ch.When.Before(f.FirstSeenAt) {
		f.FirstSeenAt = ch.When
	}

	contributorKey := strings.ToLower(ch.Author)
	f.Contributors[contributorKey] = struct{}{}
	f.ContributorCommitCounts[contributorKey]++
	f.ContributorLines[contributorKey] += ch.Added + ch.Deleted
}

// FixClassifier decides whether a commit is a bug fix.
type FixClassifier interface {
	IsFixCommit(c *miner.Commit) bool
}

// FileMetricsAggregator accumulates file metrics over commits. Commits must be
// added parents first for renames to carry a file's history to its new path.
type FileMetricsAggregator struct {
	metrics map[string]*FileMetrics
	commits int
	fixes   FixClassifier
}

// NewFileMetricsAggregator creates a new aggregator.
func NewFileMetricsAggregator() *FileMetricsAggregator {
	return &FileMetricsAggregator{
		metrics: make(map[string]*FileMetrics),
	}
}

// SetFixClassifier enables counting of bug-fix commits per file.
func (a *FileMetricsAggregator) SetFixClassifier(fc FixClassifier) {
	a.fixes = fc
}

// Process drains a traversal into the aggregator.
func (a *FileMetricsAggregator) Process(ctx context.Context, tr *miner.Traversal) (map[string]*FileMetrics, error) {
	err := tr.ForEach(ctx, func(c *miner.Commit) error {
		return a.AddCommit(ctx, c)
	})
	return a.metrics, err
}

// AddCommit adds the modifications of one commit.
func (a *FileMetricsAggregator) AddCommit(ctx context.Context, c *miner.Commit) error {
	mods, err := c.Modifications(ctx)
	if err != nil {
		return err
	}
	a.commits++
	fix := a.fixes != nil && a.fixes.IsFixCommit(c)

	for _, m := range mods {
		// Deleted files don't exist anymore
		if m.Kind == miner.ChangeKindDeleted {
			delete(a.metrics, m.OldPath)
			continue
		}

		path := m.NewPath

		// Handle renames: if there was an old path, merge its metrics
		if m.Kind == miner.ChangeKindRenamed && m.OldPath != "" {
			if oldMetrics, exists := a.metrics[m.OldPath]; exists {
				if _, newExists := a.metrics[path]; !newExists {
					a.metrics[path] = NewFileMetrics(path)
				}
				a.mergeMetrics(a.metrics[path], oldMetrics)
				delete(a.metrics, m.OldPath)
			}
		}

		added, deleted, err := m.LineStats(ctx)
		if err != nil {
			return err
		}
		unified, err := m.Diff(ctx)
		if err != nil {
			return err
		}

		if _, exists := a.metrics[path]; !exists {
			a.metrics[path] = NewFileMetrics(path)
		}
		a.metrics[path].AddChange(Change{
			Author:  c.Author.ContributorKey(),
			When:    c.Committer.When,
			Added:   added,
			Deleted: deleted,
			Hunks:   diff.Hunks(unified),
			Fix:     fix,
		})
	}
	return nil
}

// mergeMetrics merges source metrics into target.
func (a *FileMetricsAggregator) mergeMetrics(target, source *FileMetrics) {
	target.CommitCount += source.CommitCount
	target.AddedLines += source.AddedLines
	target.DeletedLines += source.DeletedLines
	target.Hunks += source.Hunks
	target.FixCommits += source.FixCommits
	target.CommitTimes = append(target.CommitTimes, source.CommitTimes...)
	sort.Slice(target.CommitTimes, func(i, j int) bool {
		return target.CommitTimes[i].Before(target.CommitTimes[j])
	})
	if source.MaxChurn > target.MaxChurn {
		target.MaxChurn = source.MaxChurn
	}

	if source.LastModifiedAt.After(target.LastModifiedAt) {
		target.LastModifiedAt = source.LastModifiedAt
	}
	if !source.FirstSeenAt.IsZero() && (target.FirstSeenAt.IsZero() || source.FirstSeenAt.Before(target.FirstSeenAt)) {
		target.FirstSeenAt = source.FirstSeenAt
	}

	for k := range source.Contributors {
		target.Contributors[k] = struct{}{}
	}
	for k, v := range source.ContributorCommitCounts {
		target.ContributorCommitCounts[k] += v
	}
	for k, v := range source.ContributorLines {
		target.ContributorLines[k] += v
	}
}

// GetMetrics returns the aggregated metrics.
func (a *FileMetricsAggregator) GetMetrics() map[string]*FileMetrics {
	return a.metrics
}

// Commits returns how many commits were added.
func (a *FileMetricsAggregator) Commits() int {
	return a.commits
}

// Ranked orders metrics by commit count, then churn, then path, and keeps the
// first top entries (all when top <= 0).
func Ranked(metrics map[string]*FileMetrics, top int) []*FileMetrics {
	out := make([]*FileMetrics, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CommitCount != out[j].CommitCount {
			return out[i].CommitCount > out[j].CommitCount
		}
		if out[i].ChurnTotal() != out[j].ChurnTotal() {
			return out[i].ChurnTotal() > out[j].ChurnTotal()
		}
		return out[i].Path < out[j].Path
	})
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}
