package aggregation

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/masmgr/repominer/internal/git"
	"github.com/masmgr/repominer/internal/miner"
)

func TestNewFileMetrics(t *testing.T) {
	fm := NewFileMetrics("test/file.go")

	if fm.Path != "test/file.go" {
		t.Errorf("Path = %q, expected %q", fm.Path, "test/file.go")
	}
	if fm.CommitCount != 0 || fm.ChurnTotal() != 0 {
		t.Errorf("new metrics not empty: %+v", fm)
	}
	if fm.Contributors == nil || fm.ContributorCommitCounts == nil || fm.ContributorLines == nil {
		t.Error("contributor maps should be initialized")
	}
}

func TestFileMetrics_AddChange(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fm := NewFileMetrics("test.go")

	fm.AddChange(Change{Author: "Alice@Example.com", When: t0.Add(time.Hour), Added: 10, Deleted: 5, Hunks: 2})
	fm.AddChange(Change{Author: "bob@example.com", When: t0, Added: 3, Deleted: 2, Hunks: 1})
	fm.AddChange(Change{Author: "alice@example.com", When: t0.Add(2 * time.Hour), Added: 1})

	if fm.CommitCount != 3 {
		t.Errorf("CommitCount = %d, expected 3", fm.CommitCount)
	}
	if fm.AddedLines != 14 || fm.DeletedLines != 7 || fm.ChurnTotal() != 21 {
		t.Errorf("lines = +%d -%d", fm.AddedLines, fm.DeletedLines)
	}
	if fm.MaxChurn != 15 {
		t.Errorf("MaxChurn = %d, expected 15", fm.MaxChurn)
	}
	if fm.Hunks != 3 {
		t.Errorf("Hunks = %d, expected 3", fm.Hunks)
	}
	if !fm.FirstSeenAt.Equal(t0) || !fm.LastModifiedAt.Equal(t0.Add(2*time.Hour)) {
		t.Errorf("seen %v .. %v", fm.FirstSeenAt, fm.LastModifiedAt)
	}
	if fm.ContributorCount() != 2 {
		t.Errorf("ContributorCount() = %d, expected 2 (emails are case-insensitive)", fm.ContributorCount())
	}
	if got := fm.ContributorCommitCounts["alice@example.com"]; got != 2 {
		t.Errorf("alice commits = %d, expected 2", got)
	}
	if got := fm.AverageChurn(); got != 7 {
		t.Errorf("AverageChurn() = %f, expected 7", got)
	}
}

func TestFileMetrics_OwnershipRatio(t *testing.T) {
	tests := []struct {
		name     string
		counts   map[string]int
		expected float64
	}{
		{name: "No commits", counts: map[string]int{}, expected: 1.0},
		{name: "Single contributor", counts: map[string]int{"a": 5}, expected: 1.0},
		{name: "Even split", counts: map[string]int{"a": 2, "b": 2}, expected: 0.5},
		{name: "Dominant", counts: map[string]int{"a": 3, "b": 1}, expected: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := NewFileMetrics("test.go")
			for k, v := range tt.counts {
				fm.ContributorCommitCounts[k] = v
				fm.CommitCount += v
			}
			if got := fm.OwnershipRatio(); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("OwnershipRatio() = %f, expected %f", got, tt.expected)
			}
		})
	}
}

func TestFileMetrics_LineShares(t *testing.T) {
	fm := NewFileMetrics("test.go")
	fm.AddChange(Change{Author: "a", Added: 90})
	fm.AddChange(Change{Author: "b", Added: 7})
	fm.AddChange(Change{Author: "c", Deleted: 3})

	if got := fm.TopContributorShare(); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("TopContributorShare() = %f, expected 0.9", got)
	}
	if got := fm.MinorContributors(); got != 1 {
		t.Errorf("MinorContributors() = %d, expected 1", got)
	}

	empty := NewFileMetrics("empty.go")
	if empty.TopContributorShare() != 1.0 || empty.MinorContributors() != 0 {
		t.Error("empty metrics should report full ownership and no minor contributors")
	}
}

// renameHistory: old.go is edited, renamed to new.go and edited again; gone.go is deleted.
func renameHistory(t *testing.T) *git.MockAccessor {
	t.Helper()
	acc := git.NewMockAccessor()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sig := func(email string, h int) git.Signature {
		return git.Signature{Name: email, Email: email, When: t0.Add(time.Duration(h) * time.Hour)}
	}

	c1 := acc.AddCommit(git.MockCommit{
		Author: sig("alice@example.com", 0), Committer: sig("alice@example.com", 0), Message: "init",
		Files: map[string]string{"old.go": "a\nb\n", "keep.go": "k\n", "gone.go": "g\n"},
	})
	c2 := acc.AddCommit(git.MockCommit{
		Parents: []git.Hash{c1}, Author: sig("bob@example.com", 1), Committer: sig("bob@example.com", 1), Message: "edit",
		Files: map[string]string{"old.go": "a\nB\n", "keep.go": "k\nk2\n", "gone.go": "g\n"},
	})
	c3 := acc.AddCommit(git.MockCommit{
		Parents: []git.Hash{c2}, Author: sig("alice@example.com", 2), Committer: sig("alice@example.com", 2), Message: "rename",
		Files: map[string]string{"new.go": "a\nB\n", "keep.go": "k\nk2\n"},
	})
	c4 := acc.AddCommit(git.MockCommit{
		Parents: []git.Hash{c3}, Author: sig("bob@example.com", 3), Committer: sig("bob@example.com", 3), Message: "extend",
		Files: map[string]string{"new.go": "a\nB\nc\n", "keep.go": "k\nk2\n"},
	})
	acc.SetBranch("main", c4)
	return acc
}

func TestFileMetricsAggregator_Process(t *testing.T) {
	ctx := context.Background()
	acc := renameHistory(t)
	tr, err := miner.Traverse(ctx, acc, miner.Window{Order: miner.OldestFirst}, miner.Options{})
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	agg := NewFileMetricsAggregator()
	metrics, err := agg.Process(ctx, tr)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if agg.Commits() != 4 {
		t.Errorf("Commits() = %d, expected 4", agg.Commits())
	}
	if len(metrics) != 2 {
		t.Fatalf("got %d files, expected 2 (old.go merged, gone.go deleted): %v", len(metrics), metrics)
	}
	if _, ok := metrics["gone.go"]; ok {
		t.Error("deleted file should be dropped")
	}
	if _, ok := metrics["old.go"]; ok {
		t.Error("renamed file should be tracked under its new path")
	}

	renamed := metrics["new.go"]
	if renamed == nil {
		t.Fatal("new.go missing")
	}
	if renamed.CommitCount != 4 {
		t.Errorf("new.go CommitCount = %d, expected 4", renamed.CommitCount)
	}
	if renamed.AddedLines != 4 || renamed.DeletedLines != 1 {
		t.Errorf("new.go lines = +%d -%d, expected +4 -1", renamed.AddedLines, renamed.DeletedLines)
	}
	if renamed.Hunks != 3 {
		t.Errorf("new.go Hunks = %d, expected 3", renamed.Hunks)
	}
	if renamed.ContributorCount() != 2 {
		t.Errorf("new.go ContributorCount() = %d, expected 2", renamed.ContributorCount())
	}
	if got := renamed.TopContributorShare(); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("new.go TopContributorShare() = %f, expected 0.6", got)
	}

	if keep := metrics["keep.go"]; keep == nil || keep.CommitCount != 2 || keep.AddedLines != 2 {
		t.Errorf("keep.go = %+v", keep)
	}

	ranked := Ranked(metrics, 1)
	if len(ranked) != 1 || ranked[0].Path != "new.go" {
		t.Errorf("Ranked(top 1) = %v", ranked)
	}
}

func TestRanked_TieBreaks(t *testing.T) {
	metrics := map[string]*FileMetrics{
		"b.go": {Path: "b.go", CommitCount: 2, AddedLines: 5},
		"a.go": {Path: "a.go", CommitCount: 2, AddedLines: 5},
		"c.go": {Path: "c.go", CommitCount: 2, AddedLines: 9},
		"d.go": {Path: "d.go", CommitCount: 3},
	}
	got := Ranked(metrics, 0)
	want := []string{"d.go", "c.go", "a.go", "b.go"}
	for i, m := range got {
		if m.Path != want[i] {
			t.Fatalf("Ranked order = %v at %d, expected %v", m.Path, i, want)
		}
	}
}

type subjectFixes map[string]bool

func (s subjectFixes) IsFixCommit(c *miner.Commit) bool { return s[c.Subject()] }

func TestFileMetricsAggregator_FixCommits(t *testing.T) {
	ctx := context.Background()
	tr, err := miner.Traverse(ctx, renameHistory(t), miner.Window{Order: miner.OldestFirst}, miner.Options{})
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	agg := NewFileMetricsAggregator()
	agg.SetFixClassifier(subjectFixes{"edit": true, "extend": true})
	metrics, err := agg.Process(ctx, tr)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	renamed := metrics["new.go"]
	if renamed.FixCommits != 2 {
		t.Errorf("new.go FixCommits = %d, expected 2 (one before the rename)", renamed.FixCommits)
	}
	if got := renamed.FixRatio(); got != 0.5 {
		t.Errorf("new.go FixRatio() = %f, expected 0.5", got)
	}
	if len(renamed.CommitTimes) != 4 {
		t.Fatalf("new.go CommitTimes = %v, expected 4 entries", renamed.CommitTimes)
	}
	for i := 1; i < len(renamed.CommitTimes); i++ {
		if renamed.CommitTimes[i].Before(renamed.CommitTimes[i-1]) {
			t.Errorf("CommitTimes not ascending: %v", renamed.CommitTimes)
		}
	}
	if keep := metrics["keep.go"]; keep.FixCommits != 1 {
		t.Errorf("keep.go FixCommits = %d, expected 1", keep.FixCommits)
	}
}
