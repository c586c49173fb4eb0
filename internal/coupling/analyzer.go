// Package coupling finds files that tend to change in the same commits.
package coupling

import (
	"context"
	"slices"
	"sort"

	"github.com/masmgr/repominer/config"
	"github.com/masmgr/repominer/internal/miner"
)

// FilePair is an unordered pair of paths, stored with FileA < FileB.
type FilePair struct {
	FileA string
	FileB string
}

// NewFilePair orders a and b. Paths compare byte-wise, as git does.
func NewFilePair(a, b string) FilePair {
	if a > b {
		a, b = b, a
	}
	return FilePair{FileA: a, FileB: b}
}

// ChangeCoupling represents the coupling metrics between two files.
type ChangeCoupling struct {
	FileA              string  `json:"fileA"`
	FileB              string  `json:"fileB"`
	CoCommitCount      int     `json:"coCommitCount"`    // Number of times both files were changed together
	FileACommitCount   int     `json:"fileACommitCount"` // Total commits touching FileA
	FileBCommitCount   int     `json:"fileBCommitCount"` // Total commits touching FileB
	JaccardCoefficient float64 `json:"jaccard"`          // |A ∩ B| / |A ∪ B|
	Confidence         float64 `json:"confidence"`       // P(B|A) = CoCommitCount / FileACommitCount
	Lift               float64 `json:"lift"`             // P(A,B) / (P(A) × P(B))
}

// CouplingAnalysisResult holds the results of coupling analysis.
type CouplingAnalysisResult struct {
	Couplings    []ChangeCoupling `json:"couplings"`
	TotalCommits int              `json:"totalCommits"`
	TotalFiles   int              `json:"totalFiles"`
	TotalPairs   int              `json:"totalPairs"`
}

// Analyzer accumulates co-change counts one commit at a time, so a traversal
// can be analyzed without keeping its commits.
type Analyzer struct {
	options            config.CouplingConfig
	fileCommitCounts   map[string]int
	pairCoCommitCounts map[FilePair]int
	totalCommits       int
}

// NewAnalyzer creates a new coupling analyzer.
func NewAnalyzer(options config.CouplingConfig) *Analyzer {
	return &Analyzer{
		options:            options,
		fileCommitCounts:   make(map[string]int),
		pairCoCommitCounts: make(map[FilePair]int),
	}
}

// AddCommit records the paths a commit modified. Deleted files are ignored.
func (a *Analyzer) AddCommit(ctx context.Context, c *miner.Commit) error {
	mods, err := c.Modifications(ctx)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(mods))
	for _, m := range mods {
		if m.Kind == miner.ChangeKindDeleted {
			continue
		}
		paths = append(paths, m.NewPath)
	}
	a.Add(paths)
	return nil
}

// Add records the paths changed by one commit. Every path counts towards its
// file's commits; pairs are only formed for commits touching between two and
// MaxFilesPerCommit files (no upper bound when MaxFilesPerCommit <= 0).
func (a *Analyzer) Add(paths []string) {
	a.totalCommits++

	unique := slices.Clone(paths)
	slices.Sort(unique)
	unique = slices.Compact(unique)
	for _, p := range unique {
		a.fileCommitCounts[p]++
	}

	if len(unique) < 2 || (a.options.MaxFilesPerCommit > 0 && len(unique) > a.options.MaxFilesPerCommit) {
		return
	}
	for i, p := range unique[:len(unique)-1] {
		for _, q := range unique[i+1:] {
			a.pairCoCommitCounts[FilePair{FileA: p, FileB: q}]++
		}
	}
}

// Analyze adds every change set and returns the result.
func (a *Analyzer) Analyze(changeSets [][]string) CouplingAnalysisResult {
	for _, paths := range changeSets {
		a.Add(paths)
	}
	return a.Result()
}

// Result computes coupling metrics over everything added so far.
func (a *Analyzer) Result() CouplingAnalysisResult {
	var couplings []ChangeCoupling

	for pair, coCommitCount := range a.pairCoCommitCounts {
		if coCommitCount < a.options.MinCoCommits {
			continue
		}

		commitsA := a.fileCommitCounts[pair.FileA]
		commitsB := a.fileCommitCounts[pair.FileB]

		// Jaccard coefficient: |A ∩ B| / |A ∪ B|
		union := commitsA + commitsB - coCommitCount
		jaccard := float64(coCommitCount) / float64(union)

		if jaccard < a.options.MinJaccardThreshold {
			continue
		}

		// Association rule metrics
		supportA := float64(commitsA) / float64(a.totalCommits)
		supportB := float64(commitsB) / float64(a.totalCommits)
		supportAB := float64(coCommitCount) / float64(a.totalCommits)

		confidence := float64(coCommitCount) / float64(commitsA)
		lift := supportAB / (supportA * supportB)

		couplings = append(couplings, ChangeCoupling{
			FileA:              pair.FileA,
			FileB:              pair.FileB,
			CoCommitCount:      coCommitCount,
			FileACommitCount:   commitsA,
			FileBCommitCount:   commitsB,
			JaccardCoefficient: jaccard,
			Confidence:         confidence,
			Lift:               lift,
		})
	}

	// Sort by Jaccard coefficient descending; ties by co-commits, then by name
	sort.Slice(couplings, func(i, j int) bool {
		ci, cj := couplings[i], couplings[j]
		if ci.JaccardCoefficient != cj.JaccardCoefficient {
			return ci.JaccardCoefficient > cj.JaccardCoefficient
		}
		if ci.CoCommitCount != cj.CoCommitCount {
			return ci.CoCommitCount > cj.CoCommitCount
		}
		if ci.FileA != cj.FileA {
			return ci.FileA < cj.FileA
		}
		return ci.FileB < cj.FileB
	})

	if a.options.TopPairs > 0 && len(couplings) > a.options.TopPairs {
		couplings = couplings[:a.options.TopPairs]
	}

	return CouplingAnalysisResult{
		Couplings:    couplings,
		TotalCommits: a.totalCommits,
		TotalFiles:   len(a.fileCommitCounts),
		TotalPairs:   len(a.pairCoCommitCounts),
	}
}
