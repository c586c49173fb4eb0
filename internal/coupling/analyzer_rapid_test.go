package coupling

import (
	"fmt"
	"testing"

	"github.com/masmgr/repominer/config"
	"pgregory.net/rapid"
)

// --- Generators ---

func genPath() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		return rapid.StringMatching(`[a-zA-Z]{1,6}\.go`).Draw(t, "path")
	})
}

// genChangeSets draws commits over a small pool of paths so pairs repeat.
func genChangeSets() *rapid.Generator[[][]string] {
	return rapid.Custom(func(t *rapid.T) [][]string {
		count := rapid.IntRange(1, 20).Draw(t, "commits")
		sets := make([][]string, count)
		for i := range sets {
			files := rapid.IntRange(1, 10).Draw(t, fmt.Sprintf("files%d", i))
			sets[i] = make([]string, files)
			for j := range sets[i] {
				sets[i][j] = fmt.Sprintf("file%d.go", rapid.IntRange(0, 15).Draw(t, fmt.Sprintf("path%d_%d", i, j)))
			}
		}
		return sets
	})
}

func genConfig() *rapid.Generator[config.CouplingConfig] {
	return rapid.Custom(func(t *rapid.T) config.CouplingConfig {
		return config.CouplingConfig{
			MinCoCommits:        rapid.IntRange(1, 3).Draw(t, "minCoCommits"),
			MinJaccardThreshold: rapid.Float64Range(0, 0.5).Draw(t, "minJaccard"),
			MaxFilesPerCommit:   rapid.IntRange(0, 10).Draw(t, "maxFiles"),
			TopPairs:            rapid.IntRange(0, 10).Draw(t, "topPairs"),
		}
	})
}

// --- Property Tests ---

func TestRapidFilePair_Canonical(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genPath().Draw(t, "a")
		b := genPath().Draw(t, "b")

		pair := NewFilePair(a, b)
		if pair != NewFilePair(b, a) {
			t.Fatalf("NewFilePair not symmetric for %q, %q", a, b)
		}
		if pair.FileA > pair.FileB {
			t.Fatalf("pair not ordered: %+v", pair)
		}
		if pair != NewFilePair(pair.FileA, pair.FileB) {
			t.Fatalf("re-pairing changed %+v", pair)
		}
	})
}

func TestRapidAnalyze_Bounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := genConfig().Draw(t, "cfg")
		result := NewAnalyzer(cfg).Analyze(genChangeSets().Draw(t, "changeSets"))

		if cfg.TopPairs > 0 && len(result.Couplings) > cfg.TopPairs {
			t.Fatalf("%d couplings exceed TopPairs=%d", len(result.Couplings), cfg.TopPairs)
		}
		for i, c := range result.Couplings {
			if c.JaccardCoefficient < cfg.MinJaccardThreshold || c.JaccardCoefficient > 1 {
				t.Fatalf("Couplings[%d] Jaccard=%f outside [%f, 1]", i, c.JaccardCoefficient, cfg.MinJaccardThreshold)
			}
			if c.Confidence <= 0 || c.Confidence > 1 {
				t.Fatalf("Couplings[%d] Confidence=%f outside (0, 1]", i, c.Confidence)
			}
			if c.CoCommitCount < cfg.MinCoCommits {
				t.Fatalf("Couplings[%d] CoCommitCount=%d below %d", i, c.CoCommitCount, cfg.MinCoCommits)
			}
			if c.CoCommitCount > c.FileACommitCount || c.CoCommitCount > c.FileBCommitCount {
				t.Fatalf("Couplings[%d] co-commits exceed file commits: %+v", i, c)
			}
			if i > 0 && c.JaccardCoefficient > result.Couplings[i-1].JaccardCoefficient {
				t.Fatalf("not sorted by Jaccard at %d", i)
			}
		}
	})
}

func TestRapidAnalyze_IncrementalMatchesBatch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := genConfig().Draw(t, "cfg")
		sets := genChangeSets().Draw(t, "changeSets")

		incremental := NewAnalyzer(cfg)
		for _, s := range sets {
			incremental.Add(s)
		}
		got := incremental.Result()
		want := NewAnalyzer(cfg).Analyze(sets)

		if got.TotalCommits != want.TotalCommits || got.TotalPairs != want.TotalPairs || len(got.Couplings) != len(want.Couplings) {
			t.Fatalf("incremental %+v != batch %+v", got, want)
		}
		for i := range got.Couplings {
			if got.Couplings[i] != want.Couplings[i] {
				t.Fatalf("Couplings[%d]: %+v != %+v", i, got.Couplings[i], want.Couplings[i])
			}
		}
	})
}

func TestRapidAnalyze_OrderOfCommitsIrrelevant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := genConfig().Draw(t, "cfg")
		sets := genChangeSets().Draw(t, "changeSets")
		shuffled := rapid.Permutation(sets).Draw(t, "shuffled")

		a := NewAnalyzer(cfg).Analyze(sets)
		b := NewAnalyzer(cfg).Analyze(shuffled)
		if len(a.Couplings) != len(b.Couplings) {
			t.Fatalf("%d vs %d couplings", len(a.Couplings), len(b.Couplings))
		}
		for i := range a.Couplings {
			if a.Couplings[i] != b.Couplings[i] {
				t.Fatalf("Couplings[%d]: %+v != %+v", i, a.Couplings[i], b.Couplings[i])
			}
		}
	})
}
