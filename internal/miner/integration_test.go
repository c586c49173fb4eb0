package miner

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/masmgr/repominer/internal/git"
	"github.com/masmgr/repominer/internal/gittest"
)

func TestTraverse_GoGitRepository(t *testing.T) {
	r := gittest.New(t)
	start := time.Date(2022, 5, 6, 7, 8, 9, 0, time.FixedZone("", -5*3600))

	r.Write("main.go", goBefore)
	r.Write("docs/intro.md", "intro\n")
	root := r.Commit("initial import", start)

	r.Write("main.go", goAfter)
	r.Remove("docs/intro.md")
	r.Write("docs/guide.md", "intro\n")
	second := r.Commit("handle negatives\n\nand move docs", start.Add(time.Hour))

	acc, err := git.NewGoGitAccessor(r.Dir)
	if err != nil {
		t.Fatalf("NewGoGitAccessor: %v", err)
	}
	ctx := context.Background()
	commits := traverse(t, acc, Window{Order: OldestFirst}, Options{})
	if len(commits) != 2 || commits[0].Hash != root || commits[1].Hash != second {
		t.Fatalf("commits = %v", hashes(commits))
	}

	c := commits[1]
	if c.Subject() != "handle negatives" {
		t.Errorf("Subject = %q", c.Subject())
	}
	if c.Author.TimezoneOffset() != -5*3600 {
		t.Errorf("TimezoneOffset = %d", c.Author.TimezoneOffset())
	}

	mods := modifications(t, c)
	if len(mods) != 2 {
		t.Fatalf("got %d modifications", len(mods))
	}
	rename := findMod(t, mods, "docs/guide.md")
	if rename.Kind != ChangeKindRenamed || rename.OldPath != "docs/intro.md" {
		t.Errorf("rename = %+v", rename)
	}
	code := findMod(t, mods, "main.go")
	delta, ok, err := code.ComplexityDelta(ctx)
	if err != nil || !ok || delta != 1 {
		t.Errorf("ComplexityDelta = %d, %v, %v", delta, ok, err)
	}
	if a, d, err := code.LineStats(ctx); err != nil || a != 4 || d != 1 {
		t.Errorf("LineStats = %d, %d, %v", a, d, err)
	}
}

func TestTraverse_ConcurrentTraversalsShareAccessor(t *testing.T) {
	r := gittest.New(t)
	start := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	const commits = 20
	for i := 0; i < commits; i++ {
		r.Write(fmt.Sprintf("pkg/file%d.go", i%4), fmt.Sprintf("package pkg\n\nvar v%d = %d\n", i%4, i))
		r.Write("README", strings.Repeat("line\n", i+1))
		r.Commit(fmt.Sprintf("change %d", i), start.Add(time.Duration(i)*time.Minute))
	}

	acc, err := git.NewGoGitAccessor(r.Dir)
	if err != nil {
		t.Fatalf("NewGoGitAccessor: %v", err)
	}

	const workers = 6
	ctx := context.Background()
	seen := make([]int, workers)
	diffs := make([]int, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			tr, err := Traverse(ctx, acc, Window{}, Options{})
			if err != nil {
				return err
			}
			return tr.ForEach(ctx, func(c *Commit) error {
				seen[w]++
				mods, err := c.Modifications(ctx)
				if err != nil {
					return err
				}
				for _, m := range mods {
					d, err := m.Diff(ctx)
					if err != nil {
						return err
					}
					if d != "" {
						diffs[w]++
					}
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent traversal: %v", err)
	}

	for w := 0; w < workers; w++ {
		if seen[w] != commits {
			t.Errorf("worker %d saw %d commits, want %d", w, seen[w], commits)
		}
		if diffs[w] != diffs[0] {
			t.Errorf("worker %d produced %d diffs, worker 0 produced %d", w, diffs[w], diffs[0])
		}
	}
	if diffs[0] == 0 {
		t.Error("no diffs produced")
	}
}

func buildBenchHistory(b *testing.B, n int) *git.MockAccessor {
	b.Helper()
	acc := git.NewMockAccessor()
	var parent []git.Hash
	for i := 0; i < n; i++ {
		files := make(map[string]string, 20)
		for f := 0; f < 20; f++ {
			files[fmt.Sprintf("pkg%d/file%d.go", f%4, f)] = fmt.Sprintf("package p\n\nvar v = %d\n", i*(f%3))
		}
		files["README"] = strings.Repeat("x\n", i+1)
		s := git.Signature{Name: "dev", Email: "dev@example.com", When: epoch.Add(time.Duration(i) * time.Minute)}
		id := acc.AddCommit(git.MockCommit{Parents: parent, Author: s, Committer: s, Message: fmt.Sprintf("c%d", i), Files: files})
		parent = []git.Hash{id}
	}
	acc.SetBranch("main", parent[0])
	return acc
}

func BenchmarkTraverse_Metadata(b *testing.B) {
	acc := buildBenchHistory(b, 500)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr, err := Traverse(ctx, acc, Window{}, Options{})
		if err != nil {
			b.Fatal(err)
		}
		if _, err := tr.Collect(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTraverse_Stats(b *testing.B) {
	acc := buildBenchHistory(b, 200)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tr, err := Traverse(ctx, acc, Window{}, Options{})
		if err != nil {
			b.Fatal(err)
		}
		err = tr.ForEach(ctx, func(c *Commit) error {
			_, err := c.Stats(ctx)
			return err
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
