package miner

import (
	"context"
	"testing"
	"time"

	"github.com/masmgr/repominer/internal/git"
)

var epoch = time.Date(2021, 3, 4, 12, 0, 0, 0, time.UTC)

func sig(name string, offset time.Duration) git.Signature {
	return git.Signature{Name: name, Email: name + "@example.com", When: epoch.Add(offset)}
}

// history is a small mock repository built commit by commit.
type history struct {
	t   *testing.T
	acc *git.MockAccessor
}

func newHistory(t *testing.T) *history {
	t.Helper()
	return &history{t: t, acc: git.NewMockAccessor()}
}

// commit stores a snapshot authored and committed by author at epoch+offset.
func (h *history) commit(msg, author string, offset time.Duration, files map[string]string, parents ...git.Hash) git.Hash {
	h.t.Helper()
	s := sig(author, offset)
	return h.acc.AddCommit(git.MockCommit{
		Parents:   parents,
		Author:    s,
		Committer: s,
		Message:   msg,
		Files:     files,
	})
}

func traverse(t *testing.T, acc git.Accessor, w Window, opts Options) []*Commit {
	t.Helper()
	tr, err := Traverse(context.Background(), acc, w, opts)
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	commits, err := tr.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return commits
}

func hashes(commits []*Commit) []git.Hash {
	out := make([]git.Hash, len(commits))
	for i, c := range commits {
		out[i] = c.Hash
	}
	return out
}

func equalHashes(a, b []git.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func modifications(t *testing.T, c *Commit) []*Modification {
	t.Helper()
	mods, err := c.Modifications(context.Background())
	if err != nil {
		t.Fatalf("Modifications(%s): %v", c.ShortHash(), err)
	}
	return mods
}

func findMod(t *testing.T, mods []*Modification, path string) *Modification {
	t.Helper()
	for _, m := range mods {
		if m.Path() == path {
			return m
		}
	}
	t.Fatalf("no modification for %q", path)
	return nil
}

// linear is root -> c2 -> c3 -> c4 on main, one hour apart.
type linear struct {
	*history
	ids []git.Hash
}

func buildLinear(t *testing.T) linear {
	t.Helper()
	h := newHistory(t)
	c1 := h.commit("first", "alice", 0, map[string]string{"a.go": "package a\n", "README": "hello\n"})
	c2 := h.commit("second", "bob", time.Hour, map[string]string{"a.go": "package a\n\nvar x = 1\n", "README": "hello\n"}, c1)
	c3 := h.commit("third", "alice", 2*time.Hour, map[string]string{"a.go": "package a\n\nvar x = 1\n", "README": "hello\n", "docs/guide.md": "# guide\n"}, c2)
	c4 := h.commit("fourth", "carol", 3*time.Hour, map[string]string{"a.go": "package a\n\nvar x = 2\n", "docs/guide.md": "# guide\n"}, c3)
	h.acc.SetBranch("main", c4)
	return linear{history: h, ids: []git.Hash{c1, c2, c3, c4}}
}
