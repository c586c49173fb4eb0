// Package gittest builds throwaway go-git repositories for tests and benchmarks.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a repository in a temporary directory with a work tree.
type Repo struct {
	tb   testing.TB
	Dir  string
	Git  *gogit.Repository
	work *gogit.Worktree
}

// New initializes an empty repository in tb.TempDir().
func New(tb testing.TB) *Repo {
	tb.Helper()

	dir := tb.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		tb.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		tb.Fatalf("Worktree: %v", err)
	}
	return &Repo{tb: tb, Dir: dir, Git: repo, work: wt}
}

// Write creates or overwrites a file and stages it.
func (r *Repo) Write(rel, content string) {
	r.tb.Helper()

	full := filepath.Join(r.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.tb.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.tb.Fatalf("WriteFile: %v", err)
	}
	if _, err := r.work.Add(rel); err != nil {
		r.tb.Fatalf("Add: %v", err)
	}
}

// Remove deletes a file and stages the deletion.
func (r *Repo) Remove(rel string) {
	r.tb.Helper()

	if _, err := r.work.Remove(rel); err != nil {
		r.tb.Fatalf("Remove: %v", err)
	}
}

// Commit records the staged state. Without explicit parents HEAD is used.
func (r *Repo) Commit(msg string, when time.Time, parents ...plumbing.Hash) plumbing.Hash {
	r.tb.Helper()

	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: when}
	h, err := r.work.Commit(msg, &gogit.CommitOptions{
		Author:            sig,
		Committer:         sig,
		Parents:           parents,
		AllowEmptyCommits: true,
	})
	if err != nil {
		r.tb.Fatalf("Commit: %v", err)
	}
	return h
}

// Merge records the staged state as a merge of HEAD and other.
func (r *Repo) Merge(msg string, when time.Time, other plumbing.Hash) plumbing.Hash {
	r.tb.Helper()
	return r.Commit(msg, when, r.Head(), other)
}

// Head returns the commit HEAD points at.
func (r *Repo) Head() plumbing.Hash {
	r.tb.Helper()

	ref, err := r.Git.Head()
	if err != nil {
		r.tb.Fatalf("Head: %v", err)
	}
	return ref.Hash()
}

// Branch returns the short name of the branch HEAD points at.
func (r *Repo) Branch() string {
	r.tb.Helper()

	ref, err := r.Git.Head()
	if err != nil {
		r.tb.Fatalf("Head: %v", err)
	}
	return ref.Name().Short()
}

// Checkout switches to branch, creating it from HEAD when create is set.
func (r *Repo) Checkout(branch string, create bool) {
	r.tb.Helper()

	err := r.work.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	})
	if err != nil {
		r.tb.Fatalf("Checkout(%s): %v", branch, err)
	}
}

// Tag creates a lightweight tag.
func (r *Repo) Tag(name string, target plumbing.Hash) {
	r.tb.Helper()

	if _, err := r.Git.CreateTag(name, target, nil); err != nil {
		r.tb.Fatalf("CreateTag: %v", err)
	}
}
