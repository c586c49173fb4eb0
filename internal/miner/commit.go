package miner

import (
	"context"
	"strings"
	"sync"

	"github.com/masmgr/repominer/internal/git"
)

// Commit is one yielded commit. Metadata is available immediately; everything
// derived from trees and blobs is computed on first use and cached.
// A Commit is safe for concurrent use.
type Commit struct {
	Hash      git.Hash
	Author    git.Signature
	Committer git.Signature
	Message   string
	Parents   []git.Hash
	// Refs lists the branches and tags pointing at this commit.
	Refs []string

	tree   git.Hash
	policy MergePolicy
	eng    *engine

	mu          sync.Mutex
	parentDiffs [][]*Modification
	mods        []*Modification
	modsDone    bool
}

func newCommit(eng *engine, md git.CommitMetadata, policy MergePolicy, refs []string) *Commit {
	return &Commit{
		Hash:      md.Hash,
		Author:    md.Author,
		Committer: md.Committer,
		Message:   md.Message,
		Parents:   md.Parents,
		Refs:      refs,
		tree:      md.Tree,
		policy:    policy,
		eng:       eng,
	}
}

// Merge reports whether the commit has more than one parent.
func (c *Commit) Merge() bool {
	return len(c.Parents) > 1
}

// Root reports whether the commit has no parents.
func (c *Commit) Root() bool {
	return len(c.Parents) == 0
}

// ShortHash returns the abbreviated identifier.
func (c *Commit) ShortHash() string {
	return c.Hash.String()[:7]
}

// Subject returns the first line of the message.
func (c *Commit) Subject() string {
	subject, _, _ := strings.Cut(strings.TrimLeft(c.Message, "\n"), "\n")
	return strings.TrimSpace(subject)
}

// Modifications returns the file changes of the commit, sorted by path.
// A root commit is compared with the empty tree. A merge commit follows the
// traversal's MergePolicy.
func (c *Commit) Modifications(ctx context.Context) ([]*Modification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.modsDone {
		return c.mods, nil
	}

	var mods []*Modification
	switch {
	case len(c.Parents) <= 1 || c.policy == MergeFirstParent:
		first, err := c.parentDiffLocked(ctx, 0)
		if err != nil {
			return nil, err
		}
		mods = first
	default:
		for i := range c.Parents {
			d, err := c.parentDiffLocked(ctx, i)
			if err != nil {
				return nil, err
			}
			mods = append(mods, d...)
		}
	}

	c.mods = mods
	c.modsDone = true
	return mods, nil
}

// ParentDiffs returns one modification list per parent, in parent order, whatever
// the merge policy. A root commit has a single list against the empty tree.
func (c *Commit) ParentDiffs(ctx context.Context) ([][]*Modification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.Parents)
	if n == 0 {
		n = 1
	}
	out := make([][]*Modification, n)
	for i := 0; i < n; i++ {
		d, err := c.parentDiffLocked(ctx, i)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func (c *Commit) parentDiffLocked(ctx context.Context, i int) ([]*Modification, error) {
	if c.parentDiffs == nil {
		n := len(c.Parents)
		if n == 0 {
			n = 1
		}
		c.parentDiffs = make([][]*Modification, n)
	}
	if c.parentDiffs[i] != nil {
		return c.parentDiffs[i], nil
	}

	parent := git.ZeroHash
	if len(c.Parents) > 0 {
		parent = c.Parents[i]
	}
	mods, err := c.eng.treeDiff(ctx, c.Hash, c.tree, parent)
	if err != nil {
		return nil, err
	}
	if mods == nil {
		mods = []*Modification{}
	}
	c.parentDiffs[i] = mods
	return mods, nil
}
