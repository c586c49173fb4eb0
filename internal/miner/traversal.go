// Package miner walks a repository's history and exposes each commit's
// modifications, diffs and complexity metrics, computing them only when asked.
package miner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/sirupsen/logrus"

	"github.com/masmgr/repominer/internal/git"
)

// source produces commit metadata in traversal order.
type source interface {
	next(ctx context.Context) (git.CommitMetadata, error)
}

// Traversal is a lazy, single-pass sequence of commits. It is owned by one
// goroutine; independent traversals may share an Accessor.
type Traversal struct {
	eng    *engine
	window Window
	paths  PathFilter
	src    source
	refs   map[git.Hash][]string
	err    error
}

// Traverse validates the window, resolves its frontier and returns a traversal
// positioned before the first commit. Configuration errors and unresolvable
// commits are reported here, before any commit is yielded.
func Traverse(ctx context.Context, acc git.Accessor, w Window, opts Options) (*Traversal, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	eng := newEngine(acc, opts)
	t := &Traversal{eng: eng, window: w, paths: NewPathFilter(w)}

	refs, err := acc.Refs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	t.refs = make(map[git.Hash][]string)
	for _, r := range refs {
		t.refs[r.Target] = append(t.refs[r.Target], r.Name)
	}

	filter := newFilter(w)

	if w.Single != "" {
		id, err := resolveCommit(ctx, acc, w.Single)
		if err != nil {
			return nil, err
		}
		t.src = &listSource{acc: acc, ids: []git.Hash{id}, filter: filter}
		eng.log.WithField("commit", id.String()).Debug("single commit traversal")
		return t, nil
	}

	if w.FromCommit != "" {
		md, err := resolveMetadata(ctx, acc, w.FromCommit)
		if err != nil {
			return nil, err
		}
		filter.Since = md.Committer.When
	}
	if w.ToCommit != "" {
		md, err := resolveMetadata(ctx, acc, w.ToCommit)
		if err != nil {
			return nil, err
		}
		filter.To = md.Committer.When
	}
	if !filter.Since.IsZero() && !filter.To.IsZero() && filter.Since.After(filter.To) {
		return nil, fmt.Errorf("%w: lower bound is after upper bound", ErrInvalidWindow)
	}

	var frontier []git.Hash
	if len(w.OnlyCommits) > 0 {
		filter.IDs = make(map[git.Hash]struct{}, len(w.OnlyCommits))
		for _, rev := range w.OnlyCommits {
			id, err := resolveCommit(ctx, acc, rev)
			if err != nil {
				return nil, err
			}
			if _, dup := filter.IDs[id]; !dup {
				filter.IDs[id] = struct{}{}
				frontier = append(frontier, id)
			}
		}
	} else {
		frontier, err = resolveFrontier(ctx, acc, w, refs)
		if err != nil {
			return nil, err
		}
	}

	wk := newWalker(acc, filter, true)
	if filter.IDs != nil && w.Order != Topological {
		wk.remaining = make(map[git.Hash]struct{}, len(filter.IDs))
		for id := range filter.IDs {
			wk.remaining[id] = struct{}{}
		}
	}
	if err := wk.start(ctx, frontier); err != nil {
		return nil, err
	}

	eng.log.WithFields(logrus.Fields{
		"frontier": len(frontier),
		"order":    w.Order.String(),
	}).Debug("traversal started")

	switch w.Order {
	case NewestFirst:
		t.src = wk
	case OldestFirst:
		t.src = &deferredSource{build: func(ctx context.Context) (source, error) {
			return oldestFirst(ctx, acc, wk, filter)
		}}
	case Topological:
		t.src = &deferredSource{build: func(ctx context.Context) (source, error) {
			return topological(ctx, acc, wk, filter)
		}}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedOrder, int(w.Order))
	}
	return t, nil
}

func resolveFrontier(ctx context.Context, acc git.Accessor, w Window, refs []git.Ref) ([]git.Hash, error) {
	if w.AllBranches {
		var tips []git.Hash
		seen := make(map[git.Hash]bool)
		for _, r := range refs {
			if r.Kind == git.RefBranch && !seen[r.Target] {
				seen[r.Target] = true
				tips = append(tips, r.Target)
			}
		}
		return tips, nil
	}

	branch := w.Branch
	if branch == "" {
		def, err := acc.DefaultBranch(ctx)
		if err != nil {
			return nil, fmt.Errorf("default branch: %w", err)
		}
		branch = def
	}
	tip, err := acc.ResolveBranchTip(ctx, branch)
	if err != nil {
		return nil, err
	}
	return []git.Hash{tip}, nil
}

func resolveCommit(ctx context.Context, acc git.Accessor, rev string) (git.Hash, error) {
	id, err := acc.ResolveRevision(ctx, rev)
	if err != nil {
		if errors.Is(err, git.ErrObjectNotFound) {
			return git.ZeroHash, fmt.Errorf("%w: %s", ErrCommitNotFound, rev)
		}
		return git.ZeroHash, err
	}
	return id, nil
}

func resolveMetadata(ctx context.Context, acc git.Accessor, rev string) (git.CommitMetadata, error) {
	id, err := resolveCommit(ctx, acc, rev)
	if err != nil {
		return git.CommitMetadata{}, err
	}
	md, err := acc.MetadataOf(ctx, id)
	if err != nil {
		if errors.Is(err, git.ErrObjectNotFound) {
			return git.CommitMetadata{}, fmt.Errorf("%w: %s", ErrCommitNotFound, rev)
		}
		return git.CommitMetadata{}, err
	}
	return md, nil
}

// Next returns the next commit. It returns io.EOF when the history is exhausted.
// Any other error ends the traversal: later calls return the same error.
func (t *Traversal) Next(ctx context.Context) (*Commit, error) {
	if t.err != nil {
		return nil, t.err
	}
	for {
		md, err := t.src.next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				t.err = err
			}
			return nil, err
		}

		c := newCommit(t.eng, md, t.window.MergePolicy, t.refs[md.Hash])
		if !t.paths.Empty() {
			mods, err := c.Modifications(ctx)
			if err != nil {
				t.err = err
				return nil, err
			}
			if !t.paths.AcceptModifications(mods) {
				continue
			}
		}
		return c, nil
	}
}

// All returns the remaining commits as an iterator. Iteration stops after the
// first error, which is yielded with a nil commit; normal exhaustion yields nothing.
func (t *Traversal) All(ctx context.Context) iter.Seq2[*Commit, error] {
	return func(yield func(*Commit, error) bool) {
		for {
			c, err := t.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

// ForEach calls fn for each remaining commit until the history is exhausted,
// fn returns an error, or the traversal fails.
func (t *Traversal) ForEach(ctx context.Context, fn func(*Commit) error) error {
	for c, err := range t.All(ctx) {
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// Collect drains the traversal into a slice. Meant for small windows and tests.
func (t *Traversal) Collect(ctx context.Context) ([]*Commit, error) {
	var out []*Commit
	err := t.ForEach(ctx, func(c *Commit) error {
		out = append(out, c)
		return nil
	})
	return out, err
}
