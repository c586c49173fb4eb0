package miner

import (
	"bytes"
	"container/heap"
	"context"
	"io"
	"time"

	"github.com/masmgr/repominer/internal/git"
)

// commitQueue is a max-heap on committer time; equal times pop in ascending hash order.
type commitQueue []git.CommitMetadata

func newerFirst(a, b git.CommitMetadata) bool {
	ta, tb := a.Committer.When, b.Committer.When
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return bytes.Compare(a.Hash[:], b.Hash[:]) < 0
}

func (q commitQueue) Len() int           { return len(q) }
func (q commitQueue) Less(i, j int) bool { return newerFirst(q[i], q[j]) }
func (q commitQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *commitQueue) Push(x any)        { *q = append(*q, x.(git.CommitMetadata)) }
func (q *commitQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = git.CommitMetadata{}
	*q = old[:n-1]
	return item
}

// walker yields commits reachable from a frontier, newest first, reading only
// metadata. Each commit is visited once however many paths reach it.
type walker struct {
	acc    git.Accessor
	queue  commitQueue
	seen   map[git.Hash]struct{}
	expand bool
	filter *Filter
	// since stops the walk once every queued commit is older.
	since time.Time
	// remaining, when non-nil, ends the walk once every listed commit was yielded.
	remaining map[git.Hash]struct{}
	// visit, when set, sees every popped commit, accepted or not.
	visit func(git.CommitMetadata)
	// pending is an expansion error reported after the commit that caused it.
	pending error
}

func newWalker(acc git.Accessor, filter *Filter, expand bool) *walker {
	return &walker{
		acc:    acc,
		seen:   make(map[git.Hash]struct{}),
		expand: expand,
		filter: filter,
		since:  filter.Since,
	}
}

// start queues the frontier commits.
func (w *walker) start(ctx context.Context, frontier []git.Hash) error {
	for _, id := range frontier {
		if err := w.push(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) push(ctx context.Context, id git.Hash) error {
	if _, ok := w.seen[id]; ok {
		return nil
	}
	md, err := w.acc.MetadataOf(ctx, id)
	if err != nil {
		return err
	}
	w.seen[id] = struct{}{}
	heap.Push(&w.queue, md)
	return nil
}

// next returns the next accepted commit, or io.EOF when the walk is over.
func (w *walker) next(ctx context.Context) (git.CommitMetadata, error) {
	for {
		if w.pending != nil {
			return git.CommitMetadata{}, w.pending
		}
		if err := ctx.Err(); err != nil {
			return git.CommitMetadata{}, err
		}
		if w.queue.Len() == 0 || (w.remaining != nil && len(w.remaining) == 0) {
			return git.CommitMetadata{}, io.EOF
		}

		md := heap.Pop(&w.queue).(git.CommitMetadata)
		if !w.since.IsZero() && md.Committer.When.Before(w.since) {
			// md was the newest queued commit, so everything left is older.
			w.queue = nil
			return git.CommitMetadata{}, io.EOF
		}

		if w.expand {
			for _, p := range md.Parents {
				if err := w.push(ctx, p); err != nil {
					w.pending = err
					break
				}
			}
		}
		if w.visit != nil {
			w.visit(md)
		}
		if !w.filter.Accept(md) {
			continue
		}
		if w.remaining != nil {
			delete(w.remaining, md.Hash)
		}
		return md, nil
	}
}
