package miner

import (
	"bytes"
	"container/heap"
	"context"
	"errors"
	"io"
	"time"

	"github.com/masmgr/repominer/internal/git"
)

// listSource yields a fixed list of commits, reading each one's metadata only
// when it is reached.
type listSource struct {
	acc    git.Accessor
	ids    []git.Hash
	pos    int
	filter *Filter
}

func (s *listSource) next(ctx context.Context) (git.CommitMetadata, error) {
	for s.pos < len(s.ids) {
		if err := ctx.Err(); err != nil {
			return git.CommitMetadata{}, err
		}
		md, err := s.acc.MetadataOf(ctx, s.ids[s.pos])
		if err != nil {
			return git.CommitMetadata{}, err
		}
		s.pos++
		if s.filter != nil && !s.filter.Accept(md) {
			continue
		}
		return md, nil
	}
	return git.CommitMetadata{}, io.EOF
}

// deferredSource builds its real source on the first call, so orders that need a
// pre-walk do no work until the first commit is requested.
type deferredSource struct {
	build func(context.Context) (source, error)
	src   source
}

func (s *deferredSource) next(ctx context.Context) (git.CommitMetadata, error) {
	if s.src == nil {
		src, err := s.build(ctx)
		if err != nil {
			return git.CommitMetadata{}, err
		}
		s.src = src
	}
	return s.src.next(ctx)
}

// oldestFirst walks newest-first keeping only identifiers, then replays them reversed.
func oldestFirst(ctx context.Context, acc git.Accessor, wk *walker, _ *Filter) (source, error) {
	var ids []git.Hash
	for {
		md, err := wk.next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, md.Hash)
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return &listSource{acc: acc, ids: ids}, nil
}

type topoNode struct {
	id       git.Hash
	when     time.Time
	parents  []git.Hash
	accepted bool
}

// readyQueue pops the oldest commit first; equal times pop in ascending hash order.
type readyQueue []*topoNode

func (q readyQueue) Len() int { return len(q) }
func (q readyQueue) Less(i, j int) bool {
	if !q[i].when.Equal(q[j].when) {
		return q[i].when.Before(q[j].when)
	}
	return bytes.Compare(q[i].id[:], q[j].id[:]) < 0
}
func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)   { *q = append(*q, x.(*topoNode)) }
func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// topological collects the visited graph (identifiers, parents and times only) and
// orders it so that every parent precedes its children. Among commits whose
// parents are all emitted, the oldest goes first. Parents outside the walked
// graph are boundary commits and impose no constraint.
func topological(ctx context.Context, acc git.Accessor, wk *walker, _ *Filter) (source, error) {
	nodes := make(map[git.Hash]*topoNode)
	wk.visit = func(md git.CommitMetadata) {
		nodes[md.Hash] = &topoNode{id: md.Hash, when: md.Committer.When, parents: md.Parents}
	}
	for {
		md, err := wk.next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		nodes[md.Hash].accepted = true
	}

	indegree := make(map[git.Hash]int, len(nodes))
	children := make(map[git.Hash][]*topoNode, len(nodes))
	for _, n := range nodes {
		for _, p := range n.parents {
			if _, ok := nodes[p]; ok {
				indegree[n.id]++
				children[p] = append(children[p], n)
			}
		}
	}

	ready := &readyQueue{}
	for _, n := range nodes {
		if indegree[n.id] == 0 {
			heap.Push(ready, n)
		}
	}

	var ids []git.Hash
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*topoNode)
		if n.accepted {
			ids = append(ids, n.id)
		}
		for _, child := range children[n.id] {
			indegree[child.id]--
			if indegree[child.id] == 0 {
				heap.Push(ready, child)
			}
		}
	}
	return &listSource{acc: acc, ids: ids}, nil
}
