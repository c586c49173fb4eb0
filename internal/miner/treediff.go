package miner

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/masmgr/repominer/internal/diff"
	"github.com/masmgr/repominer/internal/git"
)

// treeDiff computes the modifications of commit id (whose tree is tree) relative
// to parent. A zero parent means the empty tree.
func (e *engine) treeDiff(ctx context.Context, id, tree, parent git.Hash) ([]*Modification, error) {
	var oldEntries map[string]git.ContentRef
	if !parent.IsZero() {
		pmd, err := e.acc.MetadataOf(ctx, parent)
		if err != nil {
			return nil, err
		}
		if pmd.Tree == tree {
			return nil, nil
		}
		oldEntries, err = e.acc.TreeEntriesOf(ctx, parent)
		if err != nil {
			return nil, err
		}
	}
	newEntries, err := e.acc.TreeEntriesOf(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &treeDelta{eng: e, parent: parent, old: oldEntries, new: newEntries, blobs: make(map[git.Hash][]byte)}
	d.classify()
	if !e.opts.DisableRenames {
		if err := d.detectRenames(ctx); err != nil {
			return nil, err
		}
		if e.opts.DetectCopies {
			if err := d.detectCopies(ctx); err != nil {
				return nil, err
			}
		}
	}
	return d.modifications(), nil
}

// emptyBlob never pairs as a rename or copy source.
var emptyBlob = git.BlobHash("")

type pairing struct {
	oldPath, newPath string
	score            int
}

type treeDelta struct {
	eng    *engine
	parent git.Hash
	old    map[string]git.ContentRef
	new    map[string]git.ContentRef

	added    []string
	deleted  []string
	modified []string
	renamed  []pairing
	copied   []pairing

	// blobs caches contents read for similarity scoring; handed to the
	// resulting modifications.
	blobs map[git.Hash][]byte
}

func (d *treeDelta) classify() {
	for p, ref := range d.new {
		oldRef, ok := d.old[p]
		switch {
		case !ok:
			d.added = append(d.added, p)
		case oldRef.Hash != ref.Hash || oldRef.Mode != ref.Mode:
			d.modified = append(d.modified, p)
		}
	}
	for p := range d.old {
		if _, ok := d.new[p]; !ok {
			d.deleted = append(d.deleted, p)
		}
	}
	sort.Strings(d.added)
	sort.Strings(d.deleted)
	sort.Strings(d.modified)
}

// detectRenames pairs deleted and added paths. Identical content always pairs
// (score 100); other pairs need the similarity threshold and are only scored
// when the candidate count stays within the rename limit.
func (d *treeDelta) detectRenames(ctx context.Context) error {
	if len(d.added) == 0 || len(d.deleted) == 0 {
		return nil
	}

	byHash := make(map[git.Hash][]string)
	for _, p := range d.deleted {
		h := d.old[p].Hash
		if h == emptyBlob {
			continue
		}
		byHash[h] = append(byHash[h], p)
	}
	usedOld := make(map[string]bool)
	usedNew := make(map[string]bool)
	for _, p := range d.added {
		for _, candidate := range byHash[d.new[p].Hash] {
			if !usedOld[candidate] {
				d.renamed = append(d.renamed, pairing{oldPath: candidate, newPath: p, score: 100})
				usedOld[candidate], usedNew[p] = true, true
				break
			}
		}
	}

	added := remaining(d.added, usedNew)
	deleted := remaining(d.deleted, usedOld)
	if len(added) > 0 && len(deleted) > 0 {
		if n := len(added) * len(deleted); n > d.eng.opts.RenameLimit {
			d.eng.log.WithFields(logrus.Fields{
				"candidates": n,
				"limit":      d.eng.opts.RenameLimit,
			}).Debug("inexact rename detection skipped")
		} else {
			pairs, err := d.scorePairs(ctx, deleted, d.old, added)
			if err != nil {
				return err
			}
			for _, pr := range pairs {
				if usedOld[pr.oldPath] || usedNew[pr.newPath] {
					continue
				}
				d.renamed = append(d.renamed, pr)
				usedOld[pr.oldPath], usedNew[pr.newPath] = true, true
			}
		}
	}

	d.added = remaining(d.added, usedNew)
	d.deleted = remaining(d.deleted, usedOld)
	return nil
}

// detectCopies marks added files as copies of a file in the parent: any file with
// identical content, or a modified file above the similarity threshold.
func (d *treeDelta) detectCopies(ctx context.Context) error {
	if len(d.added) == 0 || len(d.old) == 0 {
		return nil
	}

	byHash := make(map[git.Hash]string)
	for p, ref := range d.old {
		if ref.Hash == emptyBlob {
			continue
		}
		if cur, ok := byHash[ref.Hash]; !ok || p < cur {
			byHash[ref.Hash] = p
		}
	}
	usedNew := make(map[string]bool)
	for _, p := range d.added {
		if src, ok := byHash[d.new[p].Hash]; ok {
			d.copied = append(d.copied, pairing{oldPath: src, newPath: p, score: 100})
			usedNew[p] = true
		}
	}

	added := remaining(d.added, usedNew)
	if len(added) > 0 && len(d.modified) > 0 && len(added)*len(d.modified) <= d.eng.opts.RenameLimit {
		pairs, err := d.scorePairs(ctx, d.modified, d.old, added)
		if err != nil {
			return err
		}
		// One source may be copied to several destinations.
		for _, pr := range pairs {
			if usedNew[pr.newPath] {
				continue
			}
			d.copied = append(d.copied, pr)
			usedNew[pr.newPath] = true
		}
	}

	d.added = remaining(d.added, usedNew)
	return nil
}

// scorePairs returns the source×added pairs at or above the threshold, best first.
func (d *treeDelta) scorePairs(ctx context.Context, sources []string, srcEntries map[string]git.ContentRef, added []string) ([]pairing, error) {
	threshold := d.eng.opts.RenameThreshold
	var pairs []pairing
	for _, np := range added {
		newData, err := d.blob(ctx, d.new[np])
		if err != nil {
			return nil, err
		}
		if len(newData) == 0 {
			continue
		}
		for _, op := range sources {
			oldData, err := d.blob(ctx, srcEntries[op])
			if err != nil {
				return nil, err
			}
			if len(oldData) == 0 {
				continue
			}
			if !sizesCompatible(len(oldData), len(newData), threshold) {
				continue
			}
			if score := diff.Similarity(oldData, newData); score >= threshold {
				pairs = append(pairs, pairing{oldPath: op, newPath: np, score: score})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if pairs[i].newPath != pairs[j].newPath {
			return pairs[i].newPath < pairs[j].newPath
		}
		return pairs[i].oldPath < pairs[j].oldPath
	})
	return pairs, nil
}

// sizesCompatible rules out pairs whose size ratio alone keeps them below threshold.
func sizesCompatible(a, b, threshold int) bool {
	small, large := a, b
	if small > large {
		small, large = large, small
	}
	if large == 0 {
		return true
	}
	return small*100 >= threshold*large
}

func (d *treeDelta) blob(ctx context.Context, ref git.ContentRef) ([]byte, error) {
	if data, ok := d.blobs[ref.Hash]; ok {
		return data, nil
	}
	data, err := d.eng.acc.ContentOf(ctx, ref)
	if err != nil {
		return nil, err
	}
	d.blobs[ref.Hash] = data
	return data, nil
}

func (d *treeDelta) newModification(kind ChangeKind, oldPath, newPath string, score int) *Modification {
	m := &Modification{
		OldPath:    oldPath,
		NewPath:    newPath,
		Kind:       kind,
		Parent:     d.parent,
		Similarity: score,
		eng:        d.eng,
	}
	if oldPath != "" {
		m.OldRef = d.old[oldPath]
	}
	if newPath != "" {
		m.NewRef = d.new[newPath]
	}
	var before, after []byte
	if data, ok := d.blobs[m.OldRef.Hash]; ok && !m.OldRef.IsZero() {
		before = data
	}
	if data, ok := d.blobs[m.NewRef.Hash]; ok && !m.NewRef.IsZero() {
		after = data
	}
	m.preload(before, after)
	return m
}

func (d *treeDelta) modifications() []*Modification {
	mods := make([]*Modification, 0, len(d.added)+len(d.deleted)+len(d.modified)+len(d.renamed)+len(d.copied))
	for _, p := range d.added {
		mods = append(mods, d.newModification(ChangeKindAdded, "", p, 0))
	}
	for _, p := range d.deleted {
		mods = append(mods, d.newModification(ChangeKindDeleted, p, "", 0))
	}
	for _, p := range d.modified {
		mods = append(mods, d.newModification(ChangeKindModified, p, p, 0))
	}
	for _, pr := range d.renamed {
		mods = append(mods, d.newModification(ChangeKindRenamed, pr.oldPath, pr.newPath, pr.score))
	}
	for _, pr := range d.copied {
		mods = append(mods, d.newModification(ChangeKindCopied, pr.oldPath, pr.newPath, pr.score))
	}
	sort.Slice(mods, func(i, j int) bool {
		return mods[i].Path() < mods[j].Path()
	})
	return mods
}

func remaining(paths []string, used map[string]bool) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if !used[p] {
			out = append(out, p)
		}
	}
	return out
}
