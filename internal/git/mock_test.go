package git

import (
	"context"
	"errors"
	"testing"
	"time"
)

func mockSig(minute int) Signature {
	return Signature{Name: "Dev", Email: "dev@example.com", When: time.Date(2024, 1, 1, 0, minute, 0, 0, time.UTC)}
}

func TestMockAccessor_DeterministicHashes(t *testing.T) {
	build := func() Hash {
		m := NewMockAccessor()
		return m.AddCommit(MockCommit{
			Author: mockSig(1), Committer: mockSig(1), Message: "init",
			Files: map[string]string{"a.go": "package a\n", "b.go": "package b\n"},
		})
	}
	if a, b := build(), build(); a != b {
		t.Errorf("hashes differ: %s vs %s", a, b)
	}
}

func TestMockAccessor_Queries(t *testing.T) {
	ctx := context.Background()
	m := NewMockAccessor()
	root := m.AddCommit(MockCommit{
		Author: mockSig(1), Committer: mockSig(1), Message: "root",
		Files: map[string]string{"a.txt": "one\n"},
	})
	child := m.AddCommit(MockCommit{
		Parents: []Hash{root},
		Author:  mockSig(2), Committer: mockSig(2), Message: "child",
		Files: map[string]string{"a.txt": "two\n"},
	})
	m.SetBranch("main", child)
	m.SetTag("v1", root)

	tip, err := m.ResolveBranchTip(ctx, "")
	if err != nil || tip != child {
		t.Fatalf("ResolveBranchTip(HEAD) = %s, %v", tip, err)
	}
	if got, err := m.ResolveRevision(ctx, "v1"); err != nil || got != root {
		t.Errorf("ResolveRevision(v1) = %s, %v", got, err)
	}
	if got, err := m.ResolveRevision(ctx, child.String()[:8]); err != nil || got != child {
		t.Errorf("ResolveRevision(prefix) = %s, %v", got, err)
	}
	if _, err := m.ResolveRevision(ctx, "zzz"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("ResolveRevision(zzz) err = %v", err)
	}

	parents, err := m.ParentsOf(ctx, child)
	if err != nil || len(parents) != 1 || parents[0] != root {
		t.Errorf("ParentsOf(child) = %v, %v", parents, err)
	}

	entries, err := m.TreeEntriesOf(ctx, child)
	if err != nil {
		t.Fatalf("TreeEntriesOf: %v", err)
	}
	data, err := m.ContentOf(ctx, entries["a.txt"])
	if err != nil || string(data) != "two\n" {
		t.Errorf("ContentOf = %q, %v", data, err)
	}

	refs, err := m.Refs(ctx)
	if err != nil {
		t.Fatalf("Refs: %v", err)
	}
	if len(refs) != 2 || refs[0].Kind != RefBranch || refs[1].Kind != RefTag {
		t.Errorf("Refs = %+v", refs)
	}

	if got := m.Calls(MethodContentOf); got != 1 {
		t.Errorf("ContentOf calls = %d, want 1", got)
	}
	m.ResetCalls()
	if got := m.Calls(MethodContentOf); got != 0 {
		t.Errorf("after reset ContentOf calls = %d", got)
	}
}

func TestMockAccessor_Fail(t *testing.T) {
	ctx := context.Background()
	m := NewMockAccessor()
	id := m.AddCommit(MockCommit{Author: mockSig(1), Committer: mockSig(1), Files: map[string]string{"x": "y"}})

	boom := errors.New("boom")
	m.Fail(id, boom)
	if _, err := m.MetadataOf(ctx, id); !errors.Is(err, boom) {
		t.Errorf("MetadataOf err = %v, want boom", err)
	}

	m.Fail(BlobHash("y"), ErrCorruptObject)
	if _, err := m.ContentOf(ctx, ContentRef{Hash: BlobHash("y")}); !errors.Is(err, ErrCorruptObject) {
		t.Errorf("ContentOf err = %v, want ErrCorruptObject", err)
	}
}
