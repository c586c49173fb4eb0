package git

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// Accessor method names, as counted by MockAccessor.Calls.
const (
	MethodDefaultBranch    = "DefaultBranch"
	MethodResolveBranchTip = "ResolveBranchTip"
	MethodResolveRevision  = "ResolveRevision"
	MethodParentsOf        = "ParentsOf"
	MethodMetadataOf       = "MetadataOf"
	MethodTreeEntriesOf    = "TreeEntriesOf"
	MethodContentOf        = "ContentOf"
	MethodRefs             = "Refs"
)

// MockCommit describes one commit of a synthetic history.
// Files is the full snapshot of the commit's tree (path -> content).
type MockCommit struct {
	Parents   []Hash
	Author    Signature
	Committer Signature
	Message   string
	Files     map[string]string
}

type mockCommit struct {
	meta  CommitMetadata
	files map[string]ContentRef
}

// MockAccessor is an in-memory Accessor for tests. It builds a commit graph without a
// real repository and counts calls per method so tests can assert what was read.
type MockAccessor struct {
	mu       sync.Mutex
	commits  map[Hash]*mockCommit
	blobs    map[Hash][]byte
	branches map[string]Hash
	tags     map[string]Hash
	head     string
	calls    map[string]int
	failures map[Hash]error
}

// NewMockAccessor creates an empty mock repository whose HEAD points at "main".
func NewMockAccessor() *MockAccessor {
	return &MockAccessor{
		commits:  make(map[Hash]*mockCommit),
		blobs:    make(map[Hash][]byte),
		branches: make(map[string]Hash),
		tags:     make(map[string]Hash),
		head:     "main",
		calls:    make(map[string]int),
		failures: make(map[Hash]error),
	}
}

// AddCommit stores a commit and returns its identifier. The identifier is derived from
// the commit's contents, so identical inputs produce identical hashes.
func (m *MockAccessor) AddCommit(c MockCommit) Hash {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(c.Files))
	for p := range c.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	files := make(map[string]ContentRef, len(c.Files))
	var tree strings.Builder
	for _, p := range paths {
		content := []byte(c.Files[p])
		h := plumbing.ComputeHash(plumbing.BlobObject, content)
		m.blobs[h] = content
		files[p] = ContentRef{Hash: h, Mode: filemode.Regular}
		fmt.Fprintf(&tree, "%s %s\n", h, p)
	}
	treeHash := plumbing.ComputeHash(plumbing.TreeObject, []byte(tree.String()))

	var raw strings.Builder
	fmt.Fprintf(&raw, "tree %s\n", treeHash)
	for _, p := range c.Parents {
		fmt.Fprintf(&raw, "parent %s\n", p)
	}
	fmt.Fprintf(&raw, "author %s <%s> %d\n", c.Author.Name, c.Author.Email, c.Author.When.UnixNano())
	fmt.Fprintf(&raw, "committer %s <%s> %d\n\n%s", c.Committer.Name, c.Committer.Email, c.Committer.When.UnixNano(), c.Message)
	id := plumbing.ComputeHash(plumbing.CommitObject, []byte(raw.String()))

	parents := make([]Hash, len(c.Parents))
	copy(parents, c.Parents)
	m.commits[id] = &mockCommit{
		meta: CommitMetadata{
			Hash:      id,
			Author:    c.Author,
			Committer: c.Committer,
			Message:   c.Message,
			Parents:   parents,
			Tree:      treeHash,
		},
		files: files,
	}
	return id
}

// SetBranch points a branch at a commit.
func (m *MockAccessor) SetBranch(name string, id Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.branches[name] = id
}

// SetTag points a tag at a commit.
func (m *MockAccessor) SetTag(name string, id Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[name] = id
}

// SetHead makes HEAD a symbolic reference to branch.
func (m *MockAccessor) SetHead(branch string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.head = branch
}

// Fail makes every access to the object id return err.
func (m *MockAccessor) Fail(id Hash, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id] = err
}

// Calls returns how many times method was invoked.
func (m *MockAccessor) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// ResetCalls clears all call counters.
func (m *MockAccessor) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

func (m *MockAccessor) lookup(method string, id Hash) (*mockCommit, error) {
	m.calls[method]++
	if err, ok := m.failures[id]; ok {
		return nil, err
	}
	c, ok := m.commits[id]
	if !ok {
		return nil, fmt.Errorf("commit %s: %w", id, ErrObjectNotFound)
	}
	return c, nil
}

// DefaultBranch returns the branch HEAD points at.
func (m *MockAccessor) DefaultBranch(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[MethodDefaultBranch]++
	return m.head, nil
}

// ResolveBranchTip returns the commit a branch points at.
func (m *MockAccessor) ResolveBranchTip(_ context.Context, name string) (Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[MethodResolveBranchTip]++

	if name == "" || name == plumbing.HEAD.String() {
		name = m.head
	}
	id, ok := m.branches[name]
	if !ok {
		return ZeroHash, fmt.Errorf("%s: %w", name, ErrBranchNotFound)
	}
	return id, nil
}

// ResolveRevision accepts HEAD, branch and tag names, and full or abbreviated hashes.
func (m *MockAccessor) ResolveRevision(_ context.Context, rev string) (Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[MethodResolveRevision]++

	if rev == plumbing.HEAD.String() {
		rev = m.head
	}
	if id, ok := m.branches[rev]; ok {
		return id, nil
	}
	if id, ok := m.tags[rev]; ok {
		return id, nil
	}
	if len(rev) >= 4 {
		var match Hash
		matches := 0
		for id := range m.commits {
			if strings.HasPrefix(id.String(), strings.ToLower(rev)) {
				match = id
				matches++
			}
		}
		if matches == 1 {
			return match, nil
		}
	}
	return ZeroHash, fmt.Errorf("revision %q: %w", rev, ErrObjectNotFound)
}

// ParentsOf returns the parent hashes of a commit.
func (m *MockAccessor) ParentsOf(_ context.Context, id Hash) ([]Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.lookup(MethodParentsOf, id)
	if err != nil {
		return nil, err
	}
	parents := make([]Hash, len(c.meta.Parents))
	copy(parents, c.meta.Parents)
	return parents, nil
}

// MetadataOf returns the stored metadata.
func (m *MockAccessor) MetadataOf(_ context.Context, id Hash) (CommitMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.lookup(MethodMetadataOf, id)
	if err != nil {
		return CommitMetadata{}, err
	}
	md := c.meta
	md.Parents = make([]Hash, len(c.meta.Parents))
	copy(md.Parents, c.meta.Parents)
	return md, nil
}

// TreeEntriesOf returns a copy of the commit snapshot.
func (m *MockAccessor) TreeEntriesOf(_ context.Context, id Hash) (map[string]ContentRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.lookup(MethodTreeEntriesOf, id)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]ContentRef, len(c.files))
	for p, ref := range c.files {
		entries[p] = ref
	}
	return entries, nil
}

// ContentOf returns a blob's bytes.
func (m *MockAccessor) ContentOf(_ context.Context, ref ContentRef) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[MethodContentOf]++

	if err, ok := m.failures[ref.Hash]; ok {
		return nil, err
	}
	data, ok := m.blobs[ref.Hash]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", ref.Hash, ErrObjectNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Refs lists branches and tags sorted by name.
func (m *MockAccessor) Refs(_ context.Context) ([]Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[MethodRefs]++

	refs := make([]Ref, 0, len(m.branches)+len(m.tags))
	for name, id := range m.branches {
		refs = append(refs, Ref{Name: name, Kind: RefBranch, Target: id})
	}
	for name, id := range m.tags {
		refs = append(refs, Ref{Name: name, Kind: RefTag, Target: id})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].Name < refs[j].Name
	})
	return refs, nil
}

// BlobHash returns the identifier the mock assigns to content.
func BlobHash(content string) Hash {
	return plumbing.ComputeHash(plumbing.BlobObject, []byte(content))
}
