package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GoGitAccessor reads a repository through go-git.
// go-git's object caches are not goroutine-safe, so every call holds mu.
type GoGitAccessor struct {
	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGoGitAccessor opens the repository at path (the work tree or the .git directory).
func NewGoGitAccessor(path string) (*GoGitAccessor, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", path, ErrRepositoryNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &GoGitAccessor{repo: repo}, nil
}

// NewGoGitAccessorFromRepository wraps an already opened repository.
func NewGoGitAccessorFromRepository(repo *gogit.Repository) *GoGitAccessor {
	return &GoGitAccessor{repo: repo}
}

// DefaultBranch returns the branch HEAD points at.
func (a *GoGitAccessor) DefaultBranch(_ context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ref, err := a.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", classify(err, "reference", plumbing.HEAD)
	}
	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target().Short(), nil
	}
	// Detached HEAD has no branch name.
	return plumbing.HEAD.String(), nil
}

// ResolveBranchTip resolves a local branch first, then a remote-tracking branch.
func (a *GoGitAccessor) ResolveBranchTip(_ context.Context, name string) (Hash, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if name == "" || name == plumbing.HEAD.String() {
		ref, err := a.repo.Head()
		if err != nil {
			return ZeroHash, classify(err, "reference", plumbing.HEAD)
		}
		return ref.Hash(), nil
	}

	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(name),
		plumbing.NewRemoteReferenceName("origin", name),
		plumbing.ReferenceName(name),
	}
	for _, refName := range candidates {
		ref, err := a.repo.Reference(refName, true)
		if err == nil {
			return ref.Hash(), nil
		}
	}
	return ZeroHash, fmt.Errorf("%s: %w", name, ErrBranchNotFound)
}

// ResolveRevision resolves any revision expression go-git understands.
func (a *GoGitAccessor) ResolveRevision(_ context.Context, rev string) (Hash, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h, err := a.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return ZeroHash, fmt.Errorf("revision %q: %w", rev, ErrObjectNotFound)
	}
	return *h, nil
}

// ParentsOf returns the parent hashes of a commit.
func (a *GoGitAccessor) ParentsOf(_ context.Context, id Hash) ([]Hash, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.repo.CommitObject(id)
	if err != nil {
		return nil, classify(err, "commit", id)
	}
	parents := make([]Hash, len(c.ParentHashes))
	copy(parents, c.ParentHashes)
	return parents, nil
}

// MetadataOf decodes a commit object.
func (a *GoGitAccessor) MetadataOf(_ context.Context, id Hash) (CommitMetadata, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.repo.CommitObject(id)
	if err != nil {
		return CommitMetadata{}, classify(err, "commit", id)
	}
	return metadataFromCommit(c), nil
}

func metadataFromCommit(c *object.Commit) CommitMetadata {
	parents := make([]Hash, len(c.ParentHashes))
	copy(parents, c.ParentHashes)
	return CommitMetadata{
		Hash:      c.Hash,
		Author:    Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer: Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Message:   c.Message,
		Parents:   parents,
		Tree:      c.TreeHash,
	}
}

// TreeEntriesOf walks the commit tree and returns every file entry.
func (a *GoGitAccessor) TreeEntriesOf(ctx context.Context, id Hash) (map[string]ContentRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.repo.CommitObject(id)
	if err != nil {
		return nil, classify(err, "commit", id)
	}
	tree, err := a.repo.TreeObject(c.TreeHash)
	if err != nil {
		return nil, classify(err, "tree", c.TreeHash)
	}

	entries := make(map[string]ContentRef)
	files := tree.Files()
	defer files.Close()

	err = files.ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries[f.Name] = ContentRef{Hash: f.Hash, Mode: f.Mode}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, classify(err, "tree", c.TreeHash)
	}
	return entries, nil
}

// ContentOf reads one blob.
func (a *GoGitAccessor) ContentOf(_ context.Context, ref ContentRef) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	blob, err := a.repo.BlobObject(ref.Hash)
	if err != nil {
		return nil, classify(err, "blob", ref.Hash)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, classify(err, "blob", ref.Hash)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classify(err, "blob", ref.Hash)
	}
	return data, nil
}

// Refs lists local branches and tags. Tags that do not point at a commit are skipped.
func (a *GoGitAccessor) Refs(_ context.Context) ([]Ref, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var refs []Ref

	branches, err := a.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	err = branches.ForEach(func(r *plumbing.Reference) error {
		refs = append(refs, Ref{Name: r.Name().Short(), Kind: RefBranch, Target: r.Hash()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	tags, err := a.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	err = tags.ForEach(func(r *plumbing.Reference) error {
		target := r.Hash()
		if tag, err := a.repo.TagObject(target); err == nil {
			c, err := tag.Commit()
			if err != nil {
				return nil
			}
			target = c.Hash
		}
		refs = append(refs, Ref{Name: r.Name().Short(), Kind: RefTag, Target: target})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	return refs, nil
}
