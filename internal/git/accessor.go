package git

import "context"

// Accessor is the read-only query surface over a repository's object graph.
// Implementations must be safe for concurrent use: independent traversals share one Accessor.
// Every method may fail with ErrObjectNotFound or ErrCorruptObject.
type Accessor interface {
	// DefaultBranch returns the short name of the branch HEAD points at.
	DefaultBranch(ctx context.Context) (string, error)
	// ResolveBranchTip returns the commit a local (or remote-tracking) branch points at.
	ResolveBranchTip(ctx context.Context, name string) (Hash, error)
	// ResolveRevision resolves a full or abbreviated hash, branch, tag or HEAD to a commit.
	ResolveRevision(ctx context.Context, rev string) (Hash, error)
	// ParentsOf returns the ordered parent identifiers of a commit.
	ParentsOf(ctx context.Context, id Hash) ([]Hash, error)
	// MetadataOf returns a commit's metadata without touching its tree.
	MetadataOf(ctx context.Context, id Hash) (CommitMetadata, error)
	// TreeEntriesOf flattens the tree of a commit into path -> content reference.
	// Only file entries (regular, executable, symlink) are returned.
	TreeEntriesOf(ctx context.Context, id Hash) (map[string]ContentRef, error)
	// ContentOf returns the bytes of one file version.
	ContentOf(ctx context.Context, ref ContentRef) ([]byte, error)
	// Refs lists branches and tags, peeled to commits.
	Refs(ctx context.Context) ([]Ref, error)
}

// Compile-time interface conformance checks.
var (
	_ Accessor = (*GoGitAccessor)(nil)
	_ Accessor = (*GitCLIAccessor)(nil)
	_ Accessor = (*MockAccessor)(nil)
)
