package git

import (
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// Hash is a content-addressed object identifier.
type Hash = plumbing.Hash

// ZeroHash is the empty identifier.
var ZeroHash = plumbing.ZeroHash

// Signature identifies an author or committer at a point in time.
// When keeps the timezone recorded in the commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// ContributorKey returns a normalized identifier for grouping contributors.
func (s Signature) ContributorKey() string {
	return strings.ToLower(s.Email)
}

// TimezoneOffset returns the recorded UTC offset in seconds east of UTC.
func (s Signature) TimezoneOffset() int {
	_, offset := s.When.Zone()
	return offset
}

// CommitMetadata holds everything about a commit that does not require reading its tree.
type CommitMetadata struct {
	Hash      Hash
	Author    Signature
	Committer Signature
	Message   string
	Parents   []Hash
	Tree      Hash
}

// ContentRef points at one file version inside a tree.
type ContentRef struct {
	Hash Hash
	Mode filemode.FileMode
}

// IsZero reports whether the reference points at nothing.
func (r ContentRef) IsZero() bool {
	return r.Hash.IsZero()
}

// RefKind distinguishes branches from tags.
type RefKind int

const (
	RefBranch RefKind = iota
	RefTag
)

// String returns a string representation of the ref kind.
func (k RefKind) String() string {
	switch k {
	case RefBranch:
		return "branch"
	case RefTag:
		return "tag"
	default:
		return "unknown"
	}
}

// Ref is a named pointer to a commit. Annotated tags are peeled.
type Ref struct {
	Name   string
	Kind   RefKind
	Target Hash
}
