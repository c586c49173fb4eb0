package miner

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Order is the sequence in which commits are yielded.
type Order int

const (
	// NewestFirst yields by committer time, newest first. Ties are broken by hash.
	NewestFirst Order = iota
	// OldestFirst is NewestFirst reversed.
	OldestFirst
	// Topological never yields a commit before any of its parents.
	Topological
)

func (o Order) String() string {
	switch o {
	case NewestFirst:
		return "newest-first"
	case OldestFirst:
		return "oldest-first"
	case Topological:
		return "topological"
	default:
		return "unknown"
	}
}

// ParseOrder parses an order name. The empty string selects NewestFirst.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "newest-first", "newest", "date", "reverse-chronological":
		return NewestFirst, nil
	case "oldest-first", "oldest", "reverse":
		return OldestFirst, nil
	case "topological", "topo", "topo-order":
		return Topological, nil
	default:
		return 0, fmt.Errorf("%w: %q (expected newest-first, oldest-first or topological)", ErrUnsupportedOrder, s)
	}
}

// MergePolicy selects what a merge commit's modifications are computed against.
type MergePolicy int

const (
	// MergeFirstParent diffs a merge against its first parent only: what the merge
	// changed relative to the mainline.
	MergeFirstParent MergePolicy = iota
	// MergeAllParents diffs a merge against every parent and concatenates the
	// per-parent lists; each Modification records its Parent.
	MergeAllParents
)

func (p MergePolicy) String() string {
	switch p {
	case MergeFirstParent:
		return "first-parent"
	case MergeAllParents:
		return "all-parents"
	default:
		return "unknown"
	}
}

// ParseMergePolicy parses a merge policy name. The empty string selects MergeFirstParent.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first-parent", "first":
		return MergeFirstParent, nil
	case "all-parents", "all":
		return MergeAllParents, nil
	default:
		return 0, fmt.Errorf("%w: unknown merge policy %q", ErrInvalidWindow, s)
	}
}

// Window selects which commits a traversal yields and how.
// The zero value walks the default branch newest-first.
type Window struct {
	// Since and To bound the committer time, inclusive. Zero means unbounded.
	// Like git log --since, the walk stops descending past a commit older than
	// Since, so with committer clock skew in-window ancestors of such a commit
	// are not yielded.
	Since time.Time
	To    time.Time
	// FromCommit and ToCommit bound the committer time by the times of the named
	// commits, inclusive.
	FromCommit string
	ToCommit   string
	// Single pins one commit; nothing else is yielded.
	Single string
	// OnlyCommits restricts the traversal to these commits.
	OnlyCommits []string
	// Branch is walked instead of the default branch.
	Branch string
	// AllBranches walks every local branch.
	AllBranches bool
	Order       Order
	// OnlyNoMerges skips commits with more than one parent.
	OnlyNoMerges bool
	// OnlyAuthors keeps commits whose author name or email is listed.
	OnlyAuthors []string
	// FileTypes keeps commits touching at least one path with one of these suffixes.
	FileTypes []string
	// PathPrefix keeps commits touching at least one path under this prefix.
	PathPrefix string
	// Include and Exclude are doublestar globs. A commit is kept when at least one
	// modified path matches an Include glob (if any) and no Exclude glob.
	Include []string
	Exclude []string
	// MergePolicy controls merge commit modifications.
	MergePolicy MergePolicy
}

// Validate reports conflicting or malformed options. It never touches the repository.
func (w Window) Validate() error {
	if w.Order < NewestFirst || w.Order > Topological {
		return fmt.Errorf("%w: %d", ErrUnsupportedOrder, int(w.Order))
	}
	if w.MergePolicy < MergeFirstParent || w.MergePolicy > MergeAllParents {
		return fmt.Errorf("%w: merge policy %d", ErrInvalidWindow, int(w.MergePolicy))
	}

	if w.Single != "" {
		var others []string
		if !w.Since.IsZero() || !w.To.IsZero() {
			others = append(others, "date range")
		}
		if w.FromCommit != "" || w.ToCommit != "" {
			others = append(others, "commit range")
		}
		if len(w.OnlyCommits) > 0 {
			others = append(others, "only-commits")
		}
		if w.Branch != "" || w.AllBranches {
			others = append(others, "branch")
		}
		if len(others) > 0 {
			return fmt.Errorf("%w: single commit cannot be combined with %s", ErrConfigConflict, strings.Join(others, ", "))
		}
	}

	if !w.Since.IsZero() && w.FromCommit != "" {
		return fmt.Errorf("%w: since and from-commit both set a lower bound", ErrConfigConflict)
	}
	if !w.To.IsZero() && w.ToCommit != "" {
		return fmt.Errorf("%w: to and to-commit both set an upper bound", ErrConfigConflict)
	}
	if !w.Since.IsZero() && !w.To.IsZero() && w.Since.After(w.To) {
		return fmt.Errorf("%w: since %s is after to %s", ErrInvalidWindow,
			w.Since.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}
	if w.Branch != "" && w.AllBranches {
		return fmt.Errorf("%w: branch and all-branches", ErrConfigConflict)
	}

	for _, id := range w.OnlyCommits {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty commit in only-commits", ErrInvalidWindow)
		}
	}
	for _, ft := range w.FileTypes {
		if strings.TrimSpace(ft) == "" {
			return fmt.Errorf("%w: empty file type", ErrInvalidWindow)
		}
	}
	for _, g := range append(append([]string{}, w.Include...), w.Exclude...) {
		if !validGlob(g) {
			return fmt.Errorf("%w: bad glob %q", ErrInvalidWindow, g)
		}
	}
	return nil
}

// normalizedPrefix turns "src/" or "./src" into "src".
func normalizedPrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "./")
	if p == "." || p == "/" {
		return ""
	}
	return strings.TrimPrefix(p, "/")
}
