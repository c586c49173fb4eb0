package miner

import (
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/masmgr/repominer/internal/git"
)

// Filter is the metadata-only commit predicate of a traversal. It never reads
// trees or blobs.
type Filter struct {
	// Since and To are inclusive committer-time bounds; zero is unbounded.
	Since time.Time
	To    time.Time
	// IDs, when non-nil, is the set of acceptable commits.
	IDs map[git.Hash]struct{}
	// idPrefixes holds abbreviated identifiers when no accessor resolved them.
	idPrefixes []string
	NoMerges   bool
	// Authors holds lower-cased names and emails; empty accepts everyone.
	Authors map[string]struct{}
}

// Accept reports whether a commit passes the window's metadata predicates:
// time range, identifier set, merge exclusion and author set. Identifiers in
// OnlyCommits match by full hash or hash prefix; FromCommit and ToCommit are
// ignored here because they need the repository to resolve.
func Accept(md git.CommitMetadata, w Window) bool {
	f := newFilter(w)
	for _, id := range w.OnlyCommits {
		f.idPrefixes = append(f.idPrefixes, strings.ToLower(strings.TrimSpace(id)))
	}
	return f.Accept(md)
}

func newFilter(w Window) *Filter {
	f := &Filter{Since: w.Since, To: w.To, NoMerges: w.OnlyNoMerges}
	if len(w.OnlyAuthors) > 0 {
		f.Authors = make(map[string]struct{}, len(w.OnlyAuthors))
		for _, a := range w.OnlyAuthors {
			f.Authors[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
		}
	}
	return f
}

// Accept evaluates the predicate on commit metadata.
func (f *Filter) Accept(md git.CommitMetadata) bool {
	when := md.Committer.When
	if !f.Since.IsZero() && when.Before(f.Since) {
		return false
	}
	if !f.To.IsZero() && when.After(f.To) {
		return false
	}
	if f.NoMerges && len(md.Parents) > 1 {
		return false
	}
	if f.IDs != nil {
		if _, ok := f.IDs[md.Hash]; !ok {
			return false
		}
	}
	if len(f.idPrefixes) > 0 && !f.matchesPrefix(md.Hash) {
		return false
	}
	if len(f.Authors) > 0 {
		_, byName := f.Authors[strings.ToLower(md.Author.Name)]
		_, byEmail := f.Authors[md.Author.ContributorKey()]
		if !byName && !byEmail {
			return false
		}
	}
	return true
}

func (f *Filter) matchesPrefix(id git.Hash) bool {
	s := id.String()
	for _, p := range f.idPrefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// PathFilter keeps commits that touch at least one matching path.
type PathFilter struct {
	fileTypes []string
	prefix    string
	include   []string
	exclude   []string
}

// NewPathFilter builds the path predicate of a window.
func NewPathFilter(w Window) PathFilter {
	return PathFilter{
		fileTypes: w.FileTypes,
		prefix:    normalizedPrefix(w.PathPrefix),
		include:   w.Include,
		exclude:   w.Exclude,
	}
}

// Empty reports whether the filter accepts everything.
func (p PathFilter) Empty() bool {
	return len(p.fileTypes) == 0 && p.prefix == "" && len(p.include) == 0 && len(p.exclude) == 0
}

// Match reports whether one path passes every configured predicate.
func (p PathFilter) Match(filePath string) bool {
	if filePath == "" {
		return false
	}
	if len(p.fileTypes) > 0 {
		ok := false
		for _, ft := range p.fileTypes {
			if strings.HasSuffix(filePath, ft) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if p.prefix != "" && filePath != p.prefix && !strings.HasPrefix(filePath, p.prefix+"/") {
		return false
	}
	if len(p.include) > 0 && !matchAny(p.include, filePath) {
		return false
	}
	if matchAny(p.exclude, filePath) {
		return false
	}
	return true
}

// AcceptModifications reports whether any modification touches a matching path.
// Renames match on either side.
func (p PathFilter) AcceptModifications(mods []*Modification) bool {
	if p.Empty() {
		return true
	}
	for _, m := range mods {
		if p.Match(m.NewPath) || p.Match(m.OldPath) {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, filePath string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, filePath); ok {
			return true
		}
	}
	return false
}

func validGlob(pattern string) bool {
	return pattern != "" && doublestar.ValidatePattern(pattern)
}
