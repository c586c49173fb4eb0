package output

import (
	"context"
	"time"

	"github.com/masmgr/repominer/internal/complexity"
	"github.com/masmgr/repominer/internal/miner"
)

// RecordOptions selects what NewCommitRecord computes beyond metadata.
type RecordOptions struct {
	Files      bool
	Diff       bool
	Complexity bool
}

func (o RecordOptions) needsModifications() bool {
	return o.Files || o.Diff || o.Complexity
}

// FileRecord is one modification of a commit.
type FileRecord struct {
	Path            string             `json:"path"`
	OldPath         string             `json:"oldPath,omitempty"`
	Kind            string             `json:"kind"`
	Similarity      int                `json:"similarity,omitempty"`
	Added           int                `json:"added"`
	Deleted         int                `json:"deleted"`
	Binary          bool               `json:"binary,omitempty"`
	Language        string             `json:"language,omitempty"`
	Complexity      *complexity.Report `json:"complexity,omitempty"`
	ComplexityDelta *int               `json:"complexityDelta,omitempty"`
	Diff            string             `json:"diff,omitempty"`
}

// CommitRecord is the serializable view of a commit.
type CommitRecord struct {
	Hash              string             `json:"hash"`
	Author            string             `json:"author"`
	AuthorEmail       string             `json:"authorEmail"`
	AuthoredAt        time.Time          `json:"authoredAt"`
	AuthorTimezone    int                `json:"authorTimezone"`
	Committer         string             `json:"committer"`
	CommitterEmail    string             `json:"committerEmail"`
	CommittedAt       time.Time          `json:"committedAt"`
	CommitterTimezone int                `json:"committerTimezone"`
	Subject           string             `json:"subject"`
	Message           string             `json:"message"`
	Parents           []string           `json:"parents"`
	Merge             bool               `json:"merge"`
	Refs              []string           `json:"refs,omitempty"`
	Stats             *miner.CommitStats `json:"stats,omitempty"`
	Files             []FileRecord       `json:"files,omitempty"`
}

// NewCommitRecord reads what opts asks for from c. Without options only metadata
// is used and no tree or blob is read.
func NewCommitRecord(ctx context.Context, c *miner.Commit, opts RecordOptions) (*CommitRecord, error) {
	rec := &CommitRecord{
		Hash:              c.Hash.String(),
		Author:            c.Author.Name,
		AuthorEmail:       c.Author.Email,
		AuthoredAt:        c.Author.When,
		AuthorTimezone:    c.Author.TimezoneOffset(),
		Committer:         c.Committer.Name,
		CommitterEmail:    c.Committer.Email,
		CommittedAt:       c.Committer.When,
		CommitterTimezone: c.Committer.TimezoneOffset(),
		Subject:           c.Subject(),
		Message:           c.Message,
		Parents:           make([]string, len(c.Parents)),
		Merge:             c.Merge(),
		Refs:              c.Refs,
	}
	for i, p := range c.Parents {
		rec.Parents[i] = p.String()
	}
	if !opts.needsModifications() {
		return rec, nil
	}

	if opts.Complexity {
		if err := c.AnalyzeComplexity(ctx); err != nil {
			return nil, err
		}
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		return nil, err
	}
	rec.Stats = &stats

	mods, err := c.Modifications(ctx)
	if err != nil {
		return nil, err
	}
	rec.Files = make([]FileRecord, 0, len(mods))
	for _, m := range mods {
		fr, err := newFileRecord(ctx, m, opts)
		if err != nil {
			return nil, err
		}
		rec.Files = append(rec.Files, fr)
	}
	return rec, nil
}

func newFileRecord(ctx context.Context, m *miner.Modification, opts RecordOptions) (FileRecord, error) {
	fr := FileRecord{
		Path:       m.Path(),
		Kind:       m.Kind.String(),
		Similarity: m.Similarity,
	}
	if m.OldPath != "" && m.NewPath != "" && m.OldPath != m.NewPath {
		fr.OldPath = m.OldPath
	}
	if lang := m.Language(); lang.Supported() {
		fr.Language = lang.String()
	}

	added, deleted, err := m.LineStats(ctx)
	if err != nil {
		return fr, err
	}
	fr.Added, fr.Deleted = added, deleted
	if fr.Binary, err = m.IsBinary(ctx); err != nil {
		return fr, err
	}

	if opts.Diff {
		if fr.Diff, err = m.Diff(ctx); err != nil {
			return fr, err
		}
	}
	if opts.Complexity {
		if fr.Complexity, err = m.Complexity(ctx); err != nil {
			return fr, err
		}
		delta, ok, err := m.ComplexityDelta(ctx)
		if err != nil {
			return fr, err
		}
		if ok {
			fr.ComplexityDelta = &delta
		}
	}
	return fr, nil
}
