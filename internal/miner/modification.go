package miner

import (
	"context"
	"errors"
	"path"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/masmgr/repominer/internal/complexity"
	"github.com/masmgr/repominer/internal/diff"
	"github.com/masmgr/repominer/internal/git"
)

// ChangeKind represents the type of change.
type ChangeKind int

const (
	ChangeKindAdded ChangeKind = iota
	ChangeKindDeleted
	ChangeKindModified
	ChangeKindRenamed
	ChangeKindCopied
)

// String returns a string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeKindAdded:
		return "added"
	case ChangeKindDeleted:
		return "deleted"
	case ChangeKindModified:
		return "modified"
	case ChangeKindRenamed:
		return "renamed"
	case ChangeKindCopied:
		return "copied"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Modification is one file change of a commit relative to one parent.
// Added files have no OldPath and OldRef; deleted files have no NewPath and NewRef.
// Content, diff and complexity are read on first use and cached.
type Modification struct {
	OldPath string
	NewPath string
	Kind    ChangeKind
	// Parent is the commit this change is relative to; zero for a root commit.
	Parent git.Hash
	OldRef git.ContentRef
	NewRef git.ContentRef
	// Similarity is the rename or copy score (0-100); 0 for other kinds.
	Similarity int

	eng *engine

	mu        sync.Mutex
	newData   []byte
	newLoaded bool
	oldData   []byte
	oldLoaded bool

	diffDone bool
	binary   bool
	diffText string
	added    int
	deleted  int

	parsed *diff.Parsed

	complexityDone bool
	report         *complexity.Report
}

// Path returns the new path, or the old path for deletions.
func (m *Modification) Path() string {
	if m.NewPath != "" {
		return m.NewPath
	}
	return m.OldPath
}

// Filename returns the base name of Path.
func (m *Modification) Filename() string {
	return path.Base(m.Path())
}

// Extension returns the file extension of Path, including the dot.
func (m *Modification) Extension() string {
	return path.Ext(m.Path())
}

// Language returns the complexity analyzer variant for the new path.
func (m *Modification) Language() complexity.Language {
	if m.NewPath == "" {
		return complexity.None
	}
	return complexity.LanguageFor(m.NewPath)
}

// Content returns the file after the change; nil for deletions.
func (m *Modification) Content(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contentLocked(ctx)
}

// ContentBefore returns the file before the change; nil for additions.
func (m *Modification) ContentBefore(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contentBeforeLocked(ctx)
}

func (m *Modification) contentLocked(ctx context.Context) ([]byte, error) {
	if m.newLoaded {
		return m.newData, nil
	}
	if !m.NewRef.IsZero() {
		data, err := m.eng.acc.ContentOf(ctx, m.NewRef)
		if err != nil {
			return nil, err
		}
		m.newData = data
	}
	m.newLoaded = true
	return m.newData, nil
}

func (m *Modification) contentBeforeLocked(ctx context.Context) ([]byte, error) {
	if m.oldLoaded {
		return m.oldData, nil
	}
	if !m.OldRef.IsZero() {
		data, err := m.eng.acc.ContentOf(ctx, m.OldRef)
		if err != nil {
			return nil, err
		}
		m.oldData = data
	}
	m.oldLoaded = true
	return m.oldData, nil
}

func (m *Modification) diffLocked(ctx context.Context) error {
	if m.diffDone {
		return nil
	}
	before, err := m.contentBeforeLocked(ctx)
	if err != nil {
		return err
	}
	after, err := m.contentLocked(ctx)
	if err != nil {
		return err
	}

	sniff := m.eng.opts.BinarySniffLength
	m.binary = diff.IsBinary(before, sniff) || diff.IsBinary(after, sniff)
	if !m.binary {
		m.diffText = diff.Unified(string(before), string(after), m.eng.opts.DiffContext)
		m.added, m.deleted = diff.Stats(m.diffText)
	}
	m.diffDone = true
	return nil
}

// IsBinary reports whether either side of the change looks binary.
func (m *Modification) IsBinary(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.diffLocked(ctx); err != nil {
		return false, err
	}
	return m.binary, nil
}

// Diff returns the unified diff hunks of the change. Binary changes and pure
// renames have an empty diff.
func (m *Modification) Diff(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.diffLocked(ctx); err != nil {
		return "", err
	}
	return m.diffText, nil
}

// DiffParsed returns the added and deleted lines of the diff with their line numbers.
func (m *Modification) DiffParsed(ctx context.Context) (diff.Parsed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.parsed != nil {
		return *m.parsed, nil
	}
	if err := m.diffLocked(ctx); err != nil {
		return diff.Parsed{}, err
	}
	p, err := diff.Parse(m.diffText)
	if err != nil {
		return diff.Parsed{}, err
	}
	m.parsed = &p
	return p, nil
}

// LineStats returns the number of added and deleted lines.
func (m *Modification) LineStats(ctx context.Context) (added, deleted int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.diffLocked(ctx); err != nil {
		return 0, 0, err
	}
	return m.added, m.deleted, nil
}

// AddedLines returns the number of added lines.
func (m *Modification) AddedLines(ctx context.Context) (int, error) {
	added, _, err := m.LineStats(ctx)
	return added, err
}

// DeletedLines returns the number of deleted lines.
func (m *Modification) DeletedLines(ctx context.Context) (int, error) {
	_, deleted, err := m.LineStats(ctx)
	return deleted, err
}

// Complexity returns the metrics of the new content. The report is nil when no
// analyzer applies: deletions, unsupported or disabled languages, binary files and
// files that do not parse. Only repository errors are returned.
func (m *Modification) Complexity(ctx context.Context) (*complexity.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.complexityDone {
		return m.report, nil
	}

	lang := m.Language()
	if m.NewRef.IsZero() || !m.eng.languageEnabled(lang) {
		m.complexityDone = true
		return nil, nil
	}

	src, err := m.contentLocked(ctx)
	if err != nil {
		return nil, err
	}
	if diff.IsBinary(src, m.eng.opts.BinarySniffLength) {
		m.complexityDone = true
		return nil, nil
	}

	report, err := complexity.Analyze(ctx, lang, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		level := logrus.WarnLevel
		if errors.Is(err, complexity.ErrNotApplicable) {
			level = logrus.DebugLevel
		}
		m.eng.log.WithFields(logrus.Fields{
			"path":     m.NewPath,
			"language": lang.String(),
			"error":    err,
		}).Log(level, "complexity analysis skipped")
		report = nil
	}

	m.report = report
	m.complexityDone = true
	return report, nil
}

// preload stores content read during rename detection so it is not read twice.
func (m *Modification) preload(before, after []byte) {
	if before != nil {
		m.oldData, m.oldLoaded = before, true
	}
	if after != nil {
		m.newData, m.newLoaded = after, true
	}
}
