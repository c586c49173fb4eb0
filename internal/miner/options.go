package miner

import (
	"io"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/masmgr/repominer/internal/complexity"
	"github.com/masmgr/repominer/internal/diff"
	"github.com/masmgr/repominer/internal/git"
)

// Defaults applied by Options for zero values.
const (
	DefaultRenameThreshold = 50
	DefaultRenameLimit     = 1000
)

// NoContext requests unified diffs without context lines.
const NoContext = -1

// Options tunes how modifications, diffs and complexity are computed.
// Zero values select the defaults.
type Options struct {
	Logger logrus.FieldLogger
	// DiffContext is the number of context lines in unified diffs (default 3).
	// Use NoContext for none.
	DiffContext int
	// DisableRenames reports renames as a deletion plus an addition.
	DisableRenames bool
	// RenameThreshold is the minimum similarity (0-100) for a rename or copy (default 50).
	RenameThreshold int
	// RenameLimit caps deleted×added candidate pairs for inexact rename detection
	// (default 1000). Exact renames are always detected.
	RenameLimit int
	// DetectCopies reports added files similar to an existing file as copies.
	DetectCopies bool
	// BinarySniffLength is how many leading bytes are checked for NUL (default 8000).
	BinarySniffLength int
	// ComplexityWorkers bounds Commit.AnalyzeComplexity fan-out (default GOMAXPROCS).
	ComplexityWorkers int
	// Languages restricts complexity analysis; empty enables every supported language.
	Languages []complexity.Language
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
	switch {
	case o.DiffContext == 0:
		o.DiffContext = diff.DefaultContext
	case o.DiffContext < 0:
		o.DiffContext = 0
	}
	if o.RenameThreshold <= 0 {
		o.RenameThreshold = DefaultRenameThreshold
	}
	if o.RenameThreshold > 100 {
		o.RenameThreshold = 100
	}
	if o.RenameLimit <= 0 {
		o.RenameLimit = DefaultRenameLimit
	}
	if o.BinarySniffLength <= 0 {
		o.BinarySniffLength = diff.SniffLen
	}
	if o.ComplexityWorkers <= 0 {
		o.ComplexityWorkers = runtime.GOMAXPROCS(0)
	}
	return o
}

// engine is shared by every Commit and Modification of one traversal.
// It is read-only after construction.
type engine struct {
	acc       git.Accessor
	opts      Options
	log       logrus.FieldLogger
	languages map[complexity.Language]bool
}

func newEngine(acc git.Accessor, opts Options) *engine {
	opts = opts.withDefaults()
	e := &engine{acc: acc, opts: opts, log: opts.Logger}
	if len(opts.Languages) > 0 {
		e.languages = make(map[complexity.Language]bool, len(opts.Languages))
		for _, l := range opts.Languages {
			e.languages[l] = true
		}
	}
	return e
}

func (e *engine) languageEnabled(l complexity.Language) bool {
	if !l.Supported() {
		return false
	}
	return e.languages == nil || e.languages[l]
}
