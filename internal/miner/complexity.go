package miner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/masmgr/repominer/internal/complexity"
)

// AnalyzeComplexity computes the complexity of every modification concurrently,
// bounded by Options.ComplexityWorkers. Results are cached on each Modification.
func (c *Commit) AnalyzeComplexity(ctx context.Context) error {
	mods, err := c.Modifications(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.eng.opts.ComplexityWorkers)
	for _, m := range mods {
		g.Go(func() error {
			_, err := m.Complexity(gctx)
			return err
		})
	}
	return g.Wait()
}

// ComplexityDelta returns the change in file cyclomatic complexity (after minus
// before) for a modified file in a supported language. ok is false when either
// side cannot be analyzed.
func (m *Modification) ComplexityDelta(ctx context.Context) (delta int, ok bool, err error) {
	after, err := m.Complexity(ctx)
	if err != nil || after == nil || m.OldRef.IsZero() {
		return 0, false, err
	}

	lang := complexity.LanguageFor(m.OldPath)
	if !m.eng.languageEnabled(lang) {
		return 0, false, nil
	}
	src, err := m.ContentBefore(ctx)
	if err != nil {
		return 0, false, err
	}
	before, err := complexity.Analyze(ctx, lang, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, false, ctxErr
		}
		return 0, false, nil
	}
	return after.CyclomaticComplexity - before.CyclomaticComplexity, true, nil
}
