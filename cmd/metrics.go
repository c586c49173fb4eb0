package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/repominer/config"
	"github.com/masmgr/repominer/internal/aggregation"
	"github.com/masmgr/repominer/internal/bugfix"
	"github.com/masmgr/repominer/internal/burst"
	"github.com/masmgr/repominer/internal/coupling"
	"github.com/masmgr/repominer/internal/git"
	"github.com/masmgr/repominer/internal/miner"
	"github.com/masmgr/repominer/internal/output"
)

// MetricsCmd returns the metrics command.
func MetricsCmd() *cli.Command {
	flags := append(commonFlags(), windowFlags()...)
	flags = append(flags, outputFlags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:  "coupling",
			Usage: "Include change coupling between files",
		},
		&cli.IntFlag{
			Name:  "min-co-commits",
			Usage: "Minimum co-commits for a coupled pair",
		},
		&cli.StringSliceFlag{
			Name:  "bug-patterns",
			Usage: "Regex patterns marking bug-fix commits (overrides config)",
		},
		&cli.IntFlag{
			Name:  "burst-window",
			Usage: "Window size in days for burst detection",
		},
	)

	return &cli.Command{
		Name:    "metrics",
		Aliases: []string{"m"},
		Usage:   "Aggregate per-file process metrics over a traversal window",
		Flags:   flags,
		Action:  metricsAction,
	}
}

// metricsRequest selects what collectMetrics computes besides the base file metrics.
type metricsRequest struct {
	Coupling     config.CouplingConfig
	WithCoupling bool
	Fixes        aggregation.FixClassifier // nil skips fix counting
	BurstDays    int
	Top          int
}

// resolveBugPatterns prefers --bug-patterns over the configured patterns.
func resolveBugPatterns(c *cli.Context, cfg *config.Config) []string {
	if patterns := c.StringSlice("bug-patterns"); len(patterns) > 0 {
		return patterns
	}
	return cfg.Bugfix.Patterns
}

func metricsAction(c *cli.Context) error {
	cmdCtx, err := NewCommandContext(c, "")
	if err != nil {
		return err
	}
	defer cmdCtx.Close()

	cfg := cmdCtx.Config
	if c.IsSet("min-co-commits") {
		cfg.Coupling.MinCoCommits = c.Int("min-co-commits")
	}
	if c.IsSet("burst-window") {
		cfg.Burst.WindowDays = c.Int("burst-window")
	}
	opts, err := OutputOptions(c, cfg)
	if err != nil {
		return err
	}

	req := metricsRequest{
		Coupling:     cfg.Coupling,
		WithCoupling: c.Bool("coupling"),
		BurstDays:    cfg.Burst.WindowDays,
		Top:          opts.Top,
	}
	detector, err := bugfix.NewDetector(resolveBugPatterns(c, cfg))
	if err != nil {
		return err
	}
	if detector.Enabled() {
		req.Fixes = detector
	}

	report, err := collectMetrics(c.Context, cmdCtx.Repo, cmdCtx.Window, cmdCtx.Options, req)
	if err != nil {
		return err
	}
	report.Header = cmdCtx.Header()
	cmdCtx.Logger.WithFields(logrus.Fields{
		"commits": report.Commits,
		"files":   len(report.Files),
	}).Info("metrics collected")

	out, closeOut, err := output.OpenOutput(opts.OutputPath)
	if err != nil {
		return err
	}
	err = output.NewMetricsReportWriter(opts.Format).Write(report, out)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}

// collectMetrics aggregates the window in one pass. Renames are only followed
// parents first, so newest-first windows are walked oldest-first instead.
func collectMetrics(ctx context.Context, acc git.Accessor, w miner.Window, opts miner.Options, req metricsRequest) (*output.MetricsReport, error) {
	if w.Order == miner.NewestFirst {
		w.Order = miner.OldestFirst
	}
	tr, err := miner.Traverse(ctx, acc, w, opts)
	if err != nil {
		return nil, err
	}

	agg := aggregation.NewFileMetricsAggregator()
	if req.Fixes != nil {
		agg.SetFixClassifier(req.Fixes)
	}
	analyzer := coupling.NewAnalyzer(req.Coupling)
	err = tr.ForEach(ctx, func(c *miner.Commit) error {
		if err := agg.AddCommit(ctx, c); err != nil {
			return err
		}
		if req.WithCoupling {
			return analyzer.AddCommit(ctx, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics := agg.GetMetrics()
	burst.NewCalculator(req.BurstDays).Compute(metrics)

	report := &output.MetricsReport{Commits: agg.Commits()}
	for _, m := range aggregation.Ranked(metrics, req.Top) {
		report.Files = append(report.Files, output.NewFileMetricsRow(m))
	}
	if req.WithCoupling {
		report.Couplings = analyzer.Result().Couplings
	}
	return report, nil
}
