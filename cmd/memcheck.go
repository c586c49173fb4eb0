package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/repominer/config"
	"github.com/masmgr/repominer/internal/memcheck"
)

// MemcheckCmd returns the memcheck command.
func MemcheckCmd() *cli.Command {
	flags := append(commonFlags(),
		&cli.StringFlag{
			Name:  "since",
			Usage: "Start of the measured window (YYYY-MM-DD or RFC3339)",
		},
		&cli.StringFlag{
			Name:  "until",
			Usage: "End of the measured window (YYYY-MM-DD or RFC3339)",
		},
		&cli.Float64Flag{
			Name:  "limit-mb",
			Usage: "Fail when the peak heap exceeds this many MiB (0: no limit)",
		},
	)

	return &cli.Command{
		Name:   "memcheck",
		Usage:  "Traverse a window in three modes and check memory stays bounded",
		Flags:  flags,
		Action: memcheckAction,
	}
}

func memcheckAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if s := c.String("since"); s != "" {
		cfg.Memcheck.Since = s
	}
	if s := c.String("until"); s != "" {
		cfg.Memcheck.To = s
	}
	if c.IsSet("limit-mb") {
		cfg.Memcheck.MaxMemoryMB = c.Float64("limit-mb")
	}

	cmdCtx, err := newMemcheckContext(c, cfg)
	if err != nil {
		return err
	}
	defer cmdCtx.Close()

	mcfg, err := memcheckConfig(cmdCtx)
	if err != nil {
		return err
	}
	results, err := memcheck.RunAll(c.Context, cmdCtx.Repo, mcfg)
	if err != nil {
		return err
	}
	violations := memcheck.Check(results, mcfg)
	printMemcheck(c.App.Writer, results, violations)

	if err := memcheck.Fatal(violations); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return nil
}

// newMemcheckContext opens the repository with the memcheck window taken from cfg.
func newMemcheckContext(c *cli.Context, cfg *config.Config) (*CommandContext, error) {
	since, err := parseDateFlag(cfg.Memcheck.Since)
	if err != nil {
		return nil, fmt.Errorf("invalid since date: %w", err)
	}
	until, err := parseDateFlag(cfg.Memcheck.To)
	if err != nil {
		return nil, fmt.Errorf("invalid until date: %w", err)
	}
	until = endOfDay(cfg.Memcheck.To, until)

	window, err := buildWindow(cfg, windowBounds{Since: since, Until: until})
	if err != nil {
		return nil, err
	}
	logger := newLogger(c)
	opts, err := buildOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	repo, err := openRepository(c, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Config:  cfg,
		Repo:    repo,
		Window:  window,
		Options: opts,
		Logger:  logger,
		Since:   since,
		Until:   until,
	}, nil
}

func memcheckConfig(cmdCtx *CommandContext) (memcheck.Config, error) {
	diffLimit, err := cmdCtx.Config.Memcheck.DiffLimit()
	if err != nil {
		return memcheck.Config{}, err
	}
	complexityLimit, err := cmdCtx.Config.Memcheck.ComplexityLimit()
	if err != nil {
		return memcheck.Config{}, err
	}
	return memcheck.Config{
		Window:                cmdCtx.Window,
		Options:               cmdCtx.Options,
		MaxMemoryMB:           cmdCtx.Config.Memcheck.MaxMemoryMB,
		MaxDiffDuration:       diffLimit,
		MaxComplexityDuration: complexityLimit,
		Logger:                cmdCtx.Logger,
	}, nil
}

func printMemcheck(w io.Writer, results []memcheck.Result, violations []memcheck.Violation) {
	okColor := color.New(color.FgGreen)
	warnColor := color.New(color.FgYellow)
	failColor := color.New(color.FgRed, color.Bold)

	for _, r := range results {
		fmt.Fprintln(w, r.String())
	}
	if len(violations) == 0 {
		okColor.Fprintln(w, "OK: all modes agree and stay within limits")
		return
	}
	for _, v := range violations {
		if v.Fatal {
			failColor.Fprintf(w, "FAIL %s\n", v.Error())
		} else {
			warnColor.Fprintf(w, "WARN %s\n", v.Error())
		}
	}
}
