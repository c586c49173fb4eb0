package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/repominer/config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "repominer",
		Usage:   "Mine commits, modifications and complexity from Git repositories",
		Version: "0.3.0",
		Commands: []*cli.Command{
			LogCmd(),
			ShowCmd(),
			MetricsCmd(),
			MemcheckCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log progress to stderr",
			},
		},
		Action: defaultAction,
	}
}

// Common flags shared across commands
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "Path or clone URL of the Git repository",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Repository backend (go-git, git)",
		},
		&cli.StringFlag{
			Name:    "branch",
			Aliases: []string{"b"},
			Usage:   "Branch to traverse (default: the branch HEAD points at)",
		},
		&cli.BoolFlag{
			Name:  "all-branches",
			Usage: "Traverse every local branch",
		},
		&cli.IntFlag{
			Name:  "rename-threshold",
			Usage: "Minimum similarity (0-100) for rename and copy detection",
		},
		&cli.BoolFlag{
			Name:  "no-renames",
			Usage: "Report renames as a deletion plus an addition",
		},
		&cli.BoolFlag{
			Name:  "find-copies",
			Usage: "Report added files similar to an existing file as copies",
		},
		&cli.StringFlag{
			Name:  "merge-policy",
			Usage: "Diff merges against the first parent or all parents (first-parent, all-parents)",
		},
		&cli.StringSliceFlag{
			Name:  "language",
			Usage: "Restrict complexity analysis to these languages (can be specified multiple times)",
		},
	}
}

// windowFlags select which commits are traversed.
func windowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "since",
			Usage: "Commits committed at or after this date (YYYY-MM-DD or RFC3339)",
		},
		&cli.StringFlag{
			Name:  "until",
			Usage: "Commits committed at or before this date (YYYY-MM-DD or RFC3339)",
		},
		&cli.StringFlag{
			Name:  "from-commit",
			Usage: "Commits committed at or after this commit",
		},
		&cli.StringFlag{
			Name:  "to-commit",
			Usage: "Commits committed at or before this commit",
		},
		&cli.StringFlag{
			Name:  "range",
			Usage: "Commit range 'from..to' (shorthand for --from-commit and --to-commit; empty 'to' is HEAD)",
		},
		&cli.StringSliceFlag{
			Name:  "only-commits",
			Usage: "Only these commits (can be specified multiple times)",
		},
		&cli.StringFlag{
			Name:  "order",
			Usage: "Traversal order (newest, oldest, topo)",
		},
		&cli.BoolFlag{
			Name:  "no-merges",
			Usage: "Skip merge commits",
		},
		&cli.StringSliceFlag{
			Name:  "author",
			Usage: "Only commits by this author name or email (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "file-types",
			Usage: "Only commits touching files with these extensions (can be specified multiple times)",
		},
		&cli.StringFlag{
			Name:  "path",
			Usage: "Only commits touching files under this directory",
		},
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns to include (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns to exclude (can be specified multiple times)",
		},
	}
}

// outputFlags control how records are rendered.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (console, json, csv, markdown, ci)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: stdout)",
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "Stop after this many commits (0: all)",
		},
	}
}

// parseDateFlag parses a date string flag.
func parseDateFlag(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD or RFC3339)", s)
	}
	return &t, nil
}

// endOfDay widens a date-only bound so the whole day is included.
func endOfDay(s string, t *time.Time) *time.Time {
	if t == nil || len(strings.TrimSpace(s)) != len("2006-01-02") {
		return t
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}

// loadConfig loads configuration from file or defaults and applies CLI overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if repo := c.String("repo"); repo != "" {
		cfg.Repository.Path = repo
	}
	if backend := c.String("backend"); backend != "" {
		cfg.Repository.Backend = backend
	}
	if branch := c.String("branch"); branch != "" {
		cfg.Traversal.Branch = branch
	}
	if c.Bool("all-branches") {
		cfg.Traversal.AllBranches = true
	}
	if order := c.String("order"); order != "" {
		cfg.Traversal.Order = order
	}
	if policy := c.String("merge-policy"); policy != "" {
		cfg.Traversal.MergePolicy = policy
	}
	if c.Bool("no-merges") {
		cfg.Traversal.NoMerges = true
	}

	if c.IsSet("rename-threshold") {
		cfg.Diff.RenameThreshold = c.Int("rename-threshold")
	}
	if c.Bool("no-renames") {
		cfg.Diff.DisableRenames = true
	}
	if c.Bool("find-copies") {
		cfg.Diff.DetectCopies = true
	}
	if langs := c.StringSlice("language"); len(langs) > 0 {
		cfg.Complexity.Languages = langs
	}

	// Apply filter overrides from CLI
	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Filters.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Filters.Exclude = excludes
	}
	if types := c.StringSlice("file-types"); len(types) > 0 {
		cfg.Filters.FileTypes = types
	}
	if p := c.String("path"); p != "" {
		cfg.Filters.Path = p
	}
	if authors := c.StringSlice("author"); len(authors) > 0 {
		cfg.Filters.Authors = authors
	}

	if format := c.String("format"); format != "" {
		cfg.Output.Format = format
	}
	if c.IsSet("top") {
		cfg.Output.Top = c.Int("top")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns a stderr logger; it only reports warnings unless --verbose is set.
func newLogger(c *cli.Context) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.WarnLevel)
	if c.Bool("verbose") {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// defaultAction treats a bare repository argument as "log --repo <arg>".
func defaultAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.ShowAppHelp(c)
	}
	args := append([]string{c.App.Name, "log", "--repo"}, c.Args().Slice()...)
	return c.App.RunContext(c.Context, args)
}

// Run executes the CLI application. Interrupts cancel the running traversal.
func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := App().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
