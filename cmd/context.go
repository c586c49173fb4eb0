package cmd

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/repominer/config"
	"github.com/masmgr/repominer/internal/complexity"
	"github.com/masmgr/repominer/internal/git"
	"github.com/masmgr/repominer/internal/miner"
	"github.com/masmgr/repominer/internal/output"
)

// CommandContext holds common state for command execution.
// It encapsulates the shared setup logic across all commands.
type CommandContext struct {
	Config  *config.Config
	Repo    *git.Repository
	Window  miner.Window
	Options miner.Options
	Logger  *logrus.Logger
	Since   *time.Time
	Until   *time.Time
}

// windowBounds are the window settings that only come from flags.
type windowBounds struct {
	Since       *time.Time
	Until       *time.Time
	FromCommit  string
	ToCommit    string
	Single      string
	OnlyCommits []string
}

// NewCommandContext creates a context from CLI flags.
// It performs configuration loading, date parsing and repository opening.
// The caller must Close it.
func NewCommandContext(c *cli.Context, single string) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger := newLogger(c)

	since, err := parseDateFlag(c.String("since"))
	if err != nil {
		return nil, fmt.Errorf("invalid since date: %w", err)
	}
	until, err := parseDateFlag(c.String("until"))
	if err != nil {
		return nil, fmt.Errorf("invalid until date: %w", err)
	}
	until = endOfDay(c.String("until"), until)

	from, to, err := commitBounds(c.String("range"), c.String("from-commit"), c.String("to-commit"))
	if err != nil {
		return nil, err
	}

	window, err := buildWindow(cfg, windowBounds{
		Since:       since,
		Until:       until,
		FromCommit:  from,
		ToCommit:    to,
		Single:      single,
		OnlyCommits: c.StringSlice("only-commits"),
	})
	if err != nil {
		return nil, err
	}
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

func openRepository(c *cli.Context, cfg *config.Config, logger logrus.FieldLogger) (*git.Repository, error) {
	backend, err := git.ParseBackend(cfg.Repository.Backend)
	if err != nil {
		return nil, err
	}
	repo, err := git.Open(c.Context, cfg.Repository.Path, git.OpenOptions{
		Backend:  backend,
		CloneDir: cfg.Repository.CloneDir,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return repo, nil
}

// Close releases the repository, removing temporary clones.
func (ctx *CommandContext) Close() error {
	return ctx.Repo.Close()
}

// Header describes the traversal for report writers.
func (ctx *CommandContext) Header() output.Header {
	branch := ctx.Window.Branch
	if ctx.Window.AllBranches {
		branch = "(all branches)"
	}
	return output.Header{
		RepoPath:    ctx.Repo.Location,
		Branch:      branch,
		Order:       ctx.Window.Order.String(),
		Since:       ctx.Since,
		Until:       ctx.Until,
		GeneratedAt: time.Now(),
	}
}

// commitBounds expands --range into commit bounds. It cannot be combined with
// --from-commit or --to-commit.
func commitBounds(rangeSpec, from, to string) (string, string, error) {
	if rangeSpec == "" {
		return from, to, nil
	}
	if from != "" || to != "" {
		return "", "", fmt.Errorf("%w: --range cannot be combined with --from-commit or --to-commit", miner.ErrConfigConflict)
	}
	return git.ParseRange(rangeSpec)
}

func buildWindow(cfg *config.Config, b windowBounds) (miner.Window, error) {
	order, err := miner.ParseOrder(cfg.Traversal.Order)
	if err != nil {
		return miner.Window{}, err
	}
	policy, err := miner.ParseMergePolicy(cfg.Traversal.MergePolicy)
	if err != nil {
		return miner.Window{}, err
	}

	w := miner.Window{
		Single:       b.Single,
		FromCommit:   b.FromCommit,
		ToCommit:     b.ToCommit,
		OnlyCommits:  b.OnlyCommits,
		Branch:       cfg.Traversal.Branch,
		AllBranches:  cfg.Traversal.AllBranches,
		Order:        order,
		OnlyNoMerges: cfg.Traversal.NoMerges,
		OnlyAuthors:  cfg.Filters.Authors,
		FileTypes:    cfg.Filters.FileTypes,
		PathPrefix:   cfg.Filters.Path,
		Include:      cfg.Filters.Include,
		Exclude:      cfg.Filters.Exclude,
		MergePolicy:  policy,
	}
	if b.Since != nil {
		w.Since = *b.Since
	}
	if b.Until != nil {
		w.To = *b.Until
	}
	if err := w.Validate(); err != nil {
		return miner.Window{}, err
	}
	return w, nil
}

func buildOptions(cfg *config.Config, logger logrus.FieldLogger) (miner.Options, error) {
	langs := make([]complexity.Language, 0, len(cfg.Complexity.Languages))
	for _, name := range cfg.Complexity.Languages {
		l, err := complexity.ParseLanguage(name)
		if err != nil {
			return miner.Options{}, err
		}
		langs = append(langs, l)
	}

	diffContext := cfg.Diff.Context
	if diffContext == 0 {
		diffContext = miner.NoContext
	}

	return miner.Options{
		Logger:            logger,
		DiffContext:       diffContext,
		DisableRenames:    cfg.Diff.DisableRenames,
		RenameThreshold:   cfg.Diff.RenameThreshold,
		RenameLimit:       cfg.Diff.RenameLimit,
		DetectCopies:      cfg.Diff.DetectCopies,
		BinarySniffLength: cfg.Diff.BinarySniffLength,
		ComplexityWorkers: cfg.Complexity.Workers,
		Languages:         langs,
	}, nil
}

// OutputOptions creates OutputOptions from CLI flags and configuration.
func OutputOptions(c *cli.Context, cfg *config.Config) (output.OutputOptions, error) {
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return output.OutputOptions{}, err
	}
	return output.OutputOptions{
		Format:     format,
		Top:        cfg.Output.Top,
		OutputPath: c.String("output"),
	}, nil
}
