package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/repominer/internal/git"
	"github.com/masmgr/repominer/internal/miner"
	"github.com/masmgr/repominer/internal/output"
)

// LogCmd returns the log command.
func LogCmd() *cli.Command {
	flags := append(commonFlags(), windowFlags()...)
	flags = append(flags, outputFlags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:  "stat",
			Usage: "Include per-file line counts",
		},
		&cli.BoolFlag{
			Name:  "with-diff",
			Usage: "Include unified diffs (implies --stat)",
		},
		&cli.BoolFlag{
			Name:  "with-complexity",
			Usage: "Include complexity metrics (implies --stat)",
		},
	)

	return &cli.Command{
		Name:    "log",
		Aliases: []string{"l"},
		Usage:   "Stream commits of a traversal window",
		Flags:   flags,
		Action:  logAction,
	}
}

func logAction(c *cli.Context) error {
	cmdCtx, err := NewCommandContext(c, "")
	if err != nil {
		return err
	}
	defer cmdCtx.Close()

	opts, err := OutputOptions(c, cmdCtx.Config)
	if err != nil {
		return err
	}
	recOpts := output.RecordOptions{
		Files:      c.Bool("stat"),
		Diff:       c.Bool("with-diff") || cmdCtx.Config.Output.WithDiff,
		Complexity: c.Bool("with-complexity"),
	}
	return writeTraversal(c.Context, cmdCtx.Repo, cmdCtx, opts, recOpts)
}

// writeTraversal opens the output destination and streams the window into it.
func writeTraversal(ctx context.Context, acc git.Accessor, cmdCtx *CommandContext, opts output.OutputOptions, recOpts output.RecordOptions) error {
	out, closeOut, err := output.OpenOutput(opts.OutputPath)
	if err != nil {
		return err
	}
	writer := output.NewCommitWriter(opts.Format, out)

	summary, err := streamCommits(ctx, acc, cmdCtx.Window, cmdCtx.Options, writer, cmdCtx.Header(), recOpts, opts.Top)
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	cmdCtx.Logger.WithFields(logrus.Fields{
		"commits": summary.Commits,
		"files":   summary.Files,
	}).Info("traversal finished")
	return nil
}

// streamCommits writes every commit of the window as it is produced. top > 0 stops
// the traversal early; nothing beyond the last written commit is read.
func streamCommits(ctx context.Context, acc git.Accessor, w miner.Window, mopts miner.Options,
	writer output.CommitWriter, header output.Header, recOpts output.RecordOptions, top int) (output.Summary, error) {
	var summary output.Summary

	tr, err := miner.Traverse(ctx, acc, w, mopts)
	if err != nil {
		return summary, err
	}
	if err := writer.Begin(header); err != nil {
		return summary, err
	}

	errTop := errors.New("top reached")
	err = tr.ForEach(ctx, func(c *miner.Commit) error {
		rec, err := output.NewCommitRecord(ctx, c, recOpts)
		if err != nil {
			return fmt.Errorf("commit %s: %w", c.ShortHash(), err)
		}
		if err := writer.WriteCommit(rec); err != nil {
			return err
		}
		summary.Add(rec)
		if top > 0 && summary.Commits >= top {
			return errTop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errTop) {
		return summary, err
	}
	return summary, writer.End(summary)
}
