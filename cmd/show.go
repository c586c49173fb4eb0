package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/masmgr/repominer/internal/output"
)

// ShowCmd returns the show command.
func ShowCmd() *cli.Command {
	flags := append(commonFlags(), outputFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:     "commit",
			Usage:    "Commit to show (hash, abbreviated hash, branch or tag)",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "no-diff",
			Usage: "Omit unified diffs",
		},
		&cli.BoolFlag{
			Name:  "no-complexity",
			Usage: "Omit complexity metrics",
		},
	)

	return &cli.Command{
		Name:    "show",
		Aliases: []string{"s"},
		Usage:   "Show one commit with its modifications",
		Flags:   flags,
		Action:  showAction,
	}
}

func showAction(c *cli.Context) error {
	cmdCtx, err := NewCommandContext(c, c.String("commit"))
	if err != nil {
		return err
	}
	defer cmdCtx.Close()

	opts, err := OutputOptions(c, cmdCtx.Config)
	if err != nil {
		return err
	}
	recOpts := output.RecordOptions{
		Files:      true,
		Diff:       !c.Bool("no-diff"),
		Complexity: !c.Bool("no-complexity"),
	}
	return writeTraversal(c.Context, cmdCtx.Repo, cmdCtx, opts, recOpts)
}
