package cli

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/gdfetch/pkg/infra/fsys"
	"github.com/m-mizutani/gdfetch/pkg/usecase"
)

func cmdFlatten() *cli.Command {
	return &cli.Command{
		Name:      "flatten",
		Usage:     "Promote nested model directories up to the given directories",
		ArgsUsage: "DIR [DIR...]",
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			dirs := c.Args().Slice()
			if len(dirs) == 0 {
				return goerr.New("at least one directory is required")
			}

			flattener := usecase.NewFlattener(fsys.New())
			for _, dir := range dirs {
				found, err := flattener.Flatten(ctx, dir)
				if err != nil {
					return err
				}
				if found == nil {
					logger.Warn("Model directory not detected", "dir", dir)
					continue
				}
				fmt.Fprintln(c.Root().Writer, found.Path)
			}
			return nil
		},
	}
}
