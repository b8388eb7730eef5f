package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/gdfetch/pkg/cli/config"
	"github.com/m-mizutani/gdfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/gdfetch/pkg/usecase"
	"github.com/m-mizutani/gdfetch/pkg/utils/progress"
)

func cmdFetch() *cli.Command {
	var (
		httpCfg    config.HTTP
		jobsCfg    config.Jobs
		noProgress bool
	)

	flags := append(httpCfg.Flags(), jobsCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "no-progress",
		Usage:       "Do not print transfer progress",
		Destination: &noProgress,
		Sources:     cli.EnvVars("GDFETCH_NO_PROGRESS"),
	})

	return &cli.Command{
		Name:    "fetch",
		Aliases: []string{"f"},
		Usage:   "Download, extract and flatten model weights",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			jobs, err := jobsCfg.Load()
			if err != nil {
				return err
			}

			var reporter interfaces.ProgressReporter = progress.NewConsole()
			if noProgress {
				reporter = progress.Discard{}
			}

			fetcher := usecase.NewFetcher(
				usecase.WithSessionFactory(httpCfg.NewSession),
				usecase.WithReporter(reporter),
				usecase.WithNoExtract(jobsCfg.NoExtract),
			)

			logger.Info("Starting fetch", "jobs", len(jobs), "dest_root", jobsCfg.DestRoot)
			results, err := fetcher.FetchAll(ctx, jobs)
			if err != nil {
				return err
			}

			cwd, err := os.Getwd()
			if err != nil {
				cwd = ""
			}
			return printEnvSuggestions(c.Root().Writer, cwd, jobsCfg.DestRoot, results)
		},
	}
}
