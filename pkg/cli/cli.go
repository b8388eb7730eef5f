package cli

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/gdfetch/pkg/cli/config"
	"github.com/m-mizutani/gdfetch/pkg/domain/types"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	var (
		loggerCfg config.Logger
		sentryCfg config.Sentry
		logger    *slog.Logger
		flush     = func() {}
	)

	app := &cli.Command{
		Name:    "gdfetch",
		Usage:   "Download model weights from a file hosting provider and lay them out for inference",
		Version: types.Version,
		Flags:   append(loggerCfg.Flags(), sentryCfg.Flags()...),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)

			f, err := sentryCfg.Configure()
			if err != nil {
				return nil, err
			}
			flush = f
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdFetch(),
			cmdFlatten(),
		},
	}

	err := app.Run(ctx, args)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))
		if sentryCfg.Enabled() {
			sentry.CaptureException(err)
		}
	}
	flush()

	return err
}
