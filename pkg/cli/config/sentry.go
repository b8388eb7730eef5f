package config

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/gdfetch/pkg/domain/types"
)

// Sentry holds error reporting configuration
type Sentry struct {
	DSN string
	Env string
}

// Flags returns CLI flags for Sentry configuration
func (c *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN, error reporting is disabled when empty",
			Destination: &c.DSN,
			Sources:     cli.EnvVars("GDFETCH_SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Value:       "production",
			Destination: &c.Env,
			Sources:     cli.EnvVars("GDFETCH_SENTRY_ENV"),
		},
	}
}

// Enabled reports whether a DSN is set.
func (c *Sentry) Enabled() bool {
	return c.DSN != ""
}

// Configure initializes the Sentry client. The returned function flushes
// pending events and must be called before exit.
func (c *Sentry) Configure() (func(), error) {
	if !c.Enabled() {
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         c.DSN,
		Environment: c.Env,
		Release:     "gdfetch@" + types.Version,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to initialize sentry", goerr.V("env", c.Env))
	}

	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}
