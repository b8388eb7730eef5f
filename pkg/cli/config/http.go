package config

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/gdfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/gdfetch/pkg/infra/session"
)

// HTTP holds outbound HTTP configuration
type HTTP struct {
	UserAgent string
	Timeout   time.Duration
}

// Flags returns CLI flags for HTTP configuration
func (c *HTTP) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "user-agent",
			Usage:       "User-Agent header sent with every request",
			Value:       session.DefaultUserAgent,
			Destination: &c.UserAgent,
			Sources:     cli.EnvVars("GDFETCH_USER_AGENT"),
		},
		&cli.DurationFlag{
			Name:        "http-timeout",
			Usage:       "Timeout of a whole request including the body transfer, 0 for none",
			Value:       0,
			Destination: &c.Timeout,
			Sources:     cli.EnvVars("GDFETCH_HTTP_TIMEOUT"),
		},
	}
}

// NewSession creates a session with its own cookie store.
func (c *HTTP) NewSession() (interfaces.HTTPSession, error) {
	var opts []session.Option
	if c.UserAgent != "" {
		opts = append(opts, session.WithUserAgent(c.UserAgent))
	}
	if c.Timeout > 0 {
		opts = append(opts, session.WithTimeout(c.Timeout))
	}
	return session.New(opts...)
}
