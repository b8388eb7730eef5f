package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

const mib = 1024 * 1024

// Console prints a single, carriage-return updated progress line per
// transfer.
type Console struct {
	out    io.Writer
	prefix string
}

// Option configures Console.
type Option func(*Console)

// WithOutput sets the destination of progress lines. Default: os.Stdout
func WithOutput(w io.Writer) Option {
	return func(c *Console) {
		c.out = w
	}
}

// WithoutColor disables ANSI colors in the prefix.
func WithoutColor() Option {
	return func(c *Console) {
		c.prefix = "[progress]"
	}
}

// NewConsole creates a Console reporter.
func NewConsole(opts ...Option) *Console {
	c := &Console{
		out:    os.Stdout,
		prefix: color.New(color.FgCyan).Sprint("[progress]"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Progress implements interfaces.ProgressReporter.
func (c *Console) Progress(name string, written, total int64) {
	if total > 0 {
		pct := float64(written) / float64(total) * 100.0
		fmt.Fprintf(c.out, "\r%s %s: %d MiB / %.1f MiB (%.1f%%)",
			c.prefix, name, written/mib, float64(total)/mib, pct)
		return
	}
	fmt.Fprintf(c.out, "\r%s %s: %d MiB", c.prefix, name, written/mib)
}

// Done implements interfaces.ProgressReporter.
func (c *Console) Done(name string, written int64) {
	fmt.Fprintf(c.out, "\n%s %s: %s transferred\n", c.prefix, name, humanize.IBytes(uint64(written)))
}

// Discard ignores all progress.
type Discard struct{}

func (Discard) Progress(string, int64, int64) {}
func (Discard) Done(string, int64)            {}
