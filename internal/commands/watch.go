package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"qedit/internal/config"
	"qedit/internal/exitcode"
	"qedit/internal/service"
)

// DefaultWatchInterval is the polling interval of the watch command.
const DefaultWatchInterval = 2 * time.Second

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command. It polls the queue iteration and
// prints a summary line whenever the queue changes.
type WatchCmd struct {
	interval time.Duration
	count    int
}

// SetInterval sets the polling interval (for testing).
func (c *WatchCmd) SetInterval(d time.Duration) {
	c.interval = d
}

// SetCount sets how many summaries are printed before returning (for testing).
func (c *WatchCmd) SetCount(n int) {
	c.count = n
}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Print a line whenever the queue changes" }
func (c *WatchCmd) Usage() string     { return "qedit watch [--interval <duration>] [--count <n>]" }
func (c *WatchCmd) NeedsAuth() bool   { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.DurationVar(&c.interval, "interval", DefaultWatchInterval, "")
	fs.IntVar(&c.count, "count", 0, "")
	fs.IntVar(&c.count, "n", 0, "")
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, in io.Reader, out, errOut io.Writer) int {
	if c.interval <= 0 {
		fmt.Fprintf(errOut, "error: invalid interval: %s\n", c.interval)
		return exitcode.UserError
	}
	if c.count < 0 {
		fmt.Fprintf(errOut, "error: invalid count: %d\n", c.count)
		return exitcode.UserError
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var (
		last    float64
		seen    bool
		printed int
	)
	for {
		it, err := svc.QueueIteration(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return exitcode.Success
			}
			return reportError(errOut, err)
		}

		if !seen || it != last {
			cfg.Logger.Debug("queue changed", "iteration", it)
			seen, last = true, it
			if err := c.printSummary(ctx, svc, out); err != nil {
				if ctx.Err() != nil {
					return exitcode.Success
				}
				return reportError(errOut, err)
			}
			printed++
			if c.count > 0 && printed >= c.count {
				return exitcode.Success
			}
		}

		select {
		case <-ctx.Done():
			return exitcode.Success
		case <-ticker.C:
		}
	}
}

func (c *WatchCmd) printSummary(ctx context.Context, svc service.Service, out io.Writer) error {
	state, err := svc.QueueState(ctx)
	if err != nil {
		return err
	}
	snap, err := svc.QueueSnapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "state: %s, running: %d, queued: %d\n", state, len(snap.Running), len(snap.Queued))
	return nil
}
