package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"qedit/internal/config"
	"qedit/internal/exitcode"
	"qedit/internal/output"
	"qedit/internal/service"
)

func init() {
	Register(&QueueCmd{})
}

// QueueCmd implements the queue command.
// Handles both `qedit` (no args) and `qedit queue`.
type QueueCmd struct {
	all bool
}

// SetAll sets whether history is printed (for testing).
func (c *QueueCmd) SetAll(all bool) {
	c.all = all
}

func (c *QueueCmd) Name() string      { return "queue" }
func (c *QueueCmd) Aliases() []string { return []string{"ls"} }
func (c *QueueCmd) Synopsis() string  { return "Show the running task and the pending queue" }
func (c *QueueCmd) Usage() string     { return "qedit queue [--all]" }
func (c *QueueCmd) NeedsAuth() bool   { return true }

func (c *QueueCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
}

func (c *QueueCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	state, err := svc.QueueState(ctx)
	if err != nil {
		return reportError(errOut, err)
	}
	snap, err := svc.QueueSnapshot(ctx)
	if err != nil {
		return reportError(errOut, err)
	}

	fmt.Fprintf(out, "state: %s\n", state)

	if c.all && len(snap.History) > 0 {
		output.FormatSectionHeader(out, "History")
		for i, rec := range snap.History {
			output.FormatRecord(out, i, rec)
		}
	}

	if len(snap.Running) > 0 {
		output.FormatSectionHeader(out, "Running")
		for i, rec := range snap.Running {
			output.FormatRecord(out, i, rec)
		}
	}

	output.FormatSectionHeader(out, "Queue")
	for i, rec := range snap.Queued {
		output.FormatRecord(out, i, rec)
	}
	if len(snap.Queued) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no queued tasks")
	}
	return exitcode.Success
}
