package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"

	"qedit/internal/config"
	"qedit/internal/editor"
	"qedit/internal/exitcode"
	"qedit/internal/service"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	yes bool
}

// SetYes skips the removal confirmation (for testing).
func (c *RmCmd) SetYes(yes bool) {
	c.yes = yes
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"remove"} }
func (c *RmCmd) Synopsis() string  { return "Remove queued tasks" }
func (c *RmCmd) Usage() string     { return "qedit rm [--yes] <ref>..." }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) == 0 {
		return reportError(errOut, ErrTaskRefRequired)
	}
	refs := make([]TaskRef, 0, len(args))
	for _, arg := range args {
		ref, err := ParseTaskRef(arg)
		if err != nil {
			return reportError(errOut, err)
		}
		refs = append(refs, ref)
	}

	ctl, err := editor.Open(ctx, svc, cfg.Logger)
	if err != nil {
		return reportError(errOut, err)
	}

	// Resolve every ref before removing anything so positions refer to the
	// queue as it was fetched.
	s := ctl.Session()
	var targets []*editor.Task
	for _, ref := range refs {
		task, rerr := ResolveTaskRef(s, ref)
		if rerr != nil {
			cancelEdit(ctx, ctl, errOut)
			return reportError(errOut, rerr)
		}
		targets = append(targets, task)
	}
	for _, task := range targets {
		s.Remove(task.UUID)
	}

	if err := commitEdit(ctx, ctl, bufio.NewScanner(in), out, c.yes); err != nil {
		cancelEdit(ctx, ctl, errOut)
		return reportCommitError(errOut, ctl, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
