package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"qedit/internal/config"
	"qedit/internal/editor"
	"qedit/internal/exitcode"
	"qedit/internal/service"
)

func init() {
	Register(&MvCmd{})
}

// MvCmd implements the mv command.
type MvCmd struct{}

func (c *MvCmd) Name() string      { return "mv" }
func (c *MvCmd) Aliases() []string { return []string{"move"} }
func (c *MvCmd) Synopsis() string  { return "Move a queued task to a new position" }
func (c *MvCmd) Usage() string     { return "qedit mv <ref> <position>" }
func (c *MvCmd) NeedsAuth() bool   { return true }

func (c *MvCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MvCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintf(errOut, "error: usage: %s\n", c.Usage())
		return exitcode.UserError
	}
	ref, err := ParseTaskRef(args[0])
	if err != nil {
		return reportError(errOut, err)
	}
	target, err := strconv.Atoi(args[1])
	if err != nil || target < 0 {
		fmt.Fprintf(errOut, "error: invalid position: %s\n", args[1])
		return exitcode.UserError
	}

	ctl, err := editor.Open(ctx, svc, cfg.Logger)
	if err != nil {
		return reportError(errOut, err)
	}

	task, err := ResolveTaskRef(ctl.Session(), ref)
	if err == nil {
		err = ctl.Session().MoveToPosition(task.UUID, target)
	}
	if err == nil {
		err = commitEdit(ctx, ctl, bufio.NewScanner(in), out, false)
	}
	if err != nil {
		cancelEdit(ctx, ctl, errOut)
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
