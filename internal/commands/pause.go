package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"qedit/internal/config"
	"qedit/internal/exitcode"
	"qedit/internal/service"
)

func init() {
	Register(&PauseCmd{paused: true})
	Register(&ResumeCmd{PauseCmd{paused: false}})
}

// PauseCmd implements the pause command.
type PauseCmd struct {
	paused bool
}

func (c *PauseCmd) Name() string      { return "pause" }
func (c *PauseCmd) Aliases() []string { return nil }
func (c *PauseCmd) Synopsis() string  { return "Pause the queue" }
func (c *PauseCmd) Usage() string     { return "qedit pause" }
func (c *PauseCmd) NeedsAuth() bool   { return true }

func (c *PauseCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *PauseCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, in io.Reader, out, errOut io.Writer) int {
	if err := svc.SetPause(ctx, c.paused); err != nil {
		return reportError(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// ResumeCmd implements the resume command.
type ResumeCmd struct {
	PauseCmd
}

func (c *ResumeCmd) Name() string      { return "resume" }
func (c *ResumeCmd) Aliases() []string { return []string{"unpause"} }
func (c *ResumeCmd) Synopsis() string  { return "Unpause the queue" }
func (c *ResumeCmd) Usage() string     { return "qedit resume" }
