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
	Register(&StateCmd{})
}

// StateCmd implements the state command.
type StateCmd struct{}

func (c *StateCmd) Name() string      { return "state" }
func (c *StateCmd) Aliases() []string { return nil }
func (c *StateCmd) Synopsis() string  { return "Print the queue state" }
func (c *StateCmd) Usage() string     { return "qedit state" }
func (c *StateCmd) NeedsAuth() bool   { return true }

func (c *StateCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StateCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, in io.Reader, out, errOut io.Writer) int {
	state, err := svc.QueueState(ctx)
	if err != nil {
		return reportError(errOut, err)
	}
	fmt.Fprintln(out, state)
	return exitcode.Success
}
