package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"qedit/internal/config"
	"qedit/internal/editor"
	"qedit/internal/exitcode"
	"qedit/internal/output"
	"qedit/internal/service"
)

const editPrompt = "qedit> "

var errUsage = errors.New("usage")

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command: a line-oriented editor over a queue
// edit session. Commands are read from stdin or from --script.
type EditCmd struct {
	yes    bool
	script string
}

// SetYes skips the removal confirmation (for testing).
func (c *EditCmd) SetYes(yes bool) {
	c.yes = yes
}

// SetScript sets the file commands are read from (for testing).
func (c *EditCmd) SetScript(path string) {
	c.script = path
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit the queue interactively" }
func (c *EditCmd) Usage() string     { return "qedit edit [--yes] [--script <file>]" }
func (c *EditCmd) NeedsAuth() bool   { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
	fs.StringVar(&c.script, "script", "", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, in io.Reader, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	prompt := false
	if c.script != "" {
		f, err := os.Open(c.script)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		defer f.Close()
		in = f
	} else if f, ok := in.(*os.File); ok {
		prompt = isatty.IsTerminal(f.Fd()) && !cfg.Quiet
	}

	ctl, err := editor.Open(ctx, svc, cfg.Logger)
	if err != nil {
		return reportError(errOut, err)
	}

	sh := &editShell{
		ctl:    ctl,
		cfg:    cfg,
		lines:  bufio.NewScanner(in),
		out:    out,
		errOut: errOut,
		yes:    c.yes,
		prompt: prompt,
	}
	if !cfg.Quiet {
		output.FormatSession(out, ctl.Session())
	}
	return sh.run(ctx)
}

// editShell reads editor commands line by line until commit, cancel or end
// of input.
type editShell struct {
	ctl    *editor.Controller
	cfg    *config.Config
	lines  *bufio.Scanner
	out    io.Writer
	errOut io.Writer
	yes    bool
	prompt bool

	// code is the exit code of the last failed line.
	code int
}

func (sh *editShell) run(ctx context.Context) int {
	for {
		if sh.prompt {
			fmt.Fprint(sh.out, editPrompt)
		}
		if !sh.lines.Scan() {
			break
		}
		line := strings.TrimSpace(sh.lines.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if done := sh.exec(ctx, line); done {
			return sh.code
		}
	}

	if err := sh.lines.Err(); err != nil {
		fmt.Fprintf(sh.errOut, "error: %v\n", err)
		sh.code = exitcode.UserError
	}
	cancelEdit(ctx, sh.ctl, sh.errOut)
	if !sh.cfg.Quiet {
		fmt.Fprintln(sh.out, "cancelled")
	}
	return sh.code
}

// exec runs one line and reports whether the editor is finished.
func (sh *editShell) exec(ctx context.Context, line string) bool {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)
	s := sh.ctl.Session()

	var err error
	switch strings.ToLower(name) {
	case "show", "ls":
		output.FormatSession(sh.out, s)
	case "status":
		sh.status()
	case "help", "?":
		fmt.Fprint(sh.out, editHelpText)
	case "search", "filter":
		s.SetFilter(output.NameFilter(rest))
		output.FormatSession(sh.out, s)
	case "select":
		err = sh.withTask(args, func(t *editor.Task) error {
			s.Toggle(t.UUID)
			output.FormatTask(sh.out, t)
			return nil
		})
	case "selectshown":
		s.SelectAllShown()
		output.FormatCounts(sh.out, s.SelectedCount(), s.ShownCount())
	case "unselectshown":
		s.UnselectAllShown()
		output.FormatCounts(sh.out, s.SelectedCount(), s.ShownCount())
	case "unselectall":
		s.UnselectAll()
		output.FormatCounts(sh.out, s.SelectedCount(), s.ShownCount())
	case "up":
		err = sh.withTask(args, func(t *editor.Task) error { return s.MoveOne(t.UUID, editor.Up) })
	case "down":
		err = sh.withTask(args, func(t *editor.Task) error { return s.MoveOne(t.UUID, editor.Down) })
	case "move", "mv":
		if len(args) != 2 {
			err = fmt.Errorf("%w: move <ref> <position>", errUsage)
			break
		}
		var target int
		if target, err = parsePosition(args[1]); err == nil {
			err = sh.withTask(args[:1], func(t *editor.Task) error { return s.MoveToPosition(t.UUID, target) })
		}
	case "movesel":
		if len(args) != 1 {
			err = fmt.Errorf("%w: movesel <position>", errUsage)
			break
		}
		var target int
		if target, err = parsePosition(args[0]); err == nil {
			err = s.MoveSelectedToPosition(target)
		}
	case "top":
		if len(args) == 0 {
			err = s.MoveSelectedToTop()
		} else {
			err = sh.withTask(args, func(t *editor.Task) error { return s.MoveToTop(t.UUID) })
		}
	case "bottom":
		if len(args) == 0 {
			err = s.MoveSelectedToBottom()
		} else {
			err = sh.withTask(args, func(t *editor.Task) error { return s.MoveToBottom(t.UUID) })
		}
	case "rm", "remove":
		if len(args) == 0 {
			if s.SelectedCount() == 0 {
				err = editor.ErrNoSelection
				break
			}
			s.RemoveSelected()
		} else {
			err = sh.withTask(args, func(t *editor.Task) error {
				s.Remove(t.UUID)
				return nil
			})
		}
	case "restore":
		err = sh.withTask(args, func(t *editor.Task) error {
			return sh.ctl.Restore(t.UUID)
		})
	case "data":
		err = sh.withTask(args, func(t *editor.Task) error {
			output.FormatPayload(sh.out, t.Record)
			return nil
		})
	case "commit":
		return sh.commit(ctx)
	case "cancel", "quit", "q":
		cancelEdit(ctx, sh.ctl, sh.errOut)
		if !sh.cfg.Quiet {
			fmt.Fprintln(sh.out, "cancelled")
		}
		sh.code = exitcode.Success
		return true
	default:
		fmt.Fprintf(sh.errOut, "error: unknown editor command: %s\n", name)
		sh.code = exitcode.UserError
		return false
	}

	if err != nil {
		sh.code = reportError(sh.errOut, err)
	}
	return false
}

func (sh *editShell) commit(ctx context.Context) bool {
	err := commitEdit(ctx, sh.ctl, sh.lines, sh.out, sh.yes)
	if err != nil {
		// Commit failures keep the session open unless the controller
		// already closed it while restoring the pause state.
		sh.code = reportCommitError(sh.errOut, sh.ctl, err)
		return sh.ctl.Closed()
	}
	if !sh.cfg.Quiet {
		fmt.Fprintln(sh.out, "ok")
	}
	sh.code = exitcode.Success
	return true
}

func (sh *editShell) status() {
	s := sh.ctl.Session()
	fmt.Fprintf(sh.out, "prior state: %s\n", s.Prior())
	fmt.Fprintf(sh.out, "queued: %d, removed: %d\n", s.Len(), len(s.Removed()))
	changed := "no"
	if s.Dirty() {
		changed = "yes"
	}
	fmt.Fprintf(sh.out, "modified: %s\n", changed)
	output.FormatCounts(sh.out, s.SelectedCount(), s.ShownCount())
}

// withTask resolves the single ref in args and calls fn with the task.
func (sh *editShell) withTask(args []string, fn func(*editor.Task) error) error {
	if len(args) == 0 {
		return ErrTaskRefRequired
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: expected one reference, got %d", ErrInvalidTaskRef, len(args))
	}
	t, err := resolveArg(sh.ctl.Session(), args[0])
	if err != nil {
		return err
	}
	return fn(t)
}

func parsePosition(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", editor.ErrInvalidPosition, arg)
	}
	return n, nil
}

const editHelpText = `Editor commands:
  show                  Show the queue
  status                Show prior state and pending changes
  search <text>         Only show tasks whose name contains text (empty clears)
  select <ref>          Toggle selection of a task
  selectshown           Select every shown task
  unselectshown         Unselect every shown task
  unselectall           Clear the selection
  up <ref>              Move a task up one slot
  down <ref>            Move a task down one slot
  move <ref> <pos>      Move a task to a position
  movesel <pos>         Move the selection to a position
  top [ref]             Move a task (or the selection) to the top
  bottom [ref]          Move a task (or the selection) to the bottom
  rm [ref]              Remove a task (or the selection)
  restore <ref>         Restore a removed task to the end of the queue
  data <ref>            Print the full task payload
  commit                Apply the changes to the server
  cancel                Discard the changes
  help                  Show this help

A ref is a 0-based position or a uuid prefix.
`
