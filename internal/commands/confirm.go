package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"qedit/internal/editor"
	"qedit/internal/output"
	"qedit/internal/service"
)

var errNotConfirmed = errors.New("removal not confirmed")

// confirmRemoval prints the full payload of every task about to be removed
// and reads a yes/no answer from lines.
func confirmRemoval(lines *bufio.Scanner, out io.Writer, removed []service.QueuedTask) bool {
	fmt.Fprintf(out, "The following %d task(s) will be removed:\n", len(removed))
	for _, rec := range removed {
		output.FormatPayload(out, rec)
	}
	fmt.Fprintf(out, "confirm removal of %d task(s)? [y/N] ", len(removed))
	if !lines.Scan() {
		fmt.Fprintln(out)
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(lines.Text()))
	return answer == "y" || answer == "yes"
}

// commitEdit commits ctl. Pending removals are confirmed on lines first
// unless yes is set.
func commitEdit(ctx context.Context, ctl *editor.Controller, lines *bufio.Scanner, out io.Writer, yes bool) error {
	if pending := ctl.PendingRemoval(); len(pending) > 0 && !yes {
		if !confirmRemoval(lines, out, pending) {
			return errNotConfirmed
		}
	}
	return ctl.Commit(ctx, true)
}

// cancelEdit cancels ctl, logging a failure to restore the pause state.
func cancelEdit(ctx context.Context, ctl *editor.Controller, errOut io.Writer) {
	if err := ctl.Cancel(ctx); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
}
