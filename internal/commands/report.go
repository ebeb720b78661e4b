package commands

import (
	"errors"
	"fmt"
	"io"

	"qedit/internal/config"
	"qedit/internal/editor"
	"qedit/internal/exitcode"
	"qedit/internal/service"
)

// reportError prints err and returns the exit code for it.
func reportError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, config.ErrNoServer):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	case errors.Is(err, service.ErrRejected):
		fmt.Fprintf(errOut, "error: queue changed on server, edit not applied: %v\n", err)
		return exitcode.Conflict
	case isUserError(err):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// reportCommitError reports a failed commit. Removals the server already
// applied are reported since cancelling does not bring them back.
func reportCommitError(errOut io.Writer, ctl *editor.Controller, err error) int {
	n := ctl.RemovedOnServer()
	if n == 0 || isUserError(err) {
		return reportError(errOut, err)
	}
	fmt.Fprintf(errOut, "error: removed %d task(s); reorder not applied: %v\n", n, err)
	return reportError(io.Discard, err)
}

func isUserError(err error) bool {
	for _, target := range []error{
		editor.ErrAtTop,
		editor.ErrAtBottom,
		editor.ErrInvalidPosition,
		editor.ErrNoSelection,
		editor.ErrConfirmationRequired,
		editor.ErrAlreadyRemoved,
		ErrTaskRefRequired,
		ErrInvalidTaskRef,
		ErrTaskNotFound,
		ErrAmbiguousTaskRef,
		ErrPositionOutOfRange,
		errNotConfirmed,
		errUsage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
