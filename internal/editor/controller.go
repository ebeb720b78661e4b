package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"qedit/internal/service"
)

var (
	// ErrConfirmationRequired is returned by Commit when the edit removes
	// tasks and the caller has not confirmed the removal.
	ErrConfirmationRequired = errors.New("removal requires confirmation")

	// ErrClosed is returned by operations on a committed or cancelled controller.
	ErrClosed = errors.New("edit session is closed")

	// ErrAlreadyRemoved is returned when restoring a task whose removal has
	// already been submitted to the server.
	ErrAlreadyRemoved = errors.New("task already removed on server")
)

// Controller pauses the server while a Session is being edited and
// reconciles the session with the server on commit.
type Controller struct {
	svc     service.Service
	logger  *slog.Logger
	session *Session

	// sent holds the uuids whose removal the server has accepted.
	sent   map[string]bool
	closed bool
}

// Open captures the queue state, pauses the server if it is not already
// paused, and builds a session from the pending queue.
func Open(ctx context.Context, svc service.Service, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	prior, err := svc.QueueState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue state: %w", err)
	}
	logger.Debug("opening editor", "prior_state", prior)

	if !prior.Paused() {
		if err := svc.SetPause(ctx, true); err != nil {
			return nil, fmt.Errorf("failed to pause queue: %w", err)
		}
		logger.Debug("paused queue for editing")
	}

	snap, err := svc.QueueSnapshot(ctx)
	if err != nil {
		if !prior.Paused() {
			if uerr := svc.SetPause(ctx, false); uerr != nil {
				logger.Warn("failed to unpause queue after snapshot error", "error", uerr)
			}
		}
		return nil, fmt.Errorf("failed to fetch queue: %w", err)
	}
	logger.Debug("fetched queue snapshot", "queued", len(snap.Queued), "iteration", snap.Iteration)

	return &Controller{
		svc:     svc,
		logger:  logger,
		session: NewSession(snap.Queued, prior),
		sent:    make(map[string]bool),
	}, nil
}

// Session returns the session being edited.
func (c *Controller) Session() *Session { return c.session }

// PendingRemoval returns the removed records that have not been submitted yet.
func (c *Controller) PendingRemoval() []service.QueuedTask {
	return c.unsent(c.session.ComputeCommit().Removed)
}

// RemovedOnServer returns the number of tasks the server has already removed
// on behalf of this controller.
func (c *Controller) RemovedOnServer() int { return len(c.sent) }

// Restore moves a removed task back to the end of the queue. Tasks whose
// removal was already submitted cannot be restored.
func (c *Controller) Restore(uuid string) error {
	if c.closed {
		return ErrClosed
	}
	if c.sent[uuid] {
		return fmt.Errorf("%w: %s", ErrAlreadyRemoved, uuid)
	}
	c.session.Restore(uuid)
	return nil
}

func (c *Controller) unsent(removed []service.QueuedTask) []service.QueuedTask {
	var pending []service.QueuedTask
	for _, rec := range removed {
		if !c.sent[rec.UUID] {
			pending = append(pending, rec)
		}
	}
	return pending
}

// Closed reports whether the controller has been committed or cancelled.
func (c *Controller) Closed() bool { return c.closed }

// Commit submits removals, then the new order, then restores the pause
// state. Removals are only submitted when confirmed is true. On failure the
// session is kept so the caller can retry or cancel.
func (c *Controller) Commit(ctx context.Context, confirmed bool) error {
	if c.closed {
		return ErrClosed
	}
	commit := c.session.ComputeCommit()
	pending := c.unsent(commit.Removed)
	if len(pending) > 0 && !confirmed {
		return ErrConfirmationRequired
	}

	if len(pending) > 0 {
		c.logger.Debug("submitting removal", "count", len(pending), "already_removed", len(c.sent))
		if err := c.svc.RemoveItems(ctx, pending); err != nil {
			return fmt.Errorf("failed to remove tasks: %w", err)
		}
		for _, rec := range pending {
			c.sent[rec.UUID] = true
		}
	}

	c.logger.Debug("submitting reorder", "count", len(commit.Order), "prior_state", commit.PriorState)
	if err := c.svc.ReorderQueue(ctx, commit.PriorState, commit.Order); err != nil {
		return fmt.Errorf("failed to reorder queue: %w", err)
	}

	c.closed = true
	return c.restore(ctx)
}

// Cancel discards the session without writing it and restores the pause
// state. Cancelling a closed controller does nothing.
func (c *Controller) Cancel(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Debug("editor cancelled", "dirty", c.session.Dirty())
	return c.restore(ctx)
}

// restore sets the pause flag back to what it was before editing, if the
// live state disagrees.
func (c *Controller) restore(ctx context.Context) error {
	prior := c.session.Prior()
	live, err := c.svc.QueueState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue state: %w", err)
	}
	if live.Paused() == prior.Paused() {
		c.logger.Debug("pause state unchanged", "live", live, "prior", prior)
		return nil
	}
	c.logger.Debug("restoring pause state", "live", live, "prior", prior)
	if err := c.svc.SetPause(ctx, prior.Paused()); err != nil {
		return fmt.Errorf("failed to restore pause state: %w", err)
	}
	return nil
}
