// Package service defines the backend-agnostic interface for queue operations.
package service

import (
	"context"
	"errors"
)

// Sentinel errors returned by Service implementations.
var (
	// ErrRejected means the server refused the request, typically a reorder
	// whose task set no longer matches the live queue.
	ErrRejected = errors.New("rejected by server")

	// ErrUnauthorized means the stored token is missing, expired or revoked.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the endpoint or item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable means the server could not be reached.
	ErrUnavailable = errors.New("server unavailable")
)

// Service defines the interface for queue backend operations.
// All APIServer calls go through this interface; commands and the editor
// never speak HTTP directly.
type Service interface {
	// QueueSnapshot returns history, the running task and the pending queue,
	// along with the queue iteration id.
	QueueSnapshot(ctx context.Context) (Snapshot, error)

	// QueueIteration returns the id that changes whenever the queue mutates.
	QueueIteration(ctx context.Context) (float64, error)

	// QueueState returns the queue daemon state.
	QueueState(ctx context.Context) (QueueState, error)

	// SetPause pauses or unpauses the queue daemon.
	SetPause(ctx context.Context, paused bool) error

	// RemoveItems deletes the given records from the pending queue.
	RemoveItems(ctx context.Context, items []QueuedTask) error

	// ReorderQueue replaces the pending queue order. prior is the state
	// observed before editing began; the server validates the new order
	// against its live queue and returns ErrRejected on mismatch.
	ReorderQueue(ctx context.Context, prior QueueState, order []QueuedTask) error
}
