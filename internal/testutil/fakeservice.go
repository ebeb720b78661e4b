// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"qedit/internal/service"
)

// FakeService is an in-memory APIServer queue implementing service.Service.
// Reorder validation follows the server: every live queued uuid must appear
// in the submitted order, otherwise the request is rejected.
type FakeService struct {
	mu        sync.RWMutex
	queue     []service.QueuedTask
	running   []service.QueuedTask
	history   []service.QueuedTask
	paused    bool
	debug     bool
	iteration float64

	// Calls records every method call by name, in order.
	Calls []string

	// Error injection for testing
	QueueSnapshotErr  error
	QueueIterationErr error
	QueueStateErr     error
	SetPauseErr       error
	RemoveItemsErr    error
	ReorderQueueErr   error

	// LastPrior is the prior state sent with the last reorder.
	LastPrior service.QueueState
}

// NewFakeService creates an empty, unpaused FakeService.
func NewFakeService() *FakeService {
	return &FakeService{iteration: 1}
}

// Record builds a queue record the way the server's enqueue does.
func Record(id, name string) service.QueuedTask {
	if id == "" {
		id = "QD-" + uuid.NewString()
	}
	raw, _ := json.Marshal(map[string]any{
		"uuid": id,
		"task": map[string]any{"task_name": name},
		"meta": map[string]any{"queued": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format("01/02/06 15:04:05")},
	})
	var t service.QueuedTask
	_ = json.Unmarshal(raw, &t)
	return t
}

// Enqueue appends a task to the queue and returns its uuid.
func (f *FakeService) Enqueue(id, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := Record(id, name)
	f.queue = append(f.queue, t)
	f.iteration++
	return t.UUID
}

// SetRunning sets the running task.
func (f *FakeService) SetRunning(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = []service.QueuedTask{Record(id, name)}
}

// AddHistory appends a finished task.
func (f *FakeService) AddHistory(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, Record(id, name))
}

// SetPaused sets the paused flag without recording a call.
func (f *FakeService) SetPaused(p bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = p
}

// SetDebug sets the debug flag.
func (f *FakeService) SetDebug(d bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debug = d
}

// Paused reports the paused flag.
func (f *FakeService) Paused() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.paused
}

// QueueUUIDs returns the live queue order.
func (f *FakeService) QueueUUIDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, len(f.queue))
	for i, t := range f.queue {
		ids[i] = t.UUID
	}
	return ids
}

// Called reports how many times the named method was called.
func (f *FakeService) Called(name string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *FakeService) record(name string) {
	f.Calls = append(f.Calls, name)
}

func (f *FakeService) state() service.QueueState {
	switch {
	case f.paused:
		return service.StatePaused
	case f.debug:
		return service.StateDebug
	case len(f.running) > 0:
		return service.StateActive
	default:
		return service.StateReady
	}
}

// QueueSnapshot implements service.Service.
func (f *FakeService) QueueSnapshot(ctx context.Context) (service.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QueueSnapshot")
	if f.QueueSnapshotErr != nil {
		return service.Snapshot{}, f.QueueSnapshotErr
	}
	return service.Snapshot{
		Iteration: f.iteration,
		History:   append([]service.QueuedTask(nil), f.history...),
		Running:   append([]service.QueuedTask(nil), f.running...),
		Queued:    append([]service.QueuedTask(nil), f.queue...),
	}, nil
}

// QueueIteration implements service.Service.
func (f *FakeService) QueueIteration(ctx context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QueueIteration")
	if f.QueueIterationErr != nil {
		return 0, f.QueueIterationErr
	}
	return f.iteration, nil
}

// QueueState implements service.Service.
func (f *FakeService) QueueState(ctx context.Context) (service.QueueState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("QueueState")
	if f.QueueStateErr != nil {
		return "", f.QueueStateErr
	}
	return f.state(), nil
}

// SetPause implements service.Service.
func (f *FakeService) SetPause(ctx context.Context, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetPause")
	if f.SetPauseErr != nil {
		return f.SetPauseErr
	}
	f.paused = paused
	return nil
}

// RemoveItems implements service.Service.
func (f *FakeService) RemoveItems(ctx context.Context, items []service.QueuedTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveItems")
	if f.RemoveItemsErr != nil {
		return f.RemoveItemsErr
	}
	for _, item := range items {
		idx := -1
		for i, t := range f.queue {
			if t.UUID == item.UUID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", service.ErrNotFound, item.UUID)
		}
		f.queue = append(f.queue[:idx], f.queue[idx+1:]...)
		f.iteration++
	}
	return nil
}

// ReorderQueue implements service.Service.
func (f *FakeService) ReorderQueue(ctx context.Context, prior service.QueueState, order []service.QueuedTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ReorderQueue")
	f.LastPrior = prior
	if f.ReorderQueueErr != nil {
		return f.ReorderQueueErr
	}

	if len(f.queue) != len(order) {
		return fmt.Errorf("%w: Failed", service.ErrRejected)
	}
	pos := make(map[string]int, len(order))
	for i, t := range order {
		pos[t.UUID] = i
	}
	next := make([]service.QueuedTask, len(order))
	for _, t := range f.queue {
		i, ok := pos[t.UUID]
		if !ok {
			return fmt.Errorf("%w: Failed", service.ErrRejected)
		}
		next[i] = t
	}
	f.queue = next
	f.iteration++
	if !prior.Paused() {
		f.paused = false
	}
	return nil
}
