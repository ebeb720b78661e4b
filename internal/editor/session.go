// Package editor implements the queue edit session and the controller that
// reconciles it with the server.
//
// A Session is a pure in-memory model: it never performs I/O and is not safe
// for concurrent use. The Controller owns one Session and makes the network
// calls around it.
package editor

import (
	"errors"
	"fmt"

	"qedit/internal/service"
)

// RemovedPosition is the position of a task in the removed set.
const RemovedPosition = -1

// Direction is the direction of a single-slot move.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

var (
	// ErrAtTop is returned when moving the first task up.
	ErrAtTop = errors.New("task is already at the top of the queue")

	// ErrAtBottom is returned when moving the last task down.
	ErrAtBottom = errors.New("task is already at the bottom of the queue")

	// ErrInvalidPosition is returned when a move target leaves no room for
	// the moved tasks.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrNoSelection is returned by bulk moves when nothing is selected.
	ErrNoSelection = errors.New("no tasks selected")
)

// Task is one queue entry as known to the editor.
type Task struct {
	UUID             string
	Record           service.QueuedTask
	Position         int
	OriginalPosition int
	Selected         bool
	Shown            bool
}

// Name returns the display label of the task.
func (t *Task) Name() string { return t.Record.Name() }

// Removed reports whether the task is in the removed set.
func (t *Task) Removed() bool { return t.Position == RemovedPosition }

// Session holds the editable copy of the pending queue.
type Session struct {
	active  []*Task
	removed []*Task
	byUUID  map[string]*Task
	prior   service.QueueState
	filter  func(*Task) bool
}

// NewSession builds a session from the pending queue in server order.
// Records with a duplicate uuid after the first are dropped.
func NewSession(tasks []service.QueuedTask, prior service.QueueState) *Session {
	s := &Session{
		active: make([]*Task, 0, len(tasks)),
		byUUID: make(map[string]*Task, len(tasks)),
		prior:  prior,
	}
	for _, rec := range tasks {
		if _, dup := s.byUUID[rec.UUID]; dup {
			continue
		}
		t := &Task{
			UUID:             rec.UUID,
			Record:           rec,
			Position:         len(s.active),
			OriginalPosition: len(s.active),
			Shown:            true,
		}
		s.active = append(s.active, t)
		s.byUUID[rec.UUID] = t
	}
	return s
}

// Prior returns the queue state captured when the session was opened.
func (s *Session) Prior() service.QueueState { return s.prior }

// Len returns the number of active tasks.
func (s *Session) Len() int { return len(s.active) }

// Active returns the active tasks in queue order. The slice is a copy; the
// tasks are not.
func (s *Session) Active() []*Task { return append([]*Task(nil), s.active...) }

// Removed returns the removed tasks in removal order.
func (s *Session) Removed() []*Task { return append([]*Task(nil), s.removed...) }

// Lookup returns the task with the given uuid from either set.
func (s *Session) Lookup(uuid string) (*Task, bool) {
	t, ok := s.byUUID[uuid]
	return t, ok
}

// activeTask returns the task only if it is currently active.
func (s *Session) activeTask(uuid string) (*Task, bool) {
	t, ok := s.byUUID[uuid]
	if !ok || t.Removed() {
		return nil, false
	}
	return t, true
}

// Toggle flips the selection of an active task and returns the new value.
// Removed and unknown tasks are left alone.
func (s *Session) Toggle(uuid string) bool {
	t, ok := s.byUUID[uuid]
	if !ok {
		return false
	}
	if !t.Removed() {
		t.Selected = !t.Selected
	}
	return t.Selected
}

// SetFilter installs the predicate that decides which tasks are shown.
// A nil filter shows every task.
func (s *Session) SetFilter(filter func(*Task) bool) {
	s.filter = filter
	s.refreshShown()
}

func (s *Session) refreshShown() {
	for _, t := range s.byUUID {
		t.Shown = s.filter == nil || s.filter(t)
	}
}

// SelectAllShown selects every shown active task.
func (s *Session) SelectAllShown() {
	for _, t := range s.active {
		if t.Shown {
			t.Selected = true
		}
	}
}

// UnselectAllShown clears the selection of every shown active task.
func (s *Session) UnselectAllShown() {
	for _, t := range s.active {
		if t.Shown {
			t.Selected = false
		}
	}
}

// UnselectAll clears the selection of every active task.
func (s *Session) UnselectAll() {
	for _, t := range s.active {
		t.Selected = false
	}
}

// SelectedCount returns the number of selected active tasks.
func (s *Session) SelectedCount() int {
	n := 0
	for _, t := range s.active {
		if t.Selected {
			n++
		}
	}
	return n
}

// ShownCount returns the number of shown active tasks.
func (s *Session) ShownCount() int {
	n := 0
	for _, t := range s.active {
		if t.Shown {
			n++
		}
	}
	return n
}

// Selected returns the selected active tasks in queue order.
func (s *Session) Selected() []*Task {
	var sel []*Task
	for _, t := range s.active {
		if t.Selected {
			sel = append(sel, t)
		}
	}
	return sel
}

// MoveOne moves an active task one slot up or down.
func (s *Session) MoveOne(uuid string, dir Direction) error {
	t, ok := s.activeTask(uuid)
	if !ok {
		return nil
	}
	i := t.Position
	switch dir {
	case Up:
		if i == 0 {
			return ErrAtTop
		}
		s.active[i-1], s.active[i] = s.active[i], s.active[i-1]
	case Down:
		if i == len(s.active)-1 {
			return ErrAtBottom
		}
		s.active[i+1], s.active[i] = s.active[i], s.active[i+1]
	}
	s.reindex()
	return nil
}

// MoveToPosition moves one active task so that it ends up at target.
func (s *Session) MoveToPosition(uuid string, target int) error {
	t, ok := s.activeTask(uuid)
	if !ok {
		return nil
	}
	return s.moveBlock([]*Task{t}, target)
}

// MoveSelectedToPosition moves the selection, in its current relative order,
// to a contiguous block starting at target. Nothing moves if the block does
// not fit.
func (s *Session) MoveSelectedToPosition(target int) error {
	sel := s.Selected()
	if len(sel) == 0 {
		return ErrNoSelection
	}
	return s.moveBlock(sel, target)
}

// MoveToTop moves one active task to position 0.
func (s *Session) MoveToTop(uuid string) error {
	return s.MoveToPosition(uuid, 0)
}

// MoveToBottom moves one active task to the last position.
func (s *Session) MoveToBottom(uuid string) error {
	return s.MoveToPosition(uuid, len(s.active)-1)
}

// MoveSelectedToTop moves each selected task to position 0 in turn, using
// live indices. With several tasks selected the last one processed ends up
// first.
func (s *Session) MoveSelectedToTop() error {
	return s.eachSelected(s.MoveToTop)
}

// MoveSelectedToBottom moves each selected task to the end in turn.
func (s *Session) MoveSelectedToBottom() error {
	return s.eachSelected(s.MoveToBottom)
}

func (s *Session) eachSelected(move func(uuid string) error) error {
	sel := s.Selected()
	if len(sel) == 0 {
		return ErrNoSelection
	}
	for _, t := range sel {
		if err := move(t.UUID); err != nil {
			return err
		}
	}
	return nil
}

// moveBlock splices block out of active and reinserts it at target.
func (s *Session) moveBlock(block []*Task, target int) error {
	if target < 0 || len(s.active)-target < len(block) {
		return fmt.Errorf("%w: %d (queue has %d tasks, moving %d)", ErrInvalidPosition, target, len(s.active), len(block))
	}
	moving := make(map[*Task]bool, len(block))
	for _, t := range block {
		moving[t] = true
	}
	rest := make([]*Task, 0, len(s.active)-len(block))
	for _, t := range s.active {
		if !moving[t] {
			rest = append(rest, t)
		}
	}
	next := make([]*Task, 0, len(s.active))
	next = append(next, rest[:target]...)
	next = append(next, block...)
	next = append(next, rest[target:]...)
	s.active = next
	s.reindex()
	return nil
}

// Remove moves an active task to the removed set. The selection flag is kept.
func (s *Session) Remove(uuid string) {
	t, ok := s.activeTask(uuid)
	if !ok {
		return
	}
	s.active = append(s.active[:t.Position], s.active[t.Position+1:]...)
	t.Position = RemovedPosition
	s.removed = append(s.removed, t)
	s.reindex()
}

// RemoveSelected removes every selected active task in queue order.
func (s *Session) RemoveSelected() {
	for _, t := range s.Selected() {
		s.Remove(t.UUID)
	}
}

// Restore appends a removed task to the end of the active list.
func (s *Session) Restore(uuid string) {
	t, ok := s.byUUID[uuid]
	if !ok || !t.Removed() {
		return
	}
	for i, r := range s.removed {
		if r == t {
			s.removed = append(s.removed[:i], s.removed[i+1:]...)
			break
		}
	}
	t.Position = len(s.active)
	s.active = append(s.active, t)
}

func (s *Session) reindex() {
	for i, t := range s.active {
		t.Position = i
	}
}

// Dirty reports whether the session differs from the snapshot it was built from.
func (s *Session) Dirty() bool {
	if len(s.removed) > 0 {
		return true
	}
	for i, t := range s.active {
		if t.OriginalPosition != i {
			return true
		}
	}
	return false
}

// Commit is the payload that reconciles a session with the server.
type Commit struct {
	PriorState service.QueueState
	Order      []service.QueuedTask
	Removed    []service.QueuedTask
}

// NeedsConfirmation reports whether the commit deletes tasks.
func (c Commit) NeedsConfirmation() bool { return len(c.Removed) > 0 }

// ComputeCommit returns the final active order and the removed records.
func (s *Session) ComputeCommit() Commit {
	c := Commit{
		PriorState: s.prior,
		Order:      make([]service.QueuedTask, 0, len(s.active)),
	}
	for _, t := range s.active {
		c.Order = append(c.Order, t.Record)
	}
	for _, t := range s.removed {
		c.Removed = append(c.Removed, t.Record)
	}
	return c
}

// Check verifies the position and partition invariants.
func (s *Session) Check() error {
	seen := make(map[string]bool, len(s.byUUID))
	for i, t := range s.active {
		if t.Position != i {
			return fmt.Errorf("active task %s at index %d has position %d", t.UUID, i, t.Position)
		}
		if seen[t.UUID] {
			return fmt.Errorf("task %s appears more than once", t.UUID)
		}
		seen[t.UUID] = true
	}
	for _, t := range s.removed {
		if t.Position != RemovedPosition {
			return fmt.Errorf("removed task %s has position %d", t.UUID, t.Position)
		}
		if seen[t.UUID] {
			return fmt.Errorf("task %s is both active and removed", t.UUID)
		}
		seen[t.UUID] = true
	}
	if len(seen) != len(s.byUUID) {
		return fmt.Errorf("session tracks %d tasks but %d are placed", len(s.byUUID), len(seen))
	}
	return nil
}
