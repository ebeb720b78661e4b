package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"qedit/internal/editor"
)

// TaskRef is a parsed task reference: either a 0-based position in the
// active queue or a uuid (or uuid prefix).
type TaskRef struct {
	Position   int
	UUID       string
	IsPosition bool
}

var (
	// ErrTaskRefRequired indicates no task reference was provided.
	ErrTaskRefRequired = errors.New("task reference required")

	// ErrInvalidTaskRef indicates a reference that cannot be parsed.
	ErrInvalidTaskRef = errors.New("invalid task reference")

	// ErrTaskNotFound indicates no task matches the reference.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAmbiguousTaskRef indicates a uuid prefix matching several tasks.
	ErrAmbiguousTaskRef = errors.New("ambiguous task reference")

	// ErrPositionOutOfRange indicates a position past the end of the queue.
	ErrPositionOutOfRange = errors.New("position out of range")
)

// ParseTaskRef parses one task reference.
//
// Parsing rules:
// 1. Empty or whitespace-only → error: task reference required
// 2. All digits → active position
// 3. Anything else → uuid or uuid prefix
func ParseTaskRef(arg string) (TaskRef, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if isAllDigits(arg) {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("%w: %s", ErrInvalidTaskRef, arg)
		}
		return TaskRef{Position: n, IsPosition: true}, nil
	}
	return TaskRef{UUID: arg}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ResolveTaskRef finds the task a reference points at. Positions only
// address active tasks; uuids and unique uuid prefixes address both sets.
func ResolveTaskRef(s *editor.Session, ref TaskRef) (*editor.Task, error) {
	if ref.IsPosition {
		active := s.Active()
		if ref.Position >= len(active) {
			return nil, fmt.Errorf("%w: %d", ErrPositionOutOfRange, ref.Position)
		}
		return active[ref.Position], nil
	}

	if t, ok := s.Lookup(ref.UUID); ok {
		return t, nil
	}

	var matches []*editor.Task
	for _, t := range append(s.Active(), s.Removed()...) {
		if strings.HasPrefix(t.UUID, ref.UUID) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, ref.UUID)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousTaskRef, ref.UUID)
	}
}

// resolveArg parses and resolves a single argument.
func resolveArg(s *editor.Session, arg string) (*editor.Task, error) {
	ref, err := ParseTaskRef(arg)
	if err != nil {
		return nil, err
	}
	return ResolveTaskRef(s, ref)
}
