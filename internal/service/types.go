package service

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QueueState is the queue daemon state as reported by /queue_state.
type QueueState string

// Known queue states. Servers may report others; they pass through verbatim.
const (
	StateActive QueueState = "Active"
	StatePaused QueueState = "Paused"
	StateDebug  QueueState = "Debug"
	StateReady  QueueState = "Ready"
)

// Paused reports whether the state is StatePaused.
func (s QueueState) Paused() bool { return s == StatePaused }

func (s QueueState) String() string { return string(s) }

// QueuedTask is one queue record. Raw holds the record exactly as the server
// sent it and is what gets sent back on removal and reorder.
type QueuedTask struct {
	UUID string
	Task map[string]any
	Raw  json.RawMessage
}

type wireTask struct {
	UUID string         `json:"uuid"`
	Task map[string]any `json:"task"`
}

// UnmarshalJSON decodes uuid and task and keeps a copy of the full record.
func (t *QueuedTask) UnmarshalJSON(data []byte) error {
	var w wireTask
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("invalid queue record: %w", err)
	}
	t.UUID = w.UUID
	t.Task = w.Task
	t.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits Raw untouched when present.
func (t QueuedTask) MarshalJSON() ([]byte, error) {
	if len(t.Raw) > 0 {
		return t.Raw, nil
	}
	return json.Marshal(wireTask{UUID: t.UUID, Task: t.Task})
}

// Name returns the task_name of the task, falling back to the compact JSON
// rendering of the task payload.
func (t QueuedTask) Name() string {
	if name, ok := t.Task["task_name"].(string); ok && name != "" {
		return name
	}
	data, err := json.Marshal(t.Task)
	if err != nil {
		return ""
	}
	return string(data)
}

// Indented returns the full record as indented JSON.
func (t QueuedTask) Indented() string {
	data, err := t.MarshalJSON()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// Snapshot is the server's view of the queue at one iteration.
type Snapshot struct {
	Iteration float64
	History   []QueuedTask
	Running   []QueuedTask
	Queued    []QueuedTask
}
