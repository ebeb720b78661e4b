package service

import (
	"encoding/json"
	"testing"
)

func TestQueuedTask_KeepsRawRecord(t *testing.T) {
	raw := `{"uuid":"QD-1","task":{"task_name":"measure","extra":[1,2]},"meta":{"queued":"x","ended":null}}`

	var task QueuedTask
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.UUID != "QD-1" || task.Name() != "measure" {
		t.Errorf("unexpected task: %+v", task)
	}

	out, err := json.Marshal([]QueuedTask{task})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "["+raw+"]" {
		t.Errorf("record was not passed through unchanged: %s", out)
	}
}

func TestQueuedTask_NameFallback(t *testing.T) {
	task := QueuedTask{UUID: "QD-2", Task: map[string]any{"kind": "wait"}}
	if got := task.Name(); got != `{"kind":"wait"}` {
		t.Errorf("unexpected name %q", got)
	}
}

func TestQueuedTask_InvalidRecord(t *testing.T) {
	var task QueuedTask
	if err := json.Unmarshal([]byte(`{"uuid":7}`), &task); err == nil {
		t.Error("expected error for non-string uuid")
	}
}

func TestQueueState_Paused(t *testing.T) {
	for state, want := range map[QueueState]bool{
		StatePaused: true,
		StateActive: false,
		StateDebug:  false,
		StateReady:  false,
		"paused":    false,
	} {
		if state.Paused() != want {
			t.Errorf("%q.Paused() = %v, want %v", state, !want, want)
		}
	}
}
