package output

import (
	"bytes"
	"strings"
	"testing"

	"qedit/internal/editor"
	"qedit/internal/service"
	"qedit/internal/testutil"
)

func newSession() *editor.Session {
	return editor.NewSession([]service.QueuedTask{
		testutil.Record("QD-a", "first"),
		testutil.Record("QD-b", "second"),
		testutil.Record("QD-c", "third"),
	}, service.StateReady)
}

func TestFormatRecord(t *testing.T) {
	var buf bytes.Buffer
	FormatRecord(&buf, 3, testutil.Record("QD-x", "measure"))

	expected := "[3] measure (UUID: QD-x)\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestFormatRecord_NormalizesName(t *testing.T) {
	var buf bytes.Buffer
	FormatRecord(&buf, 0, testutil.Record("QD-x", "line one\nline two"))
	FormatRecord(&buf, 1, testutil.Record("QD-y", "   "))

	expected := "[0] line one line two (UUID: QD-x)\n[1] (untitled) (UUID: QD-y)\n"
	if buf.String() != expected {
		t.Errorf("expected %q, got %q", expected, buf.String())
	}
}

func TestFormatSession(t *testing.T) {
	s := newSession()
	s.Toggle("QD-b")
	s.Remove("QD-c")

	var buf bytes.Buffer
	FormatSession(&buf, s)

	testutil.Golden(t, "session", buf.String())
}

func TestFormatSession_Filtered(t *testing.T) {
	s := newSession()
	s.SetFilter(NameFilter("  ECO "))

	var buf bytes.Buffer
	FormatSession(&buf, s)

	testutil.Golden(t, "session_filtered", buf.String())
}

func TestNameFilter_Empty(t *testing.T) {
	if NameFilter("   ") != nil {
		t.Error("expected nil filter for blank query")
	}
}

func TestFormatPayload(t *testing.T) {
	var buf bytes.Buffer
	FormatPayload(&buf, testutil.Record("QD-a", "first"))

	out := buf.String()
	for _, want := range []string{"{\n", `  "uuid": "QD-a"`, `    "task_name": "first"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected payload to contain %q, got %q", want, out)
		}
	}
}
