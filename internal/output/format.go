// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"qedit/internal/editor"
	"qedit/internal/service"
)

const (
	// SectionSeparator is the separator line for output sections.
	SectionSeparator = "------------"
)

// FormatRecord formats a queue record with its position.
// Format: "[{POS}] {NAME} (UUID: {UUID})\n"
func FormatRecord(w io.Writer, pos int, rec service.QueuedTask) {
	fmt.Fprintf(w, "[%d] %s (UUID: %s)\n", pos, normalizeTitle(rec.Name()), rec.UUID)
}

// FormatTask formats an editor row. Selected rows are marked with "*";
// removed rows show "-" as their position.
func FormatTask(w io.Writer, t *editor.Task) {
	mark := " "
	if t.Selected {
		mark = "*"
	}
	pos := "-"
	if !t.Removed() {
		pos = fmt.Sprintf("%d", t.Position)
	}
	fmt.Fprintf(w, "%s [%s] %s (UUID: %s)\n", mark, pos, normalizeTitle(t.Name()), t.UUID)
}

// FormatSectionHeader formats a section header.
func FormatSectionHeader(w io.Writer, title string) {
	fmt.Fprintln(w, SectionSeparator)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, SectionSeparator)
}

// FormatCounts formats the selection summary line.
func FormatCounts(w io.Writer, selected, shown int) {
	fmt.Fprintf(w, "%d selected, %d shown\n", selected, shown)
}

// FormatPayload writes the full record as indented JSON.
func FormatPayload(w io.Writer, rec service.QueuedTask) {
	fmt.Fprintln(w, rec.Indented())
}

// FormatSession writes the active rows that are shown, then the removed
// rows, then the counts.
func FormatSession(w io.Writer, s *editor.Session) {
	for _, t := range s.Active() {
		if t.Shown {
			FormatTask(w, t)
		}
	}
	if removed := s.Removed(); len(removed) > 0 {
		FormatSectionHeader(w, "Removed")
		for _, t := range removed {
			FormatTask(w, t)
		}
	}
	FormatCounts(w, s.SelectedCount(), s.ShownCount())
}

// NameFilter returns a case-insensitive task-name substring filter. An empty
// query returns nil, which shows every task.
func NameFilter(query string) func(*editor.Task) bool {
	query = strings.ToUpper(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	return func(t *editor.Task) bool {
		return strings.Contains(strings.ToUpper(t.Name()), query)
	}
}

// normalizeTitle normalizes a task name for display.
// - Empty or whitespace-only names become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
