// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"firetodo/internal/session"
	"firetodo/internal/task"
)

const (
	// Separator is the separator line for sections.
	Separator = "------------"

	markDone = "[x]"
	markOpen = "[ ]"
)

// FormatTask formats a task line.
// Format: "{N:>4}  {MARK} {TITLE}\n" (4-wide right-aligned number, two spaces, [x] or [ ], title)
func FormatTask(w io.Writer, num int, t task.Task) {
	mark := markOpen
	if t.Completed {
		mark = markDone
	}
	fmt.Fprintf(w, "%4d  %s %s\n", num, mark, normalizeTitle(t.Title))
}

// FormatTasks formats every task, numbered from 1.
func FormatTasks(w io.Writer, tasks []task.Task) {
	for i, t := range tasks {
		FormatTask(w, i+1, t)
	}
}

// FormatHeader formats a section header.
func FormatHeader(w io.Writer, title string) {
	fmt.Fprintln(w, Separator)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, Separator)
}

// FormatStatus formats the session summary printed by the status command.
func FormatStatus(w io.Writer, dir string, info session.Info, tasks []task.Task) {
	done := 0
	for _, t := range tasks {
		if t.Completed {
			done++
		}
	}

	fmt.Fprintf(w, "backend:         %s\n", info.Backend)
	fmt.Fprintf(w, "schema version:  %d\n", info.SchemaVersion)
	fmt.Fprintf(w, "installation id: %s\n", info.InstallID)
	fmt.Fprintf(w, "config dir:      %s\n", dir)
	fmt.Fprintf(w, "tasks:           %d (%d done, %d open)\n", len(tasks), done, len(tasks)-done)
	if len(info.Migration.Ran) > 0 {
		fmt.Fprintf(w, "upgraded:        %d -> %d\n", info.Migration.From, info.Migration.To)
	}
	for _, v := range info.Migration.Resumed {
		fmt.Fprintf(w, "resumed upgrade: version %d\n", v)
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
