// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskflow/internal/dashboard"
	"taskflow/internal/service"
)

const (
	// Separator is the separator line between sections.
	Separator = "------------"

	// BarWidth is the width of a full bar in the stats chart.
	BarWidth = 30
)

// FormatTask formats one task line.
// Format: "{N:>4}  [{STATUS}] {TITLE}  ({CATEGORY}, due {DATE}, {PRIORITY})\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  [%s] %s  (%s, due %s, %s)\n",
		num, statusLabel(task.Status), normalizeTitle(task.Title),
		orDash(task.Category), dueDate(task), orDash(task.Priority))
}

// FormatTasks writes the numbered task list, or "no tasks found".
func FormatTasks(w io.Writer, tasks []service.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks found")
		return
	}
	for i, t := range tasks {
		FormatTask(w, i+1, t)
	}
}

// FormatHeader writes a section header.
func FormatHeader(w io.Writer, title string) {
	fmt.Fprintln(w, Separator)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, Separator)
}

// FormatQuickStats writes the headline counters.
func FormatQuickStats(w io.Writer, q dashboard.QuickStats) {
	FormatHeader(w, "Quick Stats")
	fmt.Fprintf(w, "Tasks due today: %d\n", q.DueToday)
	fmt.Fprintf(w, "Pending tasks:   %d\n", q.Pending)
	fmt.Fprintf(w, "Completed tasks: %d\n", q.Completed)
}

// FormatStats writes a bar per status with its count and share of the total.
func FormatStats(w io.Writer, stats service.Stats) {
	FormatHeader(w, "Task Statistics")
	total := stats.Total()
	if total == 0 {
		fmt.Fprintln(w, "no statistics available")
		return
	}

	width := 0
	for _, s := range stats.Stats {
		if n := len(s.ID); n > width {
			width = n
		}
	}
	for _, s := range stats.Stats {
		bar := s.Count * BarWidth / total
		if s.Count > 0 && bar == 0 {
			bar = 1
		}
		pct := float64(s.Count) * 100 / float64(total)
		fmt.Fprintf(w, "%-*s  %-*s  %d (%.1f%%)\n", width, s.ID, BarWidth, strings.Repeat("#", bar), s.Count, pct)
	}
}

func statusLabel(status string) string {
	if status == "" {
		return service.StatusPending
	}
	return status
}

func dueDate(t service.Task) string {
	if d, ok := t.Due(); ok {
		return d.Format("2006-01-02")
	}
	return "-"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
