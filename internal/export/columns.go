// Package export writes the task list to CSV, XLSX and PDF files.
package export

import (
	"fmt"
	"strings"

	"taskflow/internal/service"
)

// Column is one field of the export projection.
type Column struct {
	Header string
	Key    string
	Value  func(service.Task) string
}

// Columns is the projection shared by the CSV and XLSX exports.
var Columns = []Column{
	{"Task Title", "title", func(t service.Task) string { return t.Title }},
	{"Task Description", "description", func(t service.Task) string { return t.Description }},
	{"Category", "category", func(t service.Task) string { return t.Category }},
	{"Due Date", "dueDate", func(t service.Task) string { return t.DueDate }},
	{"Status", "status", func(t service.Task) string { return t.Status }},
	{"Priority", "priority", func(t service.Task) string { return t.Priority }},
}

// Headers returns the header row.
func Headers() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Header
	}
	return out
}

// Row projects a task onto Columns.
func Row(t service.Task) []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = c.Value(t)
	}
	return out
}

// Format is an export file type.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

// Formats lists every format in the order "all" exports them.
var Formats = []Format{CSV, XLSX, PDF}

// ParseFormats parses a --format value. "all" expands to every format and
// "excel" is accepted for xlsx.
func ParseFormats(s string) ([]Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return []Format{CSV}, nil
	case "xlsx", "excel":
		return []Format{XLSX}, nil
	case "pdf":
		return []Format{PDF}, nil
	case "all":
		return Formats, nil
	}
	return nil, fmt.Errorf("unknown export format: %s", s)
}

// FileName is the name a format is saved under.
func (f Format) FileName() string {
	return "tasks." + string(f)
}
