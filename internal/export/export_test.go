package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"taskflow/internal/service"
)

const headerLine = "Task Title,Task Description,Category,Due Date,Status,Priority\n"

func sampleTasks(n int) []service.Task {
	tasks := make([]service.Task, n)
	for i := range tasks {
		tasks[i] = service.Task{
			ID:          fmt.Sprintf("t%d", i),
			Title:       fmt.Sprintf("Task %d", i+1),
			Description: "details",
			Category:    "Work",
			DueDate:     "2024-03-01T00:00:00.000Z",
			Status:      service.StatusPending,
			Priority:    service.PriorityMedium,
		}
	}
	return tasks
}

type staticSource struct {
	tasks []service.Task
	ok    bool
}

func (s staticSource) Snapshot() ([]service.Task, bool) { return s.tasks, s.ok }

func TestWriteCSV_EmptyIsHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != headerLine {
		t.Errorf("expected header only, got %q", buf.String())
	}
}

func TestWriteCSV_Quoting(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
	}{
		{"comma", "Buy milk, eggs", "milk, eggs, bread"},
		{"quotes", `She said "hi"`, `reply "bye"`},
		{"newline", "line1\nline2", "first\nsecond\r\nthird"},
		{"mixed", `a, "b"` + "\nc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := service.Task{Title: tt.title, Description: tt.description, Status: service.StatusPending, Priority: service.PriorityLow}

			var buf bytes.Buffer
			if err := WriteCSV(&buf, []service.Task{task}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			records, err := csv.NewReader(&buf).ReadAll()
			if err != nil {
				t.Fatalf("read back: %v", err)
			}
			if len(records) != 2 {
				t.Fatalf("expected 2 records, got %d", len(records))
			}
			if records[1][0] != tt.title {
				t.Errorf("title did not round-trip: %q", records[1][0])
			}
			// encoding/csv reads \r\n inside a quoted field back as \n.
			wantDesc := strings.ReplaceAll(tt.description, "\r\n", "\n")
			if records[1][1] != wantDesc {
				t.Errorf("description did not round-trip: %q", records[1][1])
			}
			if records[1][5] != service.PriorityLow {
				t.Errorf("expected priority column last, got %q", records[1][5])
			}
		})
	}
}

func TestWriteXLSX_SameProjection(t *testing.T) {
	tasks := sampleTasks(2)

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",")+"\n" != headerLine {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[2][0] != "Task 2" || rows[2][2] != "Work" {
		t.Errorf("unexpected row %v", rows[2])
	}
}

func TestPDF_SingleRowIsOnePage(t *testing.T) {
	pdf, layout := renderPDF(sampleTasks(1))
	if layout.Pages() != 1 {
		t.Errorf("expected 1 page, layout height %.1f gave %d", layout.Height, layout.Pages())
	}
	if pdf.PageCount() != 1 {
		t.Errorf("expected 1 rendered page, got %d", pdf.PageCount())
	}
}

func TestPDF_PageCountFollowsStripHeight(t *testing.T) {
	pdf, layout := renderPDF(sampleTasks(120))
	want := int(math.Ceil(layout.Height / PageHeight))
	if want < 2 {
		t.Fatalf("expected a multi-page layout, height %.1f", layout.Height)
	}
	if pdf.PageCount() != want {
		t.Errorf("expected %d pages, got %d", want, pdf.PageCount())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("output: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("expected a PDF document")
	}
}

func TestPDF_LongTitleWraps(t *testing.T) {
	tasks := sampleTasks(1)
	tasks[0].Title = strings.Repeat("very long title ", 20)

	_, wrapped := renderPDF(tasks)
	_, plain := renderPDF(sampleTasks(1))
	if wrapped.Height <= plain.Height {
		t.Errorf("expected wrapped row to be taller: %.1f <= %.1f", wrapped.Height, plain.Height)
	}
}

func TestPDF_NonASCIIText(t *testing.T) {
	tasks := []service.Task{
		{Title: "Café meeting", Category: "Überweisung", Status: service.StatusPending, Priority: "niño"},
		{Title: "会议", Category: "Work", Status: service.StatusPending, Priority: service.PriorityLow},
		{Title: strings.Repeat("crème brûlée ", 15), Category: "Food", Status: service.StatusPending, Priority: service.PriorityHigh},
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("expected a PDF document")
	}

	_, layout := renderPDF(tasks)
	// Title cell, then one cell per header, then the rows.
	row := func(i int) []pdfCell {
		start := 1 + len(pdfColumns) + i*len(pdfColumns)
		return layout.cells[start : start+len(pdfColumns)]
	}
	if got := row(0)[0].lines; len(got) != 1 || got[0] != "Café meeting" {
		t.Errorf("expected accented title kept, got %q", got)
	}
	if got := row(1)[0].lines; len(got) != 1 || got[0] != "??" {
		t.Errorf("expected unencodable runes replaced, got %q", got)
	}
	if got := row(2)[0].lines; len(got) < 2 {
		t.Errorf("expected accented title to wrap, got %q", got)
	}
}

func TestExport_AllFormats(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, nil)

	paths, err := e.Export(context.Background(), Formats, staticSource{tasks: sampleTasks(3), ok: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		filepath.Join(dir, "tasks.csv"),
		filepath.Join(dir, "tasks.xlsx"),
		filepath.Join(dir, "tasks.pdf"),
	}
	if strings.Join(paths, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, paths)
	}
	for _, p := range want {
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Errorf("expected non-empty %s: %v", p, err)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("expected no temporary files left, got %d entries", len(entries))
	}
}

func TestExport_NoContentWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e := New(dir, nil)

	_, err := e.Export(context.Background(), Formats, staticSource{})
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected no output directory, got %v", err)
	}
}

type gatedSource struct {
	entered chan struct{}
	release chan struct{}
}

func (g gatedSource) Snapshot() ([]service.Task, bool) {
	close(g.entered)
	<-g.release
	return nil, true
}

func TestExport_InFlightGuard(t *testing.T) {
	e := New(t.TempDir(), nil)
	src := gatedSource{entered: make(chan struct{}), release: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := e.Export(context.Background(), []Format{CSV}, src)
		done <- err
	}()
	<-src.entered

	if _, err := e.Export(context.Background(), []Format{CSV}, staticSource{ok: true}); !errors.Is(err, ErrExportInProgress) {
		t.Errorf("expected ErrExportInProgress, got %v", err)
	}

	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}

	// The guard is released once the first export finishes.
	if _, err := e.Export(context.Background(), []Format{CSV}, staticSource{ok: true}); err != nil {
		t.Errorf("expected second export to succeed, got %v", err)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []Format
		wantErr bool
	}{
		{"csv", []Format{CSV}, false},
		{"excel", []Format{XLSX}, false},
		{"XLSX", []Format{XLSX}, false},
		{"pdf", []Format{PDF}, false},
		{"all", Formats, false},
		{"docx", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseFormats(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormats(%q) error = %v", tt.in, err)
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("ParseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
