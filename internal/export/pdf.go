package export

import (
	"io"
	"math"
	"strings"

	"github.com/go-pdf/fpdf"

	"taskflow/internal/service"
)

// A4 portrait, in millimetres.
const (
	PageWidth  = 210.0
	PageHeight = 297.0
)

const (
	pdfMargin   = 10.0
	pdfPad      = 1.5
	pdfLineH    = 5.0
	pdfTitle    = "Task List Report"
	pdfFontName = "Helvetica"
)

type pdfColumn struct {
	header string
	width  float64
	value  func(service.Task) string
}

// The PDF keeps the on-screen table columns rather than the full projection.
var pdfColumns = []pdfColumn{
	{"Title", 60, func(t service.Task) string { return t.Title }},
	{"Category", 35, func(t service.Task) string { return t.Category }},
	{"Due Date", 30, dueDisplay},
	{"Status", 30, func(t service.Task) string { return t.Status }},
	{"Priority", 35, func(t service.Task) string { return t.Priority }},
}

func dueDisplay(t service.Task) string {
	if d, ok := t.Due(); ok {
		return d.Format("2006-01-02")
	}
	return "-"
}

// pdfCell is one box of the table strip. y is measured from the top of the
// strip, not of a page.
type pdfCell struct {
	x, y, w, h float64
	lines      []string
	style      string
	size       float64
	lineH      float64
	fill       bool
	border     bool
}

// pdfLayout is the whole report laid out as a single strip of Height mm.
type pdfLayout struct {
	cells  []pdfCell
	Height float64
}

// Pages is the number of A4 pages the strip is sliced into.
func (l pdfLayout) Pages() int {
	n := int(math.Ceil(l.Height / PageHeight))
	if n < 1 {
		return 1
	}
	return n
}

// latin1 replaces runes outside the core fonts' 256-entry width tables, so
// SplitText can measure every rune of the result.
func latin1(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFF {
			return '?'
		}
		return r
	}, s)
}

// layoutPDF wraps cell text as UTF-8. It is converted to the font encoding
// only when drawn.
func layoutPDF(pdf *fpdf.Fpdf, tasks []service.Task) pdfLayout {
	var l pdfLayout
	y := pdfMargin

	title := pdfCell{
		x: pdfMargin, y: y, w: PageWidth - 2*pdfMargin,
		lines: []string{pdfTitle}, style: "B", size: 16, lineH: 8,
	}
	title.h = title.lineH + 2*pdfPad
	l.cells = append(l.cells, title)
	y += title.h + 3

	x := pdfMargin
	for _, c := range pdfColumns {
		l.cells = append(l.cells, pdfCell{
			x: x, y: y, w: c.width, h: pdfLineH + 2*pdfPad,
			lines: []string{c.header}, style: "B", size: 10, lineH: pdfLineH,
			fill: true, border: true,
		})
		x += c.width
	}
	y += pdfLineH + 2*pdfPad

	pdf.SetFont(pdfFontName, "", 9)
	for _, t := range tasks {
		row := make([]pdfCell, len(pdfColumns))
		maxLines := 1
		x := pdfMargin
		for i, c := range pdfColumns {
			lines := pdf.SplitText(latin1(c.value(t)), c.width-2*pdfPad)
			if len(lines) == 0 {
				lines = []string{""}
			}
			if len(lines) > maxLines {
				maxLines = len(lines)
			}
			row[i] = pdfCell{
				x: x, y: y, w: c.width,
				lines: lines, size: 9, lineH: pdfLineH, border: true,
			}
			x += c.width
		}
		h := float64(maxLines)*pdfLineH + 2*pdfPad
		for i := range row {
			row[i].h = h
		}
		l.cells = append(l.cells, row...)
		y += h
	}

	l.Height = y + pdfMargin
	return l
}

// renderPDF lays the report out and slices the strip into pages. Page i shows
// the band [i*PageHeight, (i+1)*PageHeight) of the strip; a row crossing a
// boundary is drawn on both pages and clipped.
func renderPDF(tasks []service.Task) (*fpdf.Fpdf, pdfLayout) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle(pdfTitle, false)
	pdf.SetDrawColor(0x99, 0x99, 0x99)
	pdf.SetFillColor(0xf2, 0xf2, 0xf2)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	l := layoutPDF(pdf, tasks)
	for i := 0; i < l.Pages(); i++ {
		pdf.AddPage()
		offset := float64(i) * PageHeight
		pdf.ClipRect(0, 0, PageWidth, PageHeight, false)
		for _, c := range l.cells {
			if c.y+c.h <= offset || c.y >= offset+PageHeight {
				continue
			}
			drawCell(pdf, tr, c, c.y-offset)
		}
		pdf.ClipEnd()
	}
	return pdf, l
}

func drawCell(pdf *fpdf.Fpdf, tr func(string) string, c pdfCell, top float64) {
	style := ""
	switch {
	case c.fill && c.border:
		style = "FD"
	case c.fill:
		style = "F"
	case c.border:
		style = "D"
	}
	if style != "" {
		pdf.Rect(c.x, top, c.w, c.h, style)
	}
	pdf.SetFont(pdfFontName, c.style, c.size)
	for i, line := range c.lines {
		baseline := top + pdfPad + float64(i+1)*c.lineH - 1.2
		pdf.Text(c.x+pdfPad, baseline, tr(line))
	}
}

// WritePDF writes the task table as an A4 report.
func WritePDF(w io.Writer, tasks []service.Task) error {
	pdf, _ := renderPDF(tasks)
	return pdf.Output(w)
}
