package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders hall grids into a printable seating chart, one page
// per hall.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional document title and one grid
// table per page.
func (e *PDFExporter) Render(grids []Grid, title string) ([]byte, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("pdf requires at least one grid")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	for _, grid := range grids {
		pdf.AddPage()

		if title != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		}
		if grid.Title != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, grid.Title, "", 1, "C", false, 0, "")
			pdf.Ln(3)
		}

		cols := 1
		for _, row := range grid.Cells {
			if len(row) > cols {
				cols = len(row)
			}
		}
		colWidth := 277.0 / float64(cols)
		pdf.SetFont("Arial", "", 9)
		for _, row := range grid.Cells {
			for _, value := range row {
				pdf.CellFormat(colWidth, 9, value, "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
