package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Grid is one renderable hall chart: a title plus row-major cell labels,
// exactly one label per seat.
type Grid struct {
	Title string
	Cells [][]string
}

// CSVExporter renders hall grids into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes, one block per grid separated by a blank
// line. Cell contents are reproduced exactly, one CSV field per seat.
func (e *CSVExporter) Render(grids []Grid) ([]byte, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("csv requires at least one grid")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, grid := range grids {
		if i > 0 {
			if err := writer.Write([]string{}); err != nil {
				return nil, fmt.Errorf("write csv separator: %w", err)
			}
		}
		if grid.Title != "" {
			if err := writer.Write([]string{grid.Title}); err != nil {
				return nil, fmt.Errorf("write csv title: %w", err)
			}
		}
		for _, row := range grid.Cells {
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
