package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/factura-ai/invoice-pipeline/internal/invoice"
)

// Service produces XLSX bytes from a merged invoice record. It applies
// the same header-union rule as the CSV projection, rendered as a
// workbook for users who want the line items in a spreadsheet.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ProjectXLSX returns a workbook with one "Articulos" sheet. An empty
// or absent line item list is an error here (the caller decides how to
// surface it; the HTTP layer maps it to 400).
func (s *Service) ProjectXLSX(rec *invoice.Record) ([]byte, error) {
	start := time.Now()

	if rec == nil || len(rec.Articulos) == 0 {
		return nil, fmt.Errorf("no line items to export")
	}

	headers := invoice.HeaderUnion(rec.Articulos)
	if len(headers) == 0 {
		return nil, fmt.Errorf("no columns to export")
	}

	f := excelize.NewFile()
	const sheet = "Articulos"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	if idx, err := f.GetSheetIndex(sheet); err == nil {
		f.SetActiveSheet(idx)
	}
	_ = f.DeleteSheet("Sheet1")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for r, item := range rec.Articulos {
		for c, key := range headers {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if v, ok := item[key]; ok && v != nil {
				_ = f.SetCellValue(sheet, cell, v)
			}
		}
	}

	// Widen the description column when present.
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := 14.0
		if h == "descripcion" {
			width = 48.0
		}
		_ = f.SetColWidth(sheet, col, col, width)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rec.Articulos),
		"cols", len(headers),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
