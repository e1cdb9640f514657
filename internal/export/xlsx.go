package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements Writer by writing a local XLSX workbook. POSITIONS
// and CLOSED are rewritten every run; HISTORY accumulates one row per run.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a writer targeting the given file path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(ctx context.Context, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, created, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := rewriteSheet(f, "POSITIONS", positionValues(report)); err != nil {
		return err
	}
	if err := rewriteSheet(f, "CLOSED", closedValues(report)); err != nil {
		return err
	}
	if err := appendHistoryRow(f, report); err != nil {
		return err
	}

	if created {
		// The default sheet excelize creates on NewFile.
		f.DeleteSheet("Sheet1")
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}

// open loads the existing workbook or starts a fresh one.
func (w *XLSXWriter) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("opening workbook %s: %w", w.path, err)
}

// rewriteSheet drops and recreates a sheet with the given rows.
func rewriteSheet(f *excelize.File, name string, rows [][]any) error {
	if idx, _ := f.GetSheetIndex(name); idx >= 0 {
		if err := f.DeleteSheet(name); err != nil {
			return fmt.Errorf("resetting sheet %s: %w", name, err)
		}
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("writing sheet %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}

// appendHistoryRow adds this run's totals to the HISTORY sheet, creating it
// with a header when missing.
func appendHistoryRow(f *excelize.File, report Report) error {
	const name = "HISTORY"

	next := 1
	if idx, _ := f.GetSheetIndex(name); idx >= 0 {
		rows, err := f.GetRows(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		next = len(rows) + 1
	} else {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	if next == 1 {
		header := historyHeader
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("writing %s header: %w", name, err)
		}
		next = 2
	}

	cell, err := excelize.CoordinatesToCellName(1, next)
	if err != nil {
		return fmt.Errorf("addressing %s row %d: %w", name, next, err)
	}
	row := historyRow(report)
	if err := f.SetSheetRow(name, cell, &row); err != nil {
		return fmt.Errorf("appending %s row: %w", name, err)
	}
	return nil
}
