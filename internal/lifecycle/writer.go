package lifecycle

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"

	"readyparser/internal/infrastructure"
	"readyparser/pkg/contracts/domain"
)

// WriteOptions controls the report layout.
type WriteOptions struct {
	Mode       domain.CustomerMode
	DateFormat DateFormat
}

// Writer renders portfolio buckets into the four report sheets.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a report writer; a nil logger falls back to slog.Default.
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: infrastructure.WithComponent(logger, "lifecycle_writer")}
}

// Write renders buckets into every sheet of Sheets in the workbook at path. An
// existing workbook is opened and overlaid, keeping its other sheets; otherwise a
// new one is created. The workbook is saved once, after all sheets are rendered.
func (w *Writer) Write(path string, buckets []Bucket, opts WriteOptions) ([]EmptyResultWarning, error) {
	f, err := openOrCreate(path)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}

	layout := opts.DateFormat.Layout()
	var warnings []EmptyResultWarning
	for _, sheet := range Sheets {
		sheetWarnings, err := w.writeSheet(f, sheet, buckets, opts.Mode, layout, bold)
		if err != nil {
			return nil, &WriteError{Path: path, Sheet: sheet.Name, Err: err}
		}
		warnings = append(warnings, sheetWarnings...)
	}

	if err := f.SaveAs(path); err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}

	for _, warn := range warnings {
		w.logger.Warn("empty report block",
			slog.String("file", path),
			slog.String("sheet", warn.Sheet),
			slog.String("bucket", string(warn.Bucket)))
	}
	w.logger.Info("report written",
		slog.String("file", path),
		slog.String("mode", string(opts.Mode)),
		slog.Int("warnings", len(warnings)))
	return warnings, nil
}

func (w *Writer) writeSheet(f *excelize.File, sheet SheetConfig, buckets []Bucket, mode domain.CustomerMode, layout string, bold int) ([]EmptyResultWarning, error) {
	columns := sheet.Columns(mode)
	for i, col := range columns {
		if err := setCell(f, sheet.Name, i+1, 1, col.Header); err != nil {
			return nil, err
		}
	}

	var warnings []EmptyResultWarning
	total := 0
	rowNum := 2
	for _, b := range buckets {
		labelCell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet.Name, labelCell, b.Label()); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet.Name, labelCell, labelCell, bold); err != nil {
			return nil, err
		}

		rows := sheet.Rows(b)
		for i, r := range rows {
			for j, col := range columns {
				v := col.value(r, layout)
				if v == nil {
					continue
				}
				if err := setCell(f, sheet.Name, j+1, rowNum+1+i, v); err != nil {
					return nil, err
				}
			}
		}
		if len(rows) == 0 && !b.Portfolio.Placeholder() {
			warnings = append(warnings, EmptyResultWarning{Sheet: sheet.Name, Bucket: b.Portfolio})
		}
		total += len(rows)
		rowNum += len(rows) + 2
	}
	if total == 0 {
		warnings = append(warnings, EmptyResultWarning{Sheet: sheet.Name})
	}

	for i, width := range columnWidths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet.Name, name, name, width); err != nil {
			return nil, err
		}
	}
	return warnings, nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

// openOrCreate opens the workbook at path, or starts a new one, and makes sure
// every report sheet exists.
func openOrCreate(path string) (*excelize.File, error) {
	var f *excelize.File
	_, err := os.Stat(path)
	switch {
	case err == nil:
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open existing workbook: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		f = excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), Sheets[0].Name); err != nil {
			f.Close()
			return nil, err
		}
	default:
		return nil, err
	}

	for _, sheet := range Sheets {
		idx, err := f.GetSheetIndex(sheet.Name)
		if err != nil {
			f.Close()
			return nil, err
		}
		if idx >= 0 {
			continue
		}
		if _, err := f.NewSheet(sheet.Name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", sheet.Name, err)
		}
	}
	return f, nil
}
