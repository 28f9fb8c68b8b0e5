package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// InventoryHeader is the column header row of a vendor install-base export.
var InventoryHeader = []string{
	"Item Quantity",
	"Coverage",
	"Product ID",
	"Product Description",
	"End of Product Sale Date",
	"Last Renewal Date",
	"End of Software Maintenance Date",
	"Last Date of Support",
	"Business Entity",
	"Sub Business Entity",
	"Product Type",
	"Major/Minor",
	"Install Site GU Name",
}

// InventoryRow is one data line of a test export. Dates are stored as day offsets
// from 1899-12-30; zero dates leave the cell empty. Raw overrides any cell by header.
type InventoryRow struct {
	Qty               interface{}
	Coverage          string
	ProductID         string
	Description       string
	EoPSD             time.Time
	LRD               time.Time
	EoSMD             time.Time
	LDoS              time.Time
	BusinessEntity    string
	SubBusinessEntity string
	ProductType       string
	MajorMinor        string
	Site              string
	Raw               map[string]string
}

// Day returns midnight UTC of the given date.
func Day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WriteInventory writes rows under InventoryHeader to dir/name and returns the path.
func WriteInventory(t *testing.T, dir, name string, rows []InventoryRow) string {
	t.Helper()
	path := filepath.Join(dir, name)
	WriteInventoryWithHeader(t, path, InventoryHeader, rows)
	return path
}

// WriteInventoryWithHeader writes an export with three boilerplate rows, the given
// header on row 4 and the rows below it.
func WriteInventoryWithHeader(t *testing.T, path string, header []string, rows []InventoryRow) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	require.NoError(t, f.SetCellValue(sheet, "A1", "Install Base Report"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "Generated for test"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "Confidential"))

	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 4)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}

	for r, row := range rows {
		values := map[string]interface{}{
			"Item Quantity":                    row.Qty,
			"Coverage":                         row.Coverage,
			"Product ID":                       row.ProductID,
			"Product Description":              row.Description,
			"End of Product Sale Date":         serialOrNil(row.EoPSD),
			"Last Renewal Date":                serialOrNil(row.LRD),
			"End of Software Maintenance Date": serialOrNil(row.EoSMD),
			"Last Date of Support":             serialOrNil(row.LDoS),
			"Business Entity":                  row.BusinessEntity,
			"Sub Business Entity":              row.SubBusinessEntity,
			"Product Type":                     row.ProductType,
			"Major/Minor":                      row.MajorMinor,
			"Install Site GU Name":             row.Site,
		}
		for k, v := range row.Raw {
			values[k] = v
		}
		for c, h := range header {
			v, ok := values[h]
			if !ok || v == nil || v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, 5+r)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	require.NoError(t, f.SaveAs(path))
}

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

func serialOrNil(d time.Time) interface{} {
	if d.IsZero() {
		return nil
	}
	return float64((d.Unix() - serialEpoch.Unix()) / 86400)
}

// ReadSheet returns every row of a workbook sheet as displayed text.
func ReadSheet(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

// BlockRows returns the data rows written directly under a bold block label.
func BlockRows(t *testing.T, rows [][]string, label string) [][]string {
	t.Helper()
	for i, row := range rows {
		if len(row) == 1 && row[0] == label {
			var out [][]string
			for _, r := range rows[i+1:] {
				if len(r) == 0 {
					break
				}
				out = append(out, r)
			}
			return out
		}
	}
	t.Fatalf("label %q not found", label)
	return nil
}
