package lifecycle

import (
	"slices"

	"readyparser/pkg/contracts/domain"
)

// SheetConfig describes one report sheet: its name, the lifecycle date it
// reports on, and whether bucket rows are re-sorted by that date. A sheet
// that is not re-sorted keeps the aggregation order of the selected target.
type SheetConfig struct {
	Name     string
	Interest domain.DateTarget
	Resort   bool
}

// Sheets is the fixed sheet set of a report, in workbook order.
var Sheets = []SheetConfig{
	{Name: "LDoS", Interest: domain.LastDateOfSupport},
	{Name: "EoSMD", Interest: domain.EndOfSoftwareMaintenance, Resort: true},
	{Name: "EoPSD", Interest: domain.EndOfProductSale, Resort: true},
	{Name: "LRD", Interest: domain.LastRenewal, Resort: true},
}

// SheetNames returns the names of Sheets in order.
func SheetNames() []string {
	names := make([]string, len(Sheets))
	for i, s := range Sheets {
		names[i] = s.Name
	}
	return names
}

// Column widths for columns A through G, in character units.
var columnWidths = []float64{15, 12.5, 20, 59, 28, 15, 20}

// Column is one output column of a sheet.
type Column struct {
	Header string
	value  func(r domain.AssetRecord, layout string) interface{}
}

func textColumn(header string, get func(domain.AssetRecord) string) Column {
	return Column{Header: header, value: func(r domain.AssetRecord, _ string) interface{} {
		if v := get(r); v != "" {
			return v
		}
		return nil
	}}
}

// Columns returns the column set of the sheet for the given customer mode.
func (c SheetConfig) Columns(mode domain.CustomerMode) []Column {
	interest := c.Interest
	cols := []Column{
		{Header: "Quantity", value: func(r domain.AssetRecord, _ string) interface{} { return r.ItemQuantity }},
		textColumn(ColCoverage, func(r domain.AssetRecord) string { return r.Coverage }),
		textColumn(ColProductID, func(r domain.AssetRecord) string { return r.ProductID }),
		textColumn(ColProductDescription, func(r domain.AssetRecord) string { return r.ProductDescription }),
		{Header: string(interest), value: func(r domain.AssetRecord, layout string) interface{} {
			if d := r.LifecycleDate(interest); d.Valid {
				return d.Format(layout)
			}
			return nil
		}},
		textColumn(ColMajorMinor, func(r domain.AssetRecord) string { return string(r.MajorMinor) }),
	}
	if mode == domain.MultipleCustomers {
		cols = append(cols, textColumn(ColInstallSiteName, func(r domain.AssetRecord) string { return r.InstallSiteName }))
	}
	return cols
}

// Rows returns the bucket rows shown on this sheet. Rows with a null interest
// date are left out; on re-sorted sheets the rest are ordered ascending by the
// interest date. The bucket itself is not modified.
func (c SheetConfig) Rows(b Bucket) []domain.AssetRecord {
	rows := slices.DeleteFunc(slices.Clone(b.Rows), func(r domain.AssetRecord) bool {
		return !r.LifecycleDate(c.Interest).Valid
	})
	if c.Resort {
		SortByDate(rows, c.Interest)
	}
	return rows
}
