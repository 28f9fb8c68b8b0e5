package lifecycle

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"readyparser/internal/infrastructure"
	"readyparser/pkg/contracts/domain"
)

// The vendor export carries three rows of boilerplate above the header row.
const headerRows = 3

// Column headers of the install-base export.
const (
	ColItemQuantity       = "Item Quantity"
	ColCoverage           = "Coverage"
	ColProductID          = "Product ID"
	ColProductDescription = "Product Description"
	ColBusinessEntity     = "Business Entity"
	ColSubBusinessEntity  = "Sub Business Entity"
	ColProductType        = "Product Type"
	ColMajorMinor         = "Major/Minor"
	ColInstallSiteName    = "Install Site GU Name"
)

// RequiredColumns are the thirteen columns the report is built from.
var RequiredColumns = []string{
	ColItemQuantity,
	ColCoverage,
	ColProductID,
	ColProductDescription,
	string(domain.EndOfProductSale),
	string(domain.LastRenewal),
	string(domain.EndOfSoftwareMaintenance),
	string(domain.LastDateOfSupport),
	ColBusinessEntity,
	ColSubBusinessEntity,
	ColProductType,
	ColMajorMinor,
	ColInstallSiteName,
}

// LoadResult is the normalized content of one input workbook.
type LoadResult struct {
	Sheet      string
	Records    []domain.AssetRecord
	DateErrors []*DateParseError
}

// Loader reads vendor install-base workbooks.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader; a nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: infrastructure.WithComponent(logger, "lifecycle_loader")}
}

// Load reads the first sheet of the workbook at path. Rows keep their input order;
// blank rows are skipped and unreadable lifecycle dates become null.
func (l *Loader) Load(path string) (*LoadResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "cannot open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &LoadError{Path: path, Reason: "workbook has no sheets"}
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "cannot read sheet " + sheet, Err: err}
	}
	if len(rows) <= headerRows {
		return nil, &LoadError{Path: path, Reason: "header row not found", Missing: RequiredColumns}
	}

	columns := indexHeader(rows[headerRows])
	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Path: path, Reason: "required columns not found", Missing: missing}
	}

	result := &LoadResult{Sheet: sheet}
	for i := headerRows + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		// Spreadsheet row numbers are 1-based.
		record, dateErrs := l.parseRow(row, columns, i+1)
		result.Records = append(result.Records, record)
		result.DateErrors = append(result.DateErrors, dateErrs...)
	}

	for _, de := range result.DateErrors {
		l.logger.Debug("lifecycle date recovered as null",
			slog.String("file", path),
			slog.Int("row", de.Row),
			slog.String("column", string(de.Column)),
			slog.String("value", de.Value))
	}
	l.logger.Info("workbook loaded",
		slog.String("file", path),
		slog.String("sheet", sheet),
		slog.Int("records", len(result.Records)),
		slog.Int("date_parse_errors", len(result.DateErrors)))

	return result, nil
}

func (l *Loader) parseRow(row []string, columns map[string]int, rowNum int) (domain.AssetRecord, []*DateParseError) {
	cell := func(name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	record := domain.AssetRecord{
		ItemQuantity:       parseQuantity(cell(ColItemQuantity)),
		Coverage:           cell(ColCoverage),
		ProductID:          cell(ColProductID),
		ProductDescription: cell(ColProductDescription),
		BusinessEntity:     cell(ColBusinessEntity),
		SubBusinessEntity:  cell(ColSubBusinessEntity),
		ProductType:        cell(ColProductType),
		MajorMinor:         domain.MajorMinor(cell(ColMajorMinor)),
		InstallSiteName:    cell(ColInstallSiteName),
	}

	var dateErrs []*DateParseError
	for _, target := range domain.DateTargets {
		raw := cell(string(target))
		date, err := ParseSerialDate(raw)
		if err != nil {
			dateErrs = append(dateErrs, &DateParseError{Column: target, Row: rowNum, Value: raw, Err: err})
		}
		record = record.SetLifecycleDate(target, date)
	}
	return record, dateErrs
}

// indexHeader maps trimmed header names to their column index; the first
// occurrence of a duplicated header wins.
func indexHeader(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}
	return columns
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseQuantity reads an item count; blanks and non-numeric values count as zero.
func parseQuantity(raw string) int {
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0
	}
	return int(f)
}
