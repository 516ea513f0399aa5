// =============================================================================
// Tenant Invoicer - Ledger Reader
// =============================================================================
//
// Reads the bookkeeping export into one models.LedgerEntry per lot row.
//
// PROCESSING:
//   1. Open the workbook and pick the worksheet (named, or the last one)
//   2. Resolve the schema into field -> column bindings
//   3. Walk the rows from the schema's data row, skipping fully blank rows
//   4. Fill each entry: label -> lot, tenant name, then every amount
//
// Cells are read raw (unformatted), so "1,200.00" displayed in the sheet is
// read as 1200. A numeric column holding text is a missing value.
//
// =============================================================================

package xlsxparser

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// LedgerResult is the outcome of reading a ledger worksheet.
type LedgerResult struct {
	// SourceFile is the workbook path.
	SourceFile string

	// Sheet is the worksheet that was read.
	Sheet string

	// SchemaVersion is the layout the sheet was read with.
	SchemaVersion string

	// Entries holds one entry per non-blank row, in sheet order. Entries with
	// a nil LotID are kept so that callers can report them.
	Entries []*models.LedgerEntry
}

// ReadLedger reads a ledger workbook with LedgerSchemaV1.
//
// PARAMETERS:
//   - path: The path to the ledger XLSX file.
//   - sheetName: The worksheet to read; "" selects the last worksheet.
//
// RETURNS:
//   - The entries in sheet order.
//   - An error marked ErrNotFound for an unknown worksheet, or ErrIngestion
//     when the workbook cannot be read.
func ReadLedger(path, sheetName string) (*LedgerResult, error) {
	return ReadLedgerWithSchema(path, sheetName, LedgerSchemaV1)
}

// ReadLedgerWithSchema reads a ledger workbook with a custom layout.
func ReadLedgerWithSchema(path, sheetName string, schema LedgerSchema) (*LedgerResult, error) {
	if err := schema.Validate(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("The ledger layout table is invalid").
			Mark(ierr.ErrConfiguration)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not open ledger workbook %s", path).
			Mark(ierr.ErrIngestion)
	}
	defer f.Close()

	sheet, err := pickSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	result, err := readLedgerSheet(f, sheet, schema)
	if err != nil {
		return nil, err
	}
	result.SourceFile = path
	return result, nil
}

// pickSheet resolves the requested worksheet name. An empty name selects
// the last worksheet in the workbook.
func pickSheet(f *excelize.File, sheetName string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ierr.NewError("workbook has no worksheets").
			WithHint("The ledger workbook has no worksheets").
			Mark(ierr.ErrIngestion)
	}

	if sheetName == "" {
		return sheets[len(sheets)-1], nil
	}
	for _, s := range sheets {
		if s == sheetName {
			return s, nil
		}
	}
	return "", ierr.Newf("worksheet %q not found", sheetName).
		WithHintf("Worksheet %q does not exist; available: %v", sheetName, sheets).
		Mark(ierr.ErrNotFound)
}

// readLedgerSheet parses the rows of one worksheet.
func readLedgerSheet(f *excelize.File, sheet string, schema LedgerSchema) (*LedgerResult, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not read rows of worksheet %q", sheet).
			Mark(ierr.ErrIngestion)
	}

	columns := schema.Columns()
	result := &LedgerResult{
		Sheet:         sheet,
		SchemaVersion: schema.Version,
	}

	for i := schema.DataStartRow - 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}

		entry, err := parseLedgerRow(row, i+1, schema, columns)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// parseLedgerRow builds a LedgerEntry from one sheet row.
func parseLedgerRow(row []string, rowNumber int, schema LedgerSchema, columns []LedgerColumn) (*models.LedgerEntry, error) {
	label := cell(row, schema.LabelColumn)
	entry := &models.LedgerEntry{
		LotID:     ExtractLotNumber(label),
		RowLabel:  label,
		RowNumber: rowNumber,
	}

	for _, col := range columns {
		raw := cell(row, col.Column)
		if col.Field == models.FieldTenantName {
			entry.TenantName = raw
			continue
		}
		target, ok := entry.Amount(col.Field)
		if !ok {
			return nil, ierr.Newf("schema field %q is not a ledger amount", col.Field).
				Mark(ierr.ErrConfiguration)
		}
		*target = parseAmount(raw)
	}

	return entry, nil
}
