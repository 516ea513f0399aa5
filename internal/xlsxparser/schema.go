// =============================================================================
// Tenant Invoicer - Spreadsheet Schemas
// =============================================================================
//
// The two input workbooks are read positionally. Their layouts are described
// here as versioned constant tables so that a change in the bookkeeping export
// is a new table, not an edit scattered through the readers.
//
// LEDGER LAYOUT (LedgerSchemaV1):
//
//   | Row | Column A  | Column B    | Column C  | Column D         | ... |
//   |-----|-----------|-------------|-----------|------------------|-----|
//   | 1-2 | title rows, ignored                                          |
//   | 3   | labels    | Tenant      | (dropped) | Starting balance | ... |
//   | 4+  | "Lot 12"  | Jane Doe    | ...       | 120.00           | ... |
//
//   Positions are counted from column B (position 0). Positions 1, 9, 15, 23
//   and 25 are subtotal/spacer columns and are dropped; the remaining 22
//   positions map 1:1 onto models.LedgerFieldNames.
//
// WATER REPORT LAYOUT (WaterSchemaV1):
//
//   | Row | Column A | Column B | Column C | Column D      | Column E      |
//   |-----|----------|----------|----------|---------------|---------------|
//   | 1   | title row, ignored                                            |
//   | 2   | labels   | ...      | Meter #  | <current date>| <prev date>   |
//   | 3+  | "Lot 12" | ...      | 42       | 1450          | 1200          |
//
//   The reading dates are the label cells of columns D and E and must be
//   date-typed cells.
//
// =============================================================================

package xlsxparser

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// =============================================================================
// LEDGER SCHEMA
// =============================================================================

// LedgerSchema describes the positional layout of a ledger worksheet.
// Rows and columns are 1-based, as in the spreadsheet.
type LedgerSchema struct {
	// Version identifies the export layout.
	Version string

	// LabelRow holds the column labels. DataStartRow is the first entry row.
	LabelRow     int
	DataStartRow int

	// LabelColumn holds the lot label ("Lot 12").
	LabelColumn int

	// FirstPositionColumn is the column of position 0.
	FirstPositionColumn int

	// Dropped lists the positions that carry no ledger field.
	Dropped []int

	// Fields are assigned in order to the positions that are not dropped.
	Fields []string
}

// LedgerSchemaV1 is the current bookkeeping export layout.
var LedgerSchemaV1 = LedgerSchema{
	Version:             "ledger-v1",
	LabelRow:            3,
	DataStartRow:        4,
	LabelColumn:         1, // Column A
	FirstPositionColumn: 2, // Column B
	Dropped:             []int{1, 9, 15, 23, 25},
	Fields:              models.LedgerFieldNames,
}

// LedgerColumn binds one ledger field to its worksheet column.
type LedgerColumn struct {
	Field    string
	Position int
	Column   int
}

// ColumnName returns the column letter(s), e.g. "B".
func (c LedgerColumn) ColumnName() string {
	name, _ := excelize.ColumnNumberToName(c.Column)
	return name
}

// Columns resolves the schema into one LedgerColumn per field.
func (s LedgerSchema) Columns() []LedgerColumn {
	dropped := make(map[int]bool, len(s.Dropped))
	for _, p := range s.Dropped {
		dropped[p] = true
	}

	cols := make([]LedgerColumn, 0, len(s.Fields))
	pos := 0
	for _, field := range s.Fields {
		for dropped[pos] {
			pos++
		}
		cols = append(cols, LedgerColumn{
			Field:    field,
			Position: pos,
			Column:   s.FirstPositionColumn + pos,
		})
		pos++
	}
	return cols
}

// Validate checks the table is internally consistent.
func (s LedgerSchema) Validate() error {
	if s.LabelRow < 1 || s.DataStartRow <= s.LabelRow {
		return fmt.Errorf("schema %s: data must start below the label row", s.Version)
	}
	if s.LabelColumn < 1 || s.FirstPositionColumn <= s.LabelColumn {
		return fmt.Errorf("schema %s: positions must start right of the label column", s.Version)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields", s.Version)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f] {
			return fmt.Errorf("schema %s: field %q mapped twice", s.Version, f)
		}
		seen[f] = true
	}
	return nil
}

// =============================================================================
// WATER SCHEMA
// =============================================================================

// WaterSchema describes the layout of a water-meter report worksheet.
type WaterSchema struct {
	Version string

	LabelRow     int
	DataStartRow int

	LabelColumn int

	// MeterLabel is the label of the meter id column, matched without regard
	// to case or surrounding space.
	MeterLabel string

	// CurrentColumn and PreviousColumn hold the readings; their label cells
	// hold the reading dates.
	CurrentColumn  int
	PreviousColumn int
}

// WaterSchemaV1 is the current meter report layout.
var WaterSchemaV1 = WaterSchema{
	Version:        "water-v1",
	LabelRow:       2,
	DataStartRow:   3,
	LabelColumn:    1, // Column A
	MeterLabel:     "Meter #",
	CurrentColumn:  4, // Column D
	PreviousColumn: 5, // Column E
}

// CurrentDateCell is the label cell holding the current reading date.
func (s WaterSchema) CurrentDateCell() string {
	cell, _ := excelize.CoordinatesToCellName(s.CurrentColumn, s.LabelRow)
	return cell
}

// PreviousDateCell is the label cell holding the previous reading date.
func (s WaterSchema) PreviousDateCell() string {
	cell, _ := excelize.CoordinatesToCellName(s.PreviousColumn, s.LabelRow)
	return cell
}
