// =============================================================================
// Tenant Invoicer - Water Report Reader
// =============================================================================
//
// Reads the water-meter report into one models.WaterUsageRecord per meter row.
//
// The reading dates are not per-row: they sit in the label row, above the
// current and previous reading columns. A report whose date labels are not
// date cells cannot be billed and aborts the read. A row that fails
// validation (missing meter id, non-numeric reading, current below previous)
// is rejected and reported, and the read continues.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
	"github.com/ginjaninja78/tenant-invoicer/internal/validation"
)

// WaterReport is the outcome of reading a water-meter report.
type WaterReport struct {
	SourceFile    string
	Sheet         string
	SchemaVersion string

	// PreviousDate and CurrentDate are the reading dates from the label row.
	PreviousDate models.Date
	CurrentDate  models.Date

	// ByLot holds the accepted records keyed by lot number.
	ByLot map[int]*models.WaterUsageRecord

	// Lots lists the keys of ByLot in sheet order.
	Lots []int

	// Rejected lists the rows that failed validation.
	Rejected []*validation.ValidationError
}

// Lookup returns the record for lot, if any.
func (r *WaterReport) Lookup(lot int) (*models.WaterUsageRecord, bool) {
	if r == nil {
		return nil, false
	}
	w, ok := r.ByLot[lot]
	return w, ok
}

// LotNumbers returns the lots that have an accepted reading, in sheet order.
func (r *WaterReport) LotNumbers() []int {
	if r == nil {
		return nil
	}
	out := make([]int, len(r.Lots))
	copy(out, r.Lots)
	return out
}

// ReadWater reads a water-meter report with WaterSchemaV1. Every accepted
// record is stamped with statementDate; now is the record creation time.
func ReadWater(path string, statementDate models.Date, now time.Time) (*WaterReport, error) {
	return ReadWaterWithSchema(path, statementDate, now, WaterSchemaV1)
}

// ReadWaterWithSchema reads a water-meter report with a custom layout.
func ReadWaterWithSchema(path string, statementDate models.Date, now time.Time, schema WaterSchema) (*WaterReport, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not open water report %s", path).
			Mark(ierr.ErrIngestion)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ierr.NewError("water report has no worksheets").
			WithHint("The water report workbook has no worksheets").
			Mark(ierr.ErrIngestion)
	}

	report, err := readWaterSheet(f, sheet, schema, statementDate, now)
	if err != nil {
		return nil, err
	}
	report.SourceFile = path
	return report, nil
}

func readWaterSheet(f *excelize.File, sheet string, schema WaterSchema, statementDate models.Date, now time.Time) (*WaterReport, error) {
	report := &WaterReport{
		Sheet:         sheet,
		SchemaVersion: schema.Version,
		ByLot:         make(map[int]*models.WaterUsageRecord),
	}

	// STEP 1: Reading dates from the label row.
	var err error
	if report.CurrentDate, err = labelDate(f, sheet, schema.CurrentDateCell(), "current"); err != nil {
		return nil, err
	}
	if report.PreviousDate, err = labelDate(f, sheet, schema.PreviousDateCell(), "previous"); err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not read rows of worksheet %q", sheet).
			Mark(ierr.ErrIngestion)
	}

	// STEP 2: Meter id column.
	meterCol := 0
	if len(rows) >= schema.LabelRow {
		for i, label := range rows[schema.LabelRow-1] {
			if strings.EqualFold(strings.TrimSpace(label), schema.MeterLabel) {
				meterCol = i + 1
				break
			}
		}
	}
	if meterCol == 0 {
		return nil, ierr.Newf("no %q column in label row %d", schema.MeterLabel, schema.LabelRow).
			WithHintf("The water report has no %q column", schema.MeterLabel).
			Mark(ierr.ErrIngestion)
	}

	// STEP 3: Meter rows.
	for i := schema.DataStartRow - 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		rowNumber := i + 1
		label := cell(row, schema.LabelColumn)

		rec, verr := parseWaterRow(row, schema, meterCol, models.WaterUsageInput{
			PreviousDate:  report.PreviousDate,
			CurrentDate:   report.CurrentDate,
			StatementDate: statementDate,
			Now:           now,
		})
		if verr != nil {
			report.Rejected = append(report.Rejected, verr.AtRow(rowNumber, label))
			continue
		}

		key := rec.MeterID
		if lot := ExtractLotNumber(label); lot != nil {
			key = *lot
		}
		if _, dup := report.ByLot[key]; dup {
			report.Rejected = append(report.Rejected,
				validation.NewError("", "duplicate_lot", fmt.Sprintf("lot %d already has a meter reading", key)).
					AtRow(rowNumber, label))
			continue
		}
		report.ByLot[key] = rec
		report.Lots = append(report.Lots, key)
	}

	return report, nil
}

// labelDate reads one of the reading-date label cells.
func labelDate(f *excelize.File, sheet, ref, which string) (models.Date, error) {
	ok, err := isDateCell(f, sheet, ref)
	if err != nil {
		return models.Date{}, ierr.WithError(err).
			WithHintf("Could not read the %s reading date in %s", which, ref).
			Mark(ierr.ErrIngestion)
	}
	if !ok {
		return models.Date{}, ierr.Newf("%s reading date cell %s is not a date", which, ref).
			WithHintf("The %s reading date in cell %s must be a date", which, ref).
			Mark(ierr.ErrIngestion)
	}
	d, ok := readDate(f, sheet, ref)
	if !ok {
		return models.Date{}, ierr.Newf("%s reading date cell %s is empty or unreadable", which, ref).
			WithHintf("The %s reading date in cell %s must be a date", which, ref).
			Mark(ierr.ErrIngestion)
	}
	return d, nil
}

// parseWaterRow validates one meter row into a record.
func parseWaterRow(row []string, schema WaterSchema, meterCol int, in models.WaterUsageInput) (*models.WaterUsageRecord, *validation.ValidationError) {
	var ok bool
	if in.MeterID, ok = parseWhole(cell(row, meterCol)); !ok {
		return nil, &validation.ValidationError{
			Severity: validation.SeverityError, Field: "watermeter_id", Rule: "integer",
			Value: cell(row, meterCol), Message: "meter id must be a whole number",
		}
	}
	if in.CurrentReading, ok = parseWhole(cell(row, schema.CurrentColumn)); !ok {
		return nil, &validation.ValidationError{
			Severity: validation.SeverityError, Field: "current_reading", Rule: "integer",
			Value: cell(row, schema.CurrentColumn), Message: "current reading must be a whole number",
		}
	}
	if in.PreviousReading, ok = parseWhole(cell(row, schema.PreviousColumn)); !ok {
		return nil, &validation.ValidationError{
			Severity: validation.SeverityError, Field: "previous_reading", Rule: "integer",
			Value: cell(row, schema.PreviousColumn), Message: "previous reading must be a whole number",
		}
	}

	rec, err := models.NewWaterUsageRecord(in)
	if err != nil {
		return nil, validation.NewError("", "invariant", ierr.UserMessage(err))
	}
	return rec, nil
}
