package xlsxparser

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

var (
	statement = models.NewDate(2024, time.June, 1)
	readAt    = time.Date(2024, time.June, 2, 9, 0, 0, 0, time.UTC)
)

type waterSheet struct {
	current, previous any
	meterLabel        string
	rows              [][]any
}

func writeWater(t *testing.T, ws waterSheet) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	require.NoError(t, f.SetCellValue(sheet, "A1", "Meter report"))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Lot", "Owner", ws.meterLabel}))
	require.NoError(t, f.SetCellValue(sheet, "D2", ws.current))
	require.NoError(t, f.SetCellValue(sheet, "E2", ws.previous))
	for i, row := range ws.rows {
		if row == nil {
			continue
		}
		ref, _ := excelize.CoordinatesToCellName(1, WaterSchemaV1.DataStartRow+i)
		require.NoError(t, f.SetSheetRow(sheet, ref, &row))
	}

	path := filepath.Join(t.TempDir(), "water.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadWater(t *testing.T) {
	path := writeWater(t, waterSheet{
		current:    time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC),
		previous:   time.Date(2024, time.April, 30, 15, 30, 0, 0, time.UTC),
		meterLabel: "Meter #",
		rows: [][]any{
			{"Lot 1", "A", 11, 1450, 1200},
			{"Lot 2", "B", 12, 900, 950},
			nil,
			{"Office", "C", 30, 10, 5},
			{"Lot 4", "D", "n/a", 10, 5},
			{"Lot 1", "E", 13, 20, 10},
		},
	})

	rep, err := ReadWater(path, statement, readAt)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-31", rep.CurrentDate.String())
	assert.Equal(t, "2024-04-30", rep.PreviousDate.String())
	assert.Equal(t, []int{1, 30}, rep.Lots)

	w, ok := rep.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, 11, w.MeterID)
	assert.Equal(t, 250, w.Usage())
	assert.True(t, w.StatementDate.Equal(statement))
	assert.Equal(t, readAt, w.InsertedAt)

	w, ok = rep.Lookup(30)
	require.True(t, ok)
	assert.Equal(t, 30, w.MeterID)

	require.Len(t, rep.Rejected, 3)
	assert.Equal(t, "Lot 2", rep.Rejected[0].RowLabel)
	assert.Equal(t, 4, rep.Rejected[0].RowNumber)
	assert.Contains(t, rep.Rejected[0].Message, "Meter 12")
	assert.Equal(t, "watermeter_id", rep.Rejected[1].Field)
	assert.Equal(t, "duplicate_lot", rep.Rejected[2].Rule)
}

func TestReadWaterRequiresDateLabels(t *testing.T) {
	path := writeWater(t, waterSheet{
		current:    "May",
		previous:   time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		meterLabel: "Meter #",
	})
	_, err := ReadWater(path, statement, readAt)
	require.Error(t, err)
	assert.True(t, ierr.IsIngestion(err))
}

func TestReadWaterRequiresMeterColumn(t *testing.T) {
	path := writeWater(t, waterSheet{
		current:    time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC),
		previous:   time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		meterLabel: "Meter",
	})
	_, err := ReadWater(path, statement, readAt)
	require.Error(t, err)
	assert.True(t, ierr.IsIngestion(err))
}

func TestWaterReportNilLookup(t *testing.T) {
	var rep *WaterReport
	_, ok := rep.Lookup(1)
	assert.False(t, ok)
}
