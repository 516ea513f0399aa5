package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// ledgerRow lays values out in LedgerSchemaV1 positions. Dropped positions
// get a sentinel so a mapping mistake shows up as a wrong amount.
func ledgerRow(label string, values map[string]any) []any {
	row := make([]any, LedgerSchemaV1.FirstPositionColumn+27-1)
	row[LedgerSchemaV1.LabelColumn-1] = label
	for _, p := range LedgerSchemaV1.Dropped {
		row[LedgerSchemaV1.FirstPositionColumn+p-1] = 999999
	}
	for _, c := range LedgerSchemaV1.Columns() {
		if v, ok := values[c.Field]; ok {
			row[c.Column-1] = v
		}
	}
	return row
}

func writeLedger(t *testing.T, sheets map[string][][]any, order []string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		require.NoError(t, f.SetCellValue(name, "A1", "Ledger "+name))
		require.NoError(t, f.SetCellValue(name, "A3", "Lot"))
		require.NoError(t, f.SetCellValue(name, "B3", "Tenant"))
		for r, row := range sheets[name] {
			ref, _ := excelize.CoordinatesToCellName(1, LedgerSchemaV1.DataStartRow+r)
			if row == nil {
				continue
			}
			require.NoError(t, f.SetSheetRow(name, ref, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadLedgerMapsPositions(t *testing.T) {
	path := writeLedger(t, map[string][][]any{
		"May": {
			ledgerRow("Lot 12", map[string]any{
				models.FieldTenantName:                "Jane Doe",
				models.FieldStartingBalance:           200,
				models.FieldTotalCarriedOverLastMonth: -50,
				models.FieldMonthlyRent:               400,
				models.FieldMonthlyWater:              35.5,
				models.FieldCarryOverToNextMonth:      12.25,
			}),
		},
	}, []string{"May"})

	res, err := ReadLedger(path, "")
	require.NoError(t, err)
	assert.Equal(t, "May", res.Sheet)
	assert.Equal(t, "ledger-v1", res.SchemaVersion)
	require.Len(t, res.Entries, 1)

	e := res.Entries[0]
	require.NotNil(t, e.LotID)
	assert.Equal(t, 12, *e.LotID)
	assert.Equal(t, "Lot 12", e.RowLabel)
	assert.Equal(t, 4, e.RowNumber)
	assert.Equal(t, "Jane Doe", e.TenantName)
	assert.Equal(t, "200", e.StartingBalance.Decimal.String())
	assert.Equal(t, "-50", e.TotalCarriedOverLastMonth.Decimal.String())
	assert.Equal(t, "400", e.MonthlyRent.Decimal.String())
	assert.Equal(t, "35.5", e.MonthlyWater.Decimal.String())
	assert.Equal(t, "12.25", e.CarryOverToNextMonth.Decimal.String())
	assert.False(t, e.MonthlyStorage.Valid)
	assert.False(t, e.EndingBalance.Valid)
}

func TestReadLedgerDefaultsToLastSheet(t *testing.T) {
	path := writeLedger(t, map[string][][]any{
		"April": {ledgerRow("Lot 1", map[string]any{models.FieldTenantName: "Old"})},
		"May":   {ledgerRow("Lot 1", map[string]any{models.FieldTenantName: "New"})},
	}, []string{"April", "May"})

	res, err := ReadLedger(path, "")
	require.NoError(t, err)
	assert.Equal(t, "May", res.Sheet)
	assert.Equal(t, "New", res.Entries[0].TenantName)

	res, err = ReadLedger(path, "April")
	require.NoError(t, err)
	assert.Equal(t, "Old", res.Entries[0].TenantName)

	_, err = ReadLedger(path, "June")
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestReadLedgerRowHandling(t *testing.T) {
	path := writeLedger(t, map[string][][]any{
		"May": {
			ledgerRow("Lot 3", map[string]any{models.FieldMonthlyRent: "see note"}),
			nil,
			ledgerRow("Office", map[string]any{models.FieldTenantName: "Manager"}),
		},
	}, []string{"May"})

	res, err := ReadLedger(path, "")
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)

	assert.False(t, res.Entries[0].MonthlyRent.Valid)
	assert.Nil(t, res.Entries[1].LotID)
	assert.Equal(t, 6, res.Entries[1].RowNumber)
}

func TestReadLedgerMissingFile(t *testing.T) {
	_, err := ReadLedger(filepath.Join(t.TempDir(), "missing.xlsx"), "")
	require.Error(t, err)
	assert.True(t, ierr.IsIngestion(err))
}
