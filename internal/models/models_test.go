package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
)

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.March, 9)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-09"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(d))

	assert.Equal(t, "", Date{}.String())
	assert.Equal(t, "2024-02-29", NewDate(2024, time.March, 1).AddDays(-1).String())
}

func TestDateOfDropsClock(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	late := time.Date(2024, time.May, 31, 23, 30, 0, 0, ny)
	assert.Equal(t, "2024-05-31", DateOf(late).String())
}

func TestNewWaterUsageRecord(t *testing.T) {
	now := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)
	rec, err := NewWaterUsageRecord(WaterUsageInput{
		MeterID:         7,
		PreviousDate:    NewDate(2024, time.April, 30),
		CurrentDate:     NewDate(2024, time.May, 31),
		PreviousReading: 1200,
		CurrentReading:  1450,
		Now:             now,
	})
	require.NoError(t, err)
	assert.Equal(t, 250, rec.Usage())
	assert.Equal(t, "2024-06-01", rec.StatementDate.String())
	assert.NotEqual(t, [16]byte{}, [16]byte(rec.ID))

	bill := rec.BillAmount(decimal.RequireFromString("0.0125"), decimal.NewFromInt(10))
	assert.Equal(t, "13.13", bill.StringFixed(2))
}

func TestNewWaterUsageRecordRejectsReversedReadings(t *testing.T) {
	_, err := NewWaterUsageRecord(WaterUsageInput{
		MeterID:         3,
		PreviousReading: 500,
		CurrentReading:  499,
	})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
	assert.Contains(t, ierr.UserMessage(err), "Meter 3")
}

func TestNewWaterUsageRecordRejectsNegativeMeter(t *testing.T) {
	_, err := NewWaterUsageRecord(WaterUsageInput{MeterID: -1})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestLedgerEntryAmountByName(t *testing.T) {
	var e LedgerEntry
	for _, name := range LedgerFieldNames {
		if name == FieldTenantName {
			_, ok := e.Amount(name)
			assert.False(t, ok)
			continue
		}
		f, ok := e.Amount(name)
		require.True(t, ok, name)
		*f = AmountOf(1)
	}
	assert.True(t, e.CarryOverToNextMonth.Valid)
	assert.Len(t, LedgerFieldNames, 22)

	_, ok := e.Amount("no_such_field")
	assert.False(t, ok)
}

func TestLedgerEntryTotal(t *testing.T) {
	e := LedgerEntry{EndingBalance: AmountOf(120.5)}
	assert.True(t, e.TotalAmountDueForInvoice().Equal(decimal.NewFromFloat(120.5)))

	e.NewChargesThisMonth = AmountOf(400)
	assert.True(t, e.TotalAmountDueForInvoice().Equal(decimal.NewFromFloat(520.5)))

	assert.True(t, (&LedgerEntry{}).TotalAmountDueForInvoice().IsZero())
	assert.True(t, OrZero(NoAmount).IsZero())
}

func TestPropertyRecordValidate(t *testing.T) {
	assert.NoError(t, PropertyRecord{PropertyCode: "MHP"}.Validate())
	err := PropertyRecord{}.Validate()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
