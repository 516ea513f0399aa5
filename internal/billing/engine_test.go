package billing

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tenant-invoicer/internal/config"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

func testRun() config.Run {
	return config.Run{
		StatementDate: models.NewDate(2024, time.June, 1),
		Today:         models.NewDate(2024, time.May, 20),
		Location:      time.UTC,
		Property: models.PropertyRecord{
			PropertyCode:  "PG",
			StreetAddress: "Pine Grove Rd",
			CityStateZip:  "Springfield, IL 62701",
		},
		Business: config.BusinessEntity{
			Name:               "Pine Grove MHP",
			Address1:           "1 Office Way",
			Address2:           "Springfield, IL 62701",
			Phone:              "555-0100",
			Email:              "office@pinegrove.test",
			PaymentInstruction: "Or Zelle to ",
		},
	}
}

type waterMap map[int]*models.WaterUsageRecord

func (m waterMap) Lookup(lot int) (*models.WaterUsageRecord, bool) {
	w, ok := m[lot]
	return w, ok
}

func (m waterMap) LotNumbers() []int {
	out := make([]int, 0, len(m))
	for lot := range m {
		out = append(out, lot)
	}
	return out
}

func reading(t *testing.T, meter, prev, curr int) *models.WaterUsageRecord {
	t.Helper()
	w, err := models.NewWaterUsageRecord(models.WaterUsageInput{
		MeterID:         meter,
		PreviousDate:    models.NewDate(2024, time.April, 30),
		CurrentDate:     models.NewDate(2024, time.May, 31),
		PreviousReading: prev,
		CurrentReading:  curr,
		StatementDate:   models.NewDate(2024, time.June, 1),
	})
	require.NoError(t, err)
	return w
}

func lot(n int) *int { return &n }

func amt(v float64) decimal.NullDecimal { return models.AmountOf(v) }

func entry(n int) *models.LedgerEntry {
	return &models.LedgerEntry{
		LotID:         lot(n),
		RowLabel:      "Lot " + strconv.Itoa(n),
		RowNumber:     3 + n,
		TenantName:    "Tenant",
		EndingBalance: amt(100),
	}
}

func build(t *testing.T, e *models.LedgerEntry, w *models.WaterUsageRecord) *models.InvoiceFieldRecord {
	t.Helper()
	rec, err := NewEngine(testRun(), nil).BuildInvoice(*e.LotID, e, w)
	require.NoError(t, err)
	return rec
}

func assertAmount(t *testing.T, want float64, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(decimal.NewFromFloat(want)), "want %v, got %s", want, got.Decimal)
}

func TestTotalIsEndingPlusNewCharges(t *testing.T) {
	e := entry(1)
	e.EndingBalance = amt(120.5)
	e.NewChargesThisMonth = amt(400)
	rec := build(t, e, nil)

	assert.True(t, rec.InvoiceTotalAmountDue.Equal(decimal.NewFromFloat(520.5)))
	assertAmount(t, 520.5, rec.AmtTotalAmountDue)
	assert.True(t, rec.InvoiceTotalAmountDueDup.Equal(rec.InvoiceTotalAmountDue))
}

func TestOverdueNetting(t *testing.T) {
	tests := []struct {
		name      string
		start     float64
		carry     float64
		want      float64
		described bool
	}{
		{"credit nets", 200, -50, 150, true},
		{"positive carry ignored", 200, 50, 200, true},
		{"credit wipes balance", 50, -50, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry(1)
			e.StartingBalance = amt(tt.start)
			e.TotalCarriedOverLastMonth = amt(tt.carry)
			rec := build(t, e, nil)

			assertAmount(t, tt.want, rec.AmtOverdue)
			if tt.described {
				require.NotNil(t, rec.DescPrevOverdue)
				assert.Equal(t, "Previous overdue (credit)", *rec.DescPrevOverdue)
			} else {
				assert.Nil(t, rec.DescPrevOverdue)
			}
		})
	}
}

func TestResidualFloor(t *testing.T) {
	e := entry(1)
	e.MonthlyDueLastMonth = amt(100)
	e.PaidOnTimeLastMonth = amt(40)
	e.PaidPastDueLastMonth = amt(30)
	rec := build(t, e, nil)
	assertAmount(t, 70, rec.AmtPrevMonthPaid)
	assertAmount(t, 30, rec.AmtPrevMonthResidual)

	e.PaidPastDueLastMonth = amt(110)
	rec = build(t, e, nil)
	assertAmount(t, 0, rec.AmtPrevMonthResidual)
}

func TestPaymentLines(t *testing.T) {
	e := entry(1)
	e.PaidOnTimeLastMonth = amt(400)
	rec := build(t, e, nil)

	require.NotNil(t, rec.DescPrevMonthPaid)
	assert.Equal(t, "Bill paid for May 2024", *rec.DescPrevMonthPaid)
	require.NotNil(t, rec.DateToday1)
	assert.Equal(t, "2024-05-20", rec.DateToday1.String())

	require.NotNil(t, rec.DescPrevMonthResidual)
	assert.Equal(t, "May bill, less paid", *rec.DescPrevMonthResidual)
	require.NotNil(t, rec.DateToday2)

	rec = build(t, entry(2), nil)
	assert.Nil(t, rec.DescPrevMonthPaid)
	assert.Nil(t, rec.DateToday1)
}

func TestChargeLinesFollowLedgerCells(t *testing.T) {
	e := entry(1)
	e.MonthlyRent = amt(400)
	e.MonthlyOther = amt(25)
	e.LateFeeAccruedLastMonth = amt(0)
	rec := build(t, e, nil)

	require.NotNil(t, rec.DescCurrRent)
	assert.Equal(t, "Lot rent for June 2024", *rec.DescCurrRent)
	assert.Equal(t, "2024-06-01", rec.DateRent.String())
	assertAmount(t, 400, rec.AmtRent)

	require.NotNil(t, rec.DescOtherRent)
	assert.Equal(t, "Other rent(s)*", *rec.DescOtherRent)
	require.NotNil(t, rec.DetailOtherRent)
	assert.Equal(t, "* Please contact to find out the details", *rec.DetailOtherRent)

	require.NotNil(t, rec.DescLateFee)
	assert.Equal(t, "Late fee", *rec.DescLateFee)
	assertAmount(t, 0, rec.AmtLateFee)

	assert.Nil(t, rec.DescCurrStorage)
	assert.Nil(t, rec.DateStorage)
	assert.False(t, rec.AmtStorage.Valid)
}

func TestWaterLine(t *testing.T) {
	e := entry(12)
	e.MonthlyWater = amt(35.5)
	rec := build(t, e, reading(t, 42, 1200, 1450))

	require.NotNil(t, rec.DescCurrWater)
	assert.Equal(t, "Water bill for April-May 2024", *rec.DescCurrWater)
	assert.Equal(t, "2024-06-01", rec.DateWater.String())
	assertAmount(t, 35.5, rec.AmtWater)
	assertAmount(t, 35.5, rec.WaterBillPeriod)
	assert.Equal(t, 42, *rec.WaterMeterID)
	assert.Equal(t, 1200, *rec.WaterPrevRead)
	assert.Equal(t, 1450, *rec.WaterCurrRead)
	assert.Equal(t, 250, *rec.WaterUsagePeriod)
	assert.Equal(t, "2024-04-30", rec.WaterPrevDate.String())
	assert.Equal(t, "2024-05-31", rec.WaterCurrDate.String())
}

func TestNoWaterReading(t *testing.T) {
	e := entry(12)
	e.MonthlyWater = amt(35.5)
	rec := build(t, e, nil)

	assertAmount(t, 0, rec.AmtWater)
	assert.Nil(t, rec.DescCurrWater)
	assert.Nil(t, rec.DateWater)
	assert.Nil(t, rec.WaterMeterID)
	assert.Nil(t, rec.WaterPrevRead)
	assert.Nil(t, rec.WaterCurrRead)
	assert.Nil(t, rec.WaterUsagePeriod)
	assert.Nil(t, rec.WaterPrevDate)
	assert.Nil(t, rec.WaterCurrDate)
	assert.False(t, rec.WaterBillPeriod.Valid)
}

func TestIdentityAndDuplicateSection(t *testing.T) {
	e := entry(12)
	e.TenantName = "Jane Doe"
	rec := build(t, e, nil)

	assert.Equal(t, "PG12", rec.InvoiceCustomerID)
	assert.Equal(t, "PG12", rec.InvoiceCustomerIDDup)
	assert.Equal(t, "Jane Doe", rec.TenantName)
	assert.Equal(t, "12 Pine Grove Rd", rec.TenantAddress1)
	assert.Equal(t, "Springfield, IL 62701", rec.TenantAddress2)

	assert.Equal(t, "Pine Grove MHP", rec.BusinessName)
	assert.Equal(t, "PINE GROVE MHP", rec.BusinessNameDup)
	assert.Equal(t, "Or Zelle to office@pinegrove.test", rec.BusinessContactEmailDup)
	assert.Equal(t, "1 Office Way", rec.BusinessAddress1Dup)

	assert.Equal(t, "2024-05-20", rec.InvoiceDate.String())
	assert.Equal(t, "2024-05-20", rec.InvoiceDateDup.String())
	assert.Equal(t, "2024-06-01", rec.InvoiceDueDate.String())
	assert.Equal(t, "2024-06-01", rec.InvoiceDueDateDup.String())
}

func TestBillRules(t *testing.T) {
	zero := entry(3)
	zero.EndingBalance = models.NoAmount

	noLot := entry(9)
	noLot.LotID = nil
	noLot.RowLabel = "Office"

	dup := entry(1)
	dup.RowNumber = 40

	water := waterMap{
		1:  reading(t, 11, 10, 20),
		3:  reading(t, 13, 10, 20),
		77: reading(t, 77, 10, 20),
	}

	res, err := NewEngine(testRun(), nil).Bill(context.Background(),
		[]*models.LedgerEntry{entry(1), entry(2), zero, noLot, dup}, water)
	require.NoError(t, err)

	require.Len(t, res.Invoices, 2)
	assert.Equal(t, 1, res.Invoices[0].Lot)
	assert.NotNil(t, res.Invoices[0].Water)
	assert.Equal(t, 2, res.Invoices[1].Lot)
	assert.Nil(t, res.Invoices[1].Water)
	assert.Equal(t, []int{3}, res.Suppressed)
	assert.True(t, Total(res.Invoices).Equal(decimal.NewFromInt(200)))

	rules := map[string]int{}
	for _, issue := range res.Issues.Errors {
		rules[issue.Rule]++
	}
	assert.Equal(t, map[string]int{
		RuleNoWater:      1,
		RuleNoLot:        1,
		RuleDuplicateLot: 1,
		RuleOrphanWater:  1,
	}, rules)
	assert.Equal(t, 1, res.Issues.ErrorCount)
}

func TestBillWithoutWaterSource(t *testing.T) {
	res, err := NewEngine(testRun(), nil).Bill(context.Background(), []*models.LedgerEntry{entry(1)}, nil)
	require.NoError(t, err)
	require.Len(t, res.Invoices, 1)
	assert.Empty(t, res.Issues.Errors)
}

func TestWaterChargeMismatch(t *testing.T) {
	run := testRun()
	run.WaterRate = decimal.RequireFromString("0.1")
	run.WaterServiceFee = decimal.NewFromInt(10)

	matching := entry(1)
	matching.MonthlyWater = amt(11)
	off := entry(2)
	off.MonthlyWater = amt(35)

	water := waterMap{1: reading(t, 11, 10, 20), 2: reading(t, 12, 10, 20)}
	res, err := NewEngine(run, nil).Bill(context.Background(), []*models.LedgerEntry{matching, off}, water)
	require.NoError(t, err)

	require.Len(t, res.Invoices, 2)
	require.Len(t, res.Issues.Errors, 1)
	issue := res.Issues.Errors[0]
	assert.Equal(t, RuleWaterMismatch, issue.Rule)
	assert.Equal(t, "Lot 2", issue.RowLabel)
	assert.Contains(t, issue.Message, "35.00")
	assert.Contains(t, issue.Message, "11.00")
}

func TestBillStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEngine(testRun(), nil).Bill(ctx, []*models.LedgerEntry{entry(1)}, nil)
	assert.Error(t, err)
}
