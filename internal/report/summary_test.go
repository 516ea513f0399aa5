package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/tenant-invoicer/internal/billing"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

func invoice(lot int, tenant string, rent, water, total float64) *billing.Invoice {
	return &billing.Invoice{
		Lot: lot,
		Record: &models.InvoiceFieldRecord{
			TenantName:            tenant,
			AmtRent:               models.AmountOf(rent),
			AmtWater:              models.AmountOf(water),
			InvoiceTotalAmountDue: decimal.NewFromFloat(total),
		},
	}
}

func testSummary() Summary {
	return Summary{
		PropertyCode:  "PG",
		StatementDate: models.NewDate(2024, time.June, 1),
		GeneratedAt:   time.Date(2024, time.May, 20, 9, 0, 0, 0, time.UTC),
		Invoices: []*billing.Invoice{
			invoice(1, "Ann Lee", 400, 35.5, 435.5),
			invoice(2, "Bo Diaz", 425, 0, 500),
		},
		Suppressed: []int{3},
	}
}

func TestRowsAndTotals(t *testing.T) {
	s := testSummary()
	rows := s.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Lot)
	assert.Equal(t, "Ann Lee", rows[0].Tenant)
	assert.True(t, rows[1].Storage.IsZero())

	totals := s.Totals()
	assert.Equal(t, "825.00", totals.Rent.StringFixed(2))
	assert.Equal(t, "35.50", totals.Water.StringFixed(2))
	assert.Equal(t, "935.50", totals.TotalDue.StringFixed(2))
}

func TestRenderProducesPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, testSummary().Render(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteEmptySummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.pdf")
	s := Summary{PropertyCode: "PG", StatementDate: models.NewDate(2024, time.June, 1)}
	require.NoError(t, s.Write(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
