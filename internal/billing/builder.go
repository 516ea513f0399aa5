package billing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tenant-invoicer/internal/config"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// Line-item texts printed on the invoice.
const (
	descLateFee         = "Late fee"
	descPrevOverdue     = "Previous overdue (credit)"
	descOtherRent       = "Other rent(s)*"
	detailOtherRent     = "* Please contact to find out the details"
	monthYearLayout     = "January 2006"
	monthLayout         = "January"
	previousMonthOffset = -28
)

// invoiceBuilder assembles one InvoiceFieldRecord step by step. Each step
// sets a disjoint group of fields; build mirrors the duplicate section and
// validates the whole record.
type invoiceBuilder struct {
	run   config.Run
	entry *models.LedgerEntry
	lot   int
	rec   models.InvoiceFieldRecord
}

func newInvoiceBuilder(run config.Run, lot int, entry *models.LedgerEntry) *invoiceBuilder {
	return &invoiceBuilder{run: run, entry: entry, lot: lot}
}

// business fills the issuing entity.
func (b *invoiceBuilder) business() *invoiceBuilder {
	biz := b.run.Business
	b.rec.BusinessName = biz.Name
	b.rec.BusinessAddress1 = biz.Address1
	b.rec.BusinessAddress2 = biz.Address2
	b.rec.BusinessContactPhone = biz.Phone
	b.rec.BusinessContactEmail = biz.Email
	return b
}

// tenant fills the addressee block and the customer id.
func (b *invoiceBuilder) tenant() *invoiceBuilder {
	prop := b.run.Property
	b.rec.TenantName = b.entry.TenantName
	b.rec.TenantAddress1 = strings.TrimSpace(strconv.Itoa(b.lot) + " " + prop.StreetAddress)
	b.rec.TenantAddress2 = prop.CityStateZip
	b.rec.InvoiceCustomerID = prop.PropertyCode + strconv.Itoa(b.lot)
	return b
}

// dates sets the invoice date (today) and the due date (statement date).
func (b *invoiceBuilder) dates() *invoiceBuilder {
	b.rec.InvoiceDate = b.run.Today
	b.rec.InvoiceDueDate = b.run.StatementDate
	return b
}

// totals sets the amount due: ending balance plus new charges.
func (b *invoiceBuilder) totals() *invoiceBuilder {
	total := b.entry.TotalAmountDueForInvoice()
	b.rec.InvoiceTotalAmountDue = total
	b.rec.AmtTotalAmountDue = decimal.NewNullDecimal(total)
	return b
}

// payments fills the "bill paid" and "less paid" lines of last month.
func (b *invoiceBuilder) payments() *invoiceBuilder {
	e := b.entry
	paid := PaidLastMonth(e)
	lastMonth := b.run.StatementDate.AddDays(previousMonthOffset)

	b.rec.AmtPrevMonthPaid = decimal.NewNullDecimal(paid)
	if e.PaidOnTimeLastMonth.Valid || e.PaidPastDueLastMonth.Valid {
		b.rec.DescPrevMonthPaid = lo.ToPtr("Bill paid for " + lastMonth.Format(monthYearLayout))
		b.rec.DateToday1 = lo.ToPtr(b.run.Today)
	}

	b.rec.AmtPrevMonthResidual = decimal.NewNullDecimal(ResidualLastMonth(e))
	b.rec.DescPrevMonthResidual = lo.ToPtr(lastMonth.Format(monthLayout) + " bill, less paid")
	b.rec.DateToday2 = lo.ToPtr(b.run.Today)
	return b
}

// overdue fills the carried balance line.
func (b *invoiceBuilder) overdue() *invoiceBuilder {
	amt := Overdue(b.entry)
	b.rec.AmtOverdue = decimal.NewNullDecimal(amt)
	if !amt.IsZero() {
		b.rec.DescPrevOverdue = lo.ToPtr(descPrevOverdue)
	}
	return b
}

// charges fills late fee, rent, storage and other rent. Each line appears
// only when its ledger cell holds an amount.
func (b *invoiceBuilder) charges() *invoiceBuilder {
	e := b.entry
	statement := b.run.StatementDate
	month := statement.Format(monthYearLayout)

	b.rec.AmtLateFee = e.LateFeeAccruedLastMonth
	if e.LateFeeAccruedLastMonth.Valid {
		b.rec.DescLateFee = lo.ToPtr(descLateFee)
		b.rec.DateLate = lo.ToPtr(statement)
	}

	b.rec.AmtRent = e.MonthlyRent
	if e.MonthlyRent.Valid {
		b.rec.DescCurrRent = lo.ToPtr("Lot rent for " + month)
		b.rec.DateRent = lo.ToPtr(statement)
	}

	b.rec.AmtStorage = e.MonthlyStorage
	if e.MonthlyStorage.Valid {
		b.rec.DescCurrStorage = lo.ToPtr("Storage rent for " + month)
		b.rec.DateStorage = lo.ToPtr(statement)
	}

	b.rec.AmtOtherRent = e.MonthlyOther
	if e.MonthlyOther.Valid {
		b.rec.DescOtherRent = lo.ToPtr(descOtherRent)
		b.rec.DateOtherRent = lo.ToPtr(statement)
		b.rec.DetailOtherRent = lo.ToPtr(detailOtherRent)
	}
	return b
}

// water fills the water line and the meter block. Without a reading the
// water amount is zero and every other water field stays null.
func (b *invoiceBuilder) water(w *models.WaterUsageRecord) *invoiceBuilder {
	if w == nil {
		b.rec.AmtWater = decimal.NewNullDecimal(decimal.Zero)
		return b
	}

	charge := decimal.NewNullDecimal(models.OrZero(b.entry.MonthlyWater))
	b.rec.AmtWater = charge
	b.rec.WaterBillPeriod = charge
	b.rec.DescCurrWater = lo.ToPtr(fmt.Sprintf("Water bill for %s-%s",
		w.PreviousDate.Format(monthLayout), w.CurrentDate.Format(monthYearLayout)))
	b.rec.DateWater = lo.ToPtr(b.run.StatementDate)
	b.rec.WaterMeterID = lo.ToPtr(w.MeterID)
	b.rec.WaterPrevDate = lo.ToPtr(w.PreviousDate)
	b.rec.WaterCurrDate = lo.ToPtr(w.CurrentDate)
	b.rec.WaterPrevRead = lo.ToPtr(w.PreviousReading)
	b.rec.WaterCurrRead = lo.ToPtr(w.CurrentReading)
	b.rec.WaterUsagePeriod = lo.ToPtr(w.Usage())
	return b
}

// build mirrors the primary section into the remittance section and
// validates the record.
func (b *invoiceBuilder) build() (*models.InvoiceFieldRecord, error) {
	r := b.rec
	r.BusinessNameDup = strings.ToUpper(r.BusinessName)
	r.BusinessAddress1Dup = r.BusinessAddress1
	r.BusinessAddress2Dup = r.BusinessAddress2
	r.BusinessContactEmailDup = b.run.Business.PaymentInstruction + r.BusinessContactEmail
	r.InvoiceDateDup = r.InvoiceDate
	r.InvoiceCustomerIDDup = r.InvoiceCustomerID
	r.InvoiceDueDateDup = r.InvoiceDueDate
	r.InvoiceTotalAmountDueDup = r.InvoiceTotalAmountDue

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// =============================================================================
// DERIVED AMOUNTS
// =============================================================================

// PaidLastMonth is the on-time plus past-due payments of last month.
func PaidLastMonth(e *models.LedgerEntry) decimal.Decimal {
	return models.OrZero(e.PaidOnTimeLastMonth).Add(models.OrZero(e.PaidPastDueLastMonth))
}

// ResidualLastMonth is what remained unpaid of last month's bill, floored
// at zero.
func ResidualLastMonth(e *models.LedgerEntry) decimal.Decimal {
	return decimal.Max(decimal.Zero, models.OrZero(e.MonthlyDueLastMonth).Sub(PaidLastMonth(e)))
}

// Overdue is the starting balance, net of a negative carry-over (a credit).
func Overdue(e *models.LedgerEntry) decimal.Decimal {
	start := models.OrZero(e.StartingBalance)
	carry := models.OrZero(e.TotalCarriedOverLastMonth)
	if carry.IsNegative() {
		return start.Add(carry)
	}
	return start
}
