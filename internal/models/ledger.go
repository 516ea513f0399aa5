package models

import (
	"github.com/shopspring/decimal"
)

// Canonical LedgerEntry field names, in the positional order of the ledger
// export. The ingestion schema maps sheet columns onto these names.
const (
	FieldTenantName                = "tenant_name"
	FieldStartingBalance           = "starting_balance"
	FieldMonthlyDueLastMonth       = "monthly_due_last_month"
	FieldPaidOnTimeLastMonth       = "paid_on_time_last_month"
	FieldPaidPastDueLastMonth      = "paid_past_due_last_month"
	FieldLateFeeAccruedLastMonth   = "late_fee_accrued_last_month"
	FieldTotalCarriedOverLastMonth = "total_carried_over_last_month"
	FieldEndingBalance             = "ending_balance"
	FieldMonthlyRent               = "monthly_rent"
	FieldMonthlyStorage            = "monthly_storage"
	FieldMonthlyWater              = "monthly_water"
	FieldMonthlyOther              = "monthly_other"
	FieldNewChargesThisMonth       = "new_charges_this_month"
	FieldPaymentOnTime1            = "payment_on_time_1"
	FieldPaymentOnTime2            = "payment_on_time_2"
	FieldPaymentOnTime3            = "payment_on_time_3"
	FieldPaymentOverdue1           = "payment_overdue_1"
	FieldPaymentOverdue2           = "payment_overdue_2"
	FieldPaymentOverdue3           = "payment_overdue_3"
	FieldPaymentOverdue4           = "payment_overdue_4"
	FieldLateFeeThisMonth          = "late_fee_this_month"
	FieldCarryOverToNextMonth      = "carry_over_to_next_month"
)

// LedgerFieldNames lists the 22 ledger fields in export order.
var LedgerFieldNames = []string{
	FieldTenantName,
	FieldStartingBalance,
	FieldMonthlyDueLastMonth,
	FieldPaidOnTimeLastMonth,
	FieldPaidPastDueLastMonth,
	FieldLateFeeAccruedLastMonth,
	FieldTotalCarriedOverLastMonth,
	FieldEndingBalance,
	FieldMonthlyRent,
	FieldMonthlyStorage,
	FieldMonthlyWater,
	FieldMonthlyOther,
	FieldNewChargesThisMonth,
	FieldPaymentOnTime1,
	FieldPaymentOnTime2,
	FieldPaymentOnTime3,
	FieldPaymentOverdue1,
	FieldPaymentOverdue2,
	FieldPaymentOverdue3,
	FieldPaymentOverdue4,
	FieldLateFeeThisMonth,
	FieldCarryOverToNextMonth,
}

// LedgerEntry is one lot's row from the bookkeeping export.
//
// Ledger sheets routinely leave cells blank, so every amount is a
// decimal.NullDecimal: Valid=false means the cell was empty or not numeric.
// Arithmetic must go through OrZero; line-item applicability checks look at
// Valid directly.
type LedgerEntry struct {
	// LotID is nil when the row label carries no digits.
	LotID     *int   `json:"lot_id"`
	RowLabel  string `json:"row_label"`
	RowNumber int    `json:"row_number"`

	TenantName string `json:"tenant_name"`

	StartingBalance           decimal.NullDecimal `json:"starting_balance"`
	MonthlyDueLastMonth       decimal.NullDecimal `json:"monthly_due_last_month"`
	PaidOnTimeLastMonth       decimal.NullDecimal `json:"paid_on_time_last_month"`
	PaidPastDueLastMonth      decimal.NullDecimal `json:"paid_past_due_last_month"`
	LateFeeAccruedLastMonth   decimal.NullDecimal `json:"late_fee_accrued_last_month"`
	TotalCarriedOverLastMonth decimal.NullDecimal `json:"total_carried_over_last_month"`
	EndingBalance             decimal.NullDecimal `json:"ending_balance"`
	MonthlyRent               decimal.NullDecimal `json:"monthly_rent"`
	MonthlyStorage            decimal.NullDecimal `json:"monthly_storage"`
	MonthlyWater              decimal.NullDecimal `json:"monthly_water"`
	MonthlyOther              decimal.NullDecimal `json:"monthly_other"`
	NewChargesThisMonth       decimal.NullDecimal `json:"new_charges_this_month"`
	PaymentOnTime1            decimal.NullDecimal `json:"payment_on_time_1"`
	PaymentOnTime2            decimal.NullDecimal `json:"payment_on_time_2"`
	PaymentOnTime3            decimal.NullDecimal `json:"payment_on_time_3"`
	PaymentOverdue1           decimal.NullDecimal `json:"payment_overdue_1"`
	PaymentOverdue2           decimal.NullDecimal `json:"payment_overdue_2"`
	PaymentOverdue3           decimal.NullDecimal `json:"payment_overdue_3"`
	PaymentOverdue4           decimal.NullDecimal `json:"payment_overdue_4"`
	LateFeeThisMonth          decimal.NullDecimal `json:"late_fee_this_month"`
	CarryOverToNextMonth      decimal.NullDecimal `json:"carry_over_to_next_month"`
}

// Amount returns a pointer to the named amount field so ingestion can fill
// it by name. ok is false for unknown names and for tenant_name.
func (e *LedgerEntry) Amount(name string) (field *decimal.NullDecimal, ok bool) {
	switch name {
	case FieldStartingBalance:
		return &e.StartingBalance, true
	case FieldMonthlyDueLastMonth:
		return &e.MonthlyDueLastMonth, true
	case FieldPaidOnTimeLastMonth:
		return &e.PaidOnTimeLastMonth, true
	case FieldPaidPastDueLastMonth:
		return &e.PaidPastDueLastMonth, true
	case FieldLateFeeAccruedLastMonth:
		return &e.LateFeeAccruedLastMonth, true
	case FieldTotalCarriedOverLastMonth:
		return &e.TotalCarriedOverLastMonth, true
	case FieldEndingBalance:
		return &e.EndingBalance, true
	case FieldMonthlyRent:
		return &e.MonthlyRent, true
	case FieldMonthlyStorage:
		return &e.MonthlyStorage, true
	case FieldMonthlyWater:
		return &e.MonthlyWater, true
	case FieldMonthlyOther:
		return &e.MonthlyOther, true
	case FieldNewChargesThisMonth:
		return &e.NewChargesThisMonth, true
	case FieldPaymentOnTime1:
		return &e.PaymentOnTime1, true
	case FieldPaymentOnTime2:
		return &e.PaymentOnTime2, true
	case FieldPaymentOnTime3:
		return &e.PaymentOnTime3, true
	case FieldPaymentOverdue1:
		return &e.PaymentOverdue1, true
	case FieldPaymentOverdue2:
		return &e.PaymentOverdue2, true
	case FieldPaymentOverdue3:
		return &e.PaymentOverdue3, true
	case FieldPaymentOverdue4:
		return &e.PaymentOverdue4, true
	case FieldLateFeeThisMonth:
		return &e.LateFeeThisMonth, true
	case FieldCarryOverToNextMonth:
		return &e.CarryOverToNextMonth, true
	}
	return nil, false
}

// TotalAmountDueForInvoice is ending balance plus this month's new charges,
// with missing cells counted as zero.
func (e *LedgerEntry) TotalAmountDueForInvoice() decimal.Decimal {
	return OrZero(e.EndingBalance).Add(OrZero(e.NewChargesThisMonth))
}

// HasLot reports whether the row carried a usable lot number.
func (e *LedgerEntry) HasLot() bool {
	return e.LotID != nil
}

// OrZero returns the value of n, or zero when n is null.
func OrZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

// AmountOf is a convenience constructor for a present NullDecimal.
func AmountOf(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}

// NoAmount is the null NullDecimal.
var NoAmount = decimal.NullDecimal{}
