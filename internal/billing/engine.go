// =============================================================================
// Tenant Invoicer - Billing Rule Engine
// =============================================================================
//
// This module joins each ledger entry with its water reading and derives the
// invoice for the lot.
//
// PER-LOT RULES:
//   1. A lot whose total due (ending balance + new charges) is zero gets no
//      invoice.
//   2. A row without a lot number cannot be addressed and is skipped.
//   3. A lot seen twice in the ledger is billed once.
//   4. Everything else produces exactly one invoice.
//
// WARNINGS (reported, never fatal):
//   - skipped rows, duplicate lots
//   - ledger lots without a water reading, readings without a ledger lot
//   - a ledger water charge that differs from the metered price, when a
//     water rate is configured
//
// =============================================================================

package billing

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tenant-invoicer/internal/config"
	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/logger"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
	"github.com/ginjaninja78/tenant-invoicer/internal/validation"
)

// Warning rules.
const (
	RuleNoLot          = "no_lot"
	RuleDuplicateLot   = "duplicate_lot"
	RuleNoWater        = "no_water_reading"
	RuleOrphanWater    = "no_ledger_row"
	RuleWaterMismatch  = "water_charge_mismatch"
	RuleInvalidInvoice = "invalid_invoice"
)

// WaterSource supplies the water readings keyed by lot.
type WaterSource interface {
	Lookup(lot int) (*models.WaterUsageRecord, bool)
	LotNumbers() []int
}

// Invoice is one billed lot.
type Invoice struct {
	Lot    int
	Entry  *models.LedgerEntry
	Water  *models.WaterUsageRecord
	Record *models.InvoiceFieldRecord
}

// Result is the outcome of billing a ledger.
type Result struct {
	// Invoices are in ledger order.
	Invoices []*Invoice

	// Suppressed lists the lots with nothing due.
	Suppressed []int

	// Issues collects every per-row problem found while billing.
	Issues validation.ValidationResult
}

// Engine applies the billing rules for one run.
type Engine struct {
	run config.Run
	log *logger.Logger
}

// NewEngine creates an engine for run.
func NewEngine(run config.Run, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{run: run, log: log}
}

// Bill produces the invoices for entries. water may be nil, in which case
// every lot is billed without a water line and no water warnings are raised.
// The context is checked between lots.
func (e *Engine) Bill(ctx context.Context, entries []*models.LedgerEntry, water WaterSource) (*Result, error) {
	result := &Result{}
	billed := make(map[int]bool, len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Billing was interrupted").
				Mark(ierr.ErrSystem)
		}

		if entry.TotalAmountDueForInvoice().IsZero() {
			if entry.HasLot() {
				result.Suppressed = append(result.Suppressed, *entry.LotID)
			}
			e.log.Debugw("nothing due, no invoice", "row", entry.RowNumber, "label", entry.RowLabel)
			continue
		}

		if !entry.HasLot() {
			result.Issues.Add(validation.NewWarning("", RuleNoLot, "row label has no lot number").
				AtRow(entry.RowNumber, entry.RowLabel))
			continue
		}

		lot := *entry.LotID
		if billed[lot] {
			result.Issues.Add(validation.NewError("", RuleDuplicateLot,
				fmt.Sprintf("lot %d already billed from an earlier row", lot)).
				AtRow(entry.RowNumber, entry.RowLabel))
			continue
		}
		billed[lot] = true

		var reading *models.WaterUsageRecord
		if water != nil {
			if w, ok := water.Lookup(lot); ok {
				reading = w
			} else {
				result.Issues.Add(validation.NewWarning("", RuleNoWater,
					fmt.Sprintf("lot %d has no water reading; billed without water", lot)).
					AtRow(entry.RowNumber, entry.RowLabel))
			}
		}

		if reading != nil && e.run.PricingEnabled() {
			result.Issues.Add(e.checkWaterCharge(entry, reading))
		}

		rec, err := e.BuildInvoice(lot, entry, reading)
		if err != nil {
			result.Issues.Add(validation.NewError("", RuleInvalidInvoice, ierr.UserMessage(err)).
				AtRow(entry.RowNumber, entry.RowLabel))
			e.log.Errorw("invoice failed validation", "lot", lot, "error", err)
			continue
		}

		result.Invoices = append(result.Invoices, &Invoice{
			Lot:    lot,
			Entry:  entry,
			Water:  reading,
			Record: rec,
		})
	}

	if water != nil {
		orphans := lo.Filter(water.LotNumbers(), func(lot int, _ int) bool {
			return !billed[lot] && !lo.Contains(result.Suppressed, lot)
		})
		for _, lot := range orphans {
			result.Issues.Add(validation.NewWarning("", RuleOrphanWater,
				fmt.Sprintf("water reading for lot %d has no ledger row", lot)))
		}
	}

	e.log.Infow("billing complete",
		"invoices", len(result.Invoices),
		"suppressed", len(result.Suppressed),
		"errors", result.Issues.ErrorCount,
		"warnings", result.Issues.WarningCount,
	)
	return result, nil
}

// BuildInvoice derives the invoice for one lot. water may be nil.
func (e *Engine) BuildInvoice(lot int, entry *models.LedgerEntry, water *models.WaterUsageRecord) (*models.InvoiceFieldRecord, error) {
	return newInvoiceBuilder(e.run, lot, entry).
		business().
		tenant().
		dates().
		totals().
		payments().
		overdue().
		charges().
		water(water).
		build()
}

// checkWaterCharge compares the ledger water charge with the metered price.
func (e *Engine) checkWaterCharge(entry *models.LedgerEntry, w *models.WaterUsageRecord) *validation.ValidationError {
	expected := w.BillAmount(e.run.WaterRate, e.run.WaterServiceFee)
	charged := models.OrZero(entry.MonthlyWater).Round(2)
	if charged.Equal(expected) {
		return nil
	}

	e.log.Warnw("ledger water charge differs from metered price",
		"lot", *entry.LotID,
		"charged", charged.StringFixed(2),
		"metered", expected.StringFixed(2),
		"usage", w.Usage(),
	)
	msg := fmt.Sprintf("ledger charges %s but %d units price at %s",
		charged.StringFixed(2), w.Usage(), expected.StringFixed(2))
	return &validation.ValidationError{
		Severity:  validation.SeverityWarning,
		Field:     models.FieldMonthlyWater,
		Value:     charged.StringFixed(2),
		Rule:      RuleWaterMismatch,
		Message:   msg,
		RowLabel:  entry.RowLabel,
		RowNumber: entry.RowNumber,
	}
}

// Total is the sum of the amounts due over invoices.
func Total(invoices []*Invoice) decimal.Decimal {
	return lo.Reduce(invoices, func(acc decimal.Decimal, inv *Invoice, _ int) decimal.Decimal {
		return acc.Add(inv.Record.InvoiceTotalAmountDue)
	}, decimal.Zero)
}
