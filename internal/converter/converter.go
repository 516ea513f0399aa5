// =============================================================================
// Tenant Invoicer - Converter Module
// =============================================================================
//
// This module contains the run pipeline. It turns one ledger workbook and one
// water-meter report into a directory of invoices for a single property.
//
// CONVERSION PIPELINE:
//   1. Read the ledger worksheet
//   2. Read the water-meter report (unless water is skipped)
//   3. Apply the billing rules to every ledger row
//   4. Load the invoice template
//   5. Create a fresh run directory
//   6. Render one workbook per invoice
//   7. Package: zip, manifest, summary PDF, summary log
//   8. Write the metrics textfile (when configured)
//
// Steps 1-4 abort the run before anything is written. A render failure
// aborts the run and removes the run directory, unless ContinueOnError is
// set: then the lot is listed as failed and the run goes on.
//
// =============================================================================

package converter

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/tenant-invoicer/internal/billing"
	"github.com/ginjaninja78/tenant-invoicer/internal/config"
	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/logger"
	"github.com/ginjaninja78/tenant-invoicer/internal/metrics"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
	"github.com/ginjaninja78/tenant-invoicer/internal/property"
	"github.com/ginjaninja78/tenant-invoicer/internal/render"
	"github.com/ginjaninja78/tenant-invoicer/internal/report"
	"github.com/ginjaninja78/tenant-invoicer/internal/validation"
	"github.com/ginjaninja78/tenant-invoicer/internal/xlsxparser"
	"github.com/ginjaninja78/tenant-invoicer/pkg/utils"
)

// Output file names inside a run directory.
const (
	ManifestFile   = "manifest.json"
	SummaryPDFFile = "summary.pdf"
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Inputs are the source workbooks of a run.
type Inputs struct {
	LedgerPath string

	// WaterPath is ignored when the run skips water.
	WaterPath string
}

// Batch is everything read and derived before rendering.
type Batch struct {
	Ledger  *xlsxparser.LedgerResult
	Water   *xlsxparser.WaterReport
	Billing *billing.Result
}

// FailedLot is an invoice that could not be rendered.
type FailedLot struct {
	Lot        int    `json:"lot"`
	CustomerID string `json:"customer_id"`
	Error      string `json:"error"`
}

// Result is the outcome of a complete run.
type Result struct {
	RunDir       string
	Files        []string
	ZipFile      string
	ManifestFile string
	SummaryPDF   string
	SummaryLog   string
	MetricsFile  string

	Failed []FailedLot
	Batch  *Batch
	Stats  ProcessingStats
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	LedgerRows     int
	WaterRows      int
	RejectedRows   int
	Invoices       int
	Suppressed     int
	Failed         int
	Errors         int
	Warnings       int
	AmountDue      decimal.Decimal
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the pipeline for one property and statement month.
type Converter struct {
	cfg    *config.MainConfig
	run    config.Run
	inputs Inputs
	log    *logger.Logger
}

// New creates a Converter.
//
// PARAMETERS:
//   - cfg: The loaded main configuration.
//   - run: The resolved run (see NewRun).
//   - inputs: The ledger and water workbooks.
//   - log: The logger; nil discards output.
func New(cfg *config.MainConfig, run config.Run, inputs Inputs, log *logger.Logger) *Converter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Converter{
		cfg:    cfg,
		run:    run,
		inputs: inputs,
		log:    log.With("property", run.Property.PropertyCode, "statement", run.StatementMonth()),
	}
}

// NewRun loads the property table, selects propertyCode and resolves the run.
//
// RETURNS:
//   - An error marked ErrNotFound when the table or the code is missing.
func NewRun(cfg *config.MainConfig, propertyCode string, opts config.RunOptions) (config.Run, error) {
	table, err := property.Load(cfg.PropertiesFile)
	if err != nil {
		return config.Run{}, err
	}
	prop, err := table.Lookup(propertyCode)
	if err != nil {
		return config.Run{}, err
	}
	return config.NewRun(cfg, prop, opts)
}

// =============================================================================
// PIPELINE
// =============================================================================

// Prepare reads the inputs and applies the billing rules. Nothing is
// written.
func (c *Converter) Prepare(ctx context.Context) (*Batch, error) {
	// =========================================================================
	// STEP 1: READ LEDGER
	// =========================================================================

	ledger, err := xlsxparser.ReadLedger(c.inputs.LedgerPath, c.run.SheetName)
	if err != nil {
		return nil, err
	}
	c.log.Infow("ledger read", "file", ledger.SourceFile, "sheet", ledger.Sheet, "rows", len(ledger.Entries))

	// =========================================================================
	// STEP 2: READ WATER REPORT
	// =========================================================================
	// The engine gets an untyped nil source when water is skipped.

	batch := &Batch{Ledger: ledger}
	var source billing.WaterSource
	if c.run.SkipWater {
		c.log.Infow("water report skipped")
	} else {
		water, err := xlsxparser.ReadWater(c.inputs.WaterPath, c.run.StatementDate, c.run.StartedAt)
		if err != nil {
			return nil, err
		}
		for _, rejected := range water.Rejected {
			c.log.Warnw("water row rejected", "detail", rejected.Error())
		}
		c.log.Infow("water report read",
			"file", water.SourceFile,
			"previous", water.PreviousDate.String(),
			"current", water.CurrentDate.String(),
			"meters", len(water.Lots),
			"rejected", len(water.Rejected),
		)
		batch.Water = water
		source = water
	}

	// =========================================================================
	// STEP 3: APPLY BILLING RULES
	// =========================================================================

	result, err := billing.NewEngine(c.run, c.log).Bill(ctx, ledger.Entries, source)
	if err != nil {
		return nil, err
	}
	for _, issue := range result.Issues.Errors {
		if issue.Severity == validation.SeverityWarning {
			c.log.Warnw("billing warning", "detail", issue.Error())
		} else {
			c.log.Errorw("billing error", "detail", issue.Error())
		}
	}
	batch.Billing = result

	return batch, nil
}

// Run executes the whole pipeline.
//
// RETURNS:
//   - The run result, including per-lot render failures when the run
//     continues on error.
//   - An error if the run was aborted. An aborted run leaves no run
//     directory behind.
func (c *Converter) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	batch, err := c.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 4: LOAD TEMPLATE
	// =========================================================================

	renderer, err := render.NewRenderer(c.cfg.TemplatePath, c.log)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 5: CREATE RUN DIRECTORY
	// =========================================================================

	fm := utils.NewFileManager(c.cfg.ExportDir, c.cfg.RunDirFormat)
	runDir, err := fm.CreateRunDir(c.run.StartedAt, map[string]string{
		"statement": c.run.StatementMonth(),
		"property":  c.run.Property.PropertyCode,
	})
	if err != nil {
		return nil, err
	}
	c.log.Infow("run directory created", "dir", runDir)

	result := &Result{RunDir: runDir, Batch: batch}
	m := metrics.New(c.run.Property.PropertyCode)

	// =========================================================================
	// STEP 6: RENDER INVOICES
	// =========================================================================

	for _, inv := range batch.Billing.Invoices {
		if err := ctx.Err(); err != nil {
			c.abort(runDir)
			return nil, ierr.WithError(err).
				WithHint("The run was interrupted").
				Mark(ierr.ErrSystem)
		}

		path, err := renderer.Render(inv.Record, runDir)
		if err != nil {
			if !c.run.ContinueOnError {
				c.abort(runDir)
				return nil, err
			}
			_ = os.Remove(filepath.Join(runDir, render.FileName(inv.Record)))
			c.log.Errorw("invoice not rendered", "lot", inv.Lot, "error", err)
			result.Failed = append(result.Failed, FailedLot{
				Lot:        inv.Lot,
				CustomerID: inv.Record.InvoiceCustomerID,
				Error:      ierr.UserMessage(err),
			})
			m.FailedTotal.Inc()
			continue
		}
		result.Files = append(result.Files, path)
	}

	// =========================================================================
	// STEP 7: PACKAGE
	// =========================================================================

	if err := c.writePackage(result); err != nil {
		c.abort(runDir)
		return nil, err
	}

	result.Stats = c.stats(batch, result, started)

	// =========================================================================
	// STEP 8: METRICS
	// =========================================================================

	if c.cfg.MetricsFile != "" {
		c.record(m, result, started)
		if err := m.WriteTextfile(c.cfg.MetricsFile); err != nil {
			// Metrics never fail a finished run.
			c.log.Warnw("metrics not written", "file", c.cfg.MetricsFile, "error", err)
		} else {
			result.MetricsFile = c.cfg.MetricsFile
		}
	}

	c.log.Infow("run complete",
		"dir", runDir,
		"invoices", len(result.Files),
		"failed", len(result.Failed),
		"suppressed", result.Stats.Suppressed,
		"duration", result.Stats.ProcessingTime.String(),
	)
	return result, nil
}

// abort removes a partially written run directory.
func (c *Converter) abort(runDir string) {
	if err := os.RemoveAll(runDir); err != nil {
		c.log.Errorw("could not remove run directory", "dir", runDir, "error", err)
		return
	}
	c.log.Warnw("run aborted, run directory removed", "dir", runDir)
}

// writePackage writes the zip, the manifest, the summary PDF and the
// summary log.
func (c *Converter) writePackage(result *Result) error {
	batch := result.Batch

	result.ZipFile = filepath.Join(result.RunDir, c.cfg.ZipName)
	if err := utils.WriteZip(result.ZipFile, result.Files); err != nil {
		return err
	}

	result.ManifestFile = filepath.Join(result.RunDir, ManifestFile)
	if err := utils.WriteJSON(result.ManifestFile, c.manifest(result)); err != nil {
		return err
	}

	if !c.cfg.DisableSummaryPDF {
		rendered := renderedInvoices(batch.Billing.Invoices, result.Failed)
		summary := report.Summary{
			PropertyCode:  c.run.Property.PropertyCode,
			StatementDate: c.run.StatementDate,
			GeneratedAt:   c.run.StartedAt,
			Invoices:      rendered,
			Suppressed:    batch.Billing.Suppressed,
		}
		result.SummaryPDF = filepath.Join(result.RunDir, SummaryPDFFile)
		if err := summary.Write(result.SummaryPDF); err != nil {
			return err
		}
	}

	path, err := utils.WriteSummaryLog(c.summaryLog(result), result.RunDir)
	if err != nil {
		return err
	}
	result.SummaryLog = path
	return nil
}

// renderedInvoices drops the failed lots.
func renderedInvoices(invoices []*billing.Invoice, failed []FailedLot) []*billing.Invoice {
	failedLots := lo.Map(failed, func(f FailedLot, _ int) int { return f.Lot })
	return lo.Filter(invoices, func(inv *billing.Invoice, _ int) bool {
		return !lo.Contains(failedLots, inv.Lot)
	})
}

func (c *Converter) stats(batch *Batch, result *Result, started time.Time) ProcessingStats {
	rendered := renderedInvoices(batch.Billing.Invoices, result.Failed)
	s := ProcessingStats{
		LedgerRows: len(batch.Ledger.Entries),
		Invoices:   len(result.Files),
		Suppressed: len(batch.Billing.Suppressed),
		Failed:     len(result.Failed),
		Errors:     batch.Billing.Issues.ErrorCount,
		Warnings:   batch.Billing.Issues.WarningCount,
		AmountDue:  billing.Total(rendered),
	}
	if batch.Water != nil {
		s.WaterRows = len(batch.Water.Lots)
		s.RejectedRows = len(batch.Water.Rejected)
	}
	s.ProcessingTime = time.Since(started)
	return s
}

func (c *Converter) record(m *metrics.Metrics, result *Result, started time.Time) {
	s := result.Stats
	m.InvoicesTotal.Add(float64(s.Invoices))
	m.SuppressedTotal.Add(float64(s.Suppressed))
	m.RejectedRows.WithLabelValues("water").Add(float64(s.RejectedRows))
	for _, issue := range result.Batch.Billing.Issues.Errors {
		m.IssuesTotal.WithLabelValues(issue.Severity, issue.Rule).Inc()
	}
	m.AmountDue.Set(s.AmountDue.InexactFloat64())
	m.Finish(started, started.Add(s.ProcessingTime))
}

// =============================================================================
// MANIFEST
// =============================================================================

// Manifest is the machine-readable record of a run, written as
// manifest.json.
type Manifest struct {
	Property       models.PropertyRecord         `json:"property"`
	StatementDate  models.Date                   `json:"statement_date"`
	InvoiceDate    models.Date                   `json:"invoice_date"`
	GeneratedAt    time.Time                     `json:"generated_at"`
	LedgerFile     string                        `json:"ledger_file"`
	LedgerSheet    string                        `json:"ledger_sheet"`
	WaterFile      string                        `json:"water_file,omitempty"`
	WaterSkipped   bool                          `json:"water_skipped"`
	Files          []string                      `json:"files"`
	Zip            string                        `json:"zip"`
	TotalAmountDue string                        `json:"total_amount_due"`
	SuppressedLots []int                         `json:"suppressed_lots"`
	RejectedRows   []*validation.ValidationError `json:"rejected_water_rows"`
	SkippedLots    []*validation.ValidationError `json:"skipped_lots"`
	Warnings       []*validation.ValidationError `json:"warnings"`
	FailedLots     []FailedLot                   `json:"failed_lots"`
}

func (c *Converter) manifest(result *Result) Manifest {
	batch := result.Batch
	issues := batch.Billing.Issues.Errors
	m := Manifest{
		Property:       c.run.Property,
		StatementDate:  c.run.StatementDate,
		InvoiceDate:    c.run.Today,
		GeneratedAt:    c.run.StartedAt,
		LedgerFile:     batch.Ledger.SourceFile,
		LedgerSheet:    batch.Ledger.Sheet,
		WaterSkipped:   batch.Water == nil,
		Files:          lo.Map(result.Files, func(p string, _ int) string { return filepath.Base(p) }),
		Zip:            filepath.Base(result.ZipFile),
		TotalAmountDue: billing.Total(renderedInvoices(batch.Billing.Invoices, result.Failed)).StringFixed(2),
		SuppressedLots: lo.Ternary(batch.Billing.Suppressed == nil, []int{}, batch.Billing.Suppressed),
		SkippedLots:    lo.Filter(issues, isSkip),
		Warnings:       lo.Reject(issues, isSkip),
		FailedLots:     lo.Ternary(result.Failed == nil, []FailedLot{}, result.Failed),
		RejectedRows:   []*validation.ValidationError{},
	}
	if batch.Water != nil {
		m.WaterFile = batch.Water.SourceFile
		if batch.Water.Rejected != nil {
			m.RejectedRows = batch.Water.Rejected
		}
	}
	return m
}

// isSkip reports an issue that kept a ledger row from being invoiced.
func isSkip(issue *validation.ValidationError, _ int) bool {
	switch issue.Rule {
	case billing.RuleNoLot, billing.RuleDuplicateLot, billing.RuleInvalidInvoice:
		return true
	}
	return false
}

func (c *Converter) summaryLog(result *Result) utils.RunSummary {
	batch := result.Batch
	s := utils.RunSummary{
		StartTime:     c.run.StartedAt,
		EndTime:       time.Now().In(c.run.Location),
		PropertyCode:  c.run.Property.PropertyCode,
		StatementDate: c.run.StatementDate.String(),
		LedgerFile:    batch.Ledger.SourceFile,
		RunDir:        result.RunDir,
		Invoices:      len(result.Files),
		Suppressed:    len(batch.Billing.Suppressed),
		Files:         result.Files,
		Failed: lo.Map(result.Failed, func(f FailedLot, _ int) string {
			return f.CustomerID + ": " + f.Error
		}),
	}
	if batch.Water != nil {
		s.WaterFile = batch.Water.SourceFile
	}
	for _, issue := range batch.Issues() {
		s.Issues = append(s.Issues, utils.IssueLogEntry{
			Severity:  issue.Severity,
			Source:    issue.Source,
			RowNumber: issue.RowNumber,
			RowLabel:  issue.RowLabel,
			Field:     issue.Field,
			Value:     issue.Value,
			Message:   issue.Message,
		})
	}
	return s
}
