// =============================================================================
// Tenant Invoicer - Generate Command
// =============================================================================
//
// This file defines the 'generate' command, which runs the whole invoicing
// pipeline for one property and one statement month.
//
// COMMAND USAGE:
//   invoicer generate --property CODE --ledger FILE [--water FILE] [flags]
//
// FLAGS:
//   --property          : Property code from the property table (required)
//   --ledger            : Ledger workbook (required)
//   --water             : Water-meter report (required unless --skip-water)
//   --statement         : Statement month, YYYY-MM (default: next month)
//   --sheet             : Ledger worksheet (default: the last one)
//   --skip-water        : Bill without water readings
//   --continue-on-error : Keep going when one invoice cannot be rendered
//   --export-dir        : Override the configured export directory
//   --template          : Override the configured invoice template
//
// Every flag can also be set as INVOICER_<FLAG>, e.g. INVOICER_PROPERTY=PG.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/tenant-invoicer/internal/config"
	"github.com/ginjaninja78/tenant-invoicer/internal/converter"
	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
)

// =============================================================================
// GENERATE COMMAND DEFINITION
// =============================================================================

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the invoices for a statement month",
	Long: `The generate command reads the ledger and the water-meter report, applies the
billing rules and writes one invoice workbook per lot into a new run directory
under the export directory, together with:

  - all_reports.zip  every invoice workbook
  - manifest.json    files, rejected rows, skipped and failed lots
  - summary.pdf      one line per invoice with the amounts due
  - summary.log      a readable run report

Lots with nothing due get no invoice. Rows that cannot be billed are reported
and skipped. A render failure aborts the run and removes the run directory,
unless --continue-on-error is given.`,

	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	addInputFlags(generateCmd)
	generateCmd.Flags().Bool("continue-on-error", false, "Keep rendering the other lots when one fails")
	generateCmd.Flags().String("export-dir", "", "Directory run directories are created in")
	generateCmd.Flags().String("template", "", "Invoice template workbook")
}

// =============================================================================
// SHARED INPUT FLAGS
// =============================================================================

// addInputFlags registers the flags that select what to bill.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("property", "", "Property code from the property table")
	cmd.Flags().String("ledger", "", "Ledger workbook (.xlsx)")
	cmd.Flags().String("water", "", "Water-meter report (.xlsx)")
	cmd.Flags().String("statement", "", "Statement month YYYY-MM (default: next month)")
	cmd.Flags().String("sheet", "", "Ledger worksheet (default: the last one)")
	cmd.Flags().Bool("skip-water", false, "Bill without water readings")
}

// newConverter resolves the run from the bound flags.
func newConverter(cfg *config.MainConfig) (*converter.Converter, config.Run, error) {
	code := viper.GetString("property")
	if code == "" {
		return nil, config.Run{}, ierr.NewError("no property code").
			WithHint("A property code is required (--property or INVOICER_PROPERTY)").
			Mark(ierr.ErrConfiguration)
	}
	inputs := converter.Inputs{
		LedgerPath: viper.GetString("ledger"),
		WaterPath:  viper.GetString("water"),
	}
	skipWater := viper.GetBool("skip-water")
	if inputs.LedgerPath == "" {
		return nil, config.Run{}, ierr.NewError("no ledger workbook").
			WithHint("A ledger workbook is required (--ledger)").
			Mark(ierr.ErrConfiguration)
	}
	if inputs.WaterPath == "" && !skipWater {
		return nil, config.Run{}, ierr.NewError("no water report").
			WithHint("A water report is required (--water), or pass --skip-water").
			Mark(ierr.ErrConfiguration)
	}

	run, err := converter.NewRun(cfg, code, config.RunOptions{
		Statement: viper.GetString("statement"),
		SheetName: viper.GetString("sheet"),
		SkipWater: skipWater,
	})
	if err != nil {
		return nil, config.Run{}, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, config.Run{}, err
	}
	return converter.New(cfg, run, inputs, log), run, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runGenerate(cmd *cobra.Command) error {
	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if viper.IsSet("continue-on-error") {
		cfg.ContinueOnError = viper.GetBool("continue-on-error")
	}
	if dir := viper.GetString("export-dir"); dir != "" {
		cfg.ExportDir = dir
	}
	if tpl := viper.GetString("template"); tpl != "" {
		cfg.TemplatePath = tpl
	}

	conv, run, err := newConverter(cfg)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: RUN THE PIPELINE
	// =========================================================================

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== Tenant Invoicer: %s, statement %s ===\n",
		run.Property.PropertyCode, run.StatementDate.Format("January 2006"))

	res, err := conv.Run(cmd.Context())
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 3: PRINT SUMMARY
	// =========================================================================

	printSummary(out, res.Batch)
	fmt.Fprintf(out, "\nRun directory:   %s\n", res.RunDir)
	fmt.Fprintf(out, "Invoices:        %d\n", len(res.Files))
	fmt.Fprintf(out, "Amount due:      %s\n", res.Stats.AmountDue.StringFixed(2))
	fmt.Fprintf(out, "Archive:         %s\n", filepath.Base(res.ZipFile))
	fmt.Fprintf(out, "Time elapsed:    %s\n", res.Stats.ProcessingTime)

	if len(res.Failed) > 0 {
		fmt.Fprintln(out, "\nFailed invoices:")
		for _, f := range res.Failed {
			fmt.Fprintf(out, "  ✗ %s (lot %d): %s\n", f.CustomerID, f.Lot, f.Error)
		}
		return ierr.Newf("%d invoice(s) failed", len(res.Failed)).
			WithHintf("%d invoice(s) could not be rendered; see %s", len(res.Failed), res.ManifestFile).
			Mark(ierr.ErrRender)
	}
	return nil
}

// printSummary writes the warning summary of a batch.
func printSummary(out io.Writer, batch *converter.Batch) {
	summary := batch.Summary()
	fmt.Fprintln(out, "\nSummary:")
	for _, line := range summary.Lines() {
		fmt.Fprintf(out, "  %s\n", line)
	}
	if summary.Clean() {
		fmt.Fprintln(out, "  no warnings")
	}
}
