// =============================================================================
// Tenant Invoicer - Validate Command
// =============================================================================
//
// This file defines the 'validate' command: it reads the inputs and applies
// the billing rules exactly like 'generate', but writes nothing. Use it to
// check a ledger and a water report before a real run.
//
// COMMAND USAGE:
//   invoicer validate --property CODE --ledger FILE [--water FILE] [flags]
//
// EXIT STATUS:
//   Non-zero when the inputs cannot be read, or with --strict when any row
//   was rejected, skipped or mismatched.
//
// =============================================================================

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the inputs of a run without writing anything",
	Long: `The validate command reads the ledger and the water-meter report and applies
the billing rules, then prints what a generate run would report: rejected
water rows, skipped ledger rows, lots without water and water charges that do
not match the metered price.`,

	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	addInputFlags(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Fail when any issue is found")
}

func runValidate(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conv, run, err := newConverter(cfg)
	if err != nil {
		return err
	}

	batch, err := conv.Prepare(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== Validation: %s, statement %s ===\n",
		run.Property.PropertyCode, run.StatementDate.Format("January 2006"))
	printSummary(out, batch)

	if issues := batch.Issues(); len(issues) > 0 {
		fmt.Fprintln(out, "\nIssues:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  SOURCE\tSEVERITY\tROW\tLABEL\tMESSAGE")
		for _, issue := range issues {
			row := "-"
			if issue.RowNumber > 0 {
				row = fmt.Sprint(issue.RowNumber)
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", issue.Source, issue.Severity, row, issue.RowLabel, issue.Message)
		}
		w.Flush()
	}

	if viper.GetBool("strict") && !batch.Summary().Clean() {
		return ierr.NewError("validation found issues").
			WithHint("The inputs have issues (see above)").
			Mark(ierr.ErrValidation)
	}
	return nil
}
