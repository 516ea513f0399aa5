// =============================================================================
// Tenant Invoicer - Properties Command
// =============================================================================
//
// This file defines the 'properties' command, which lists the property
// lookup table so the operator can pick a --property code.
//
// =============================================================================

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/tenant-invoicer/internal/property"
)

var propertiesCmd = &cobra.Command{
	Use:     "properties",
	Short:   "List the known property codes",
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		table, err := property.Load(cfg.PropertiesFile)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tSTREET\tCITY/STATE/ZIP")
		for _, p := range table.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.PropertyCode, p.StreetAddress, p.CityStateZip)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(propertiesCmd)
}
