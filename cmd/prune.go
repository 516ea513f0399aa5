// =============================================================================
// Tenant Invoicer - Prune Command
// =============================================================================
//
// This file defines the 'prune' command. Runs never delete earlier output;
// prune removes run directories older than the retention period.
//
// COMMAND USAGE:
//   invoicer prune [--older-than 2160h]
//
// The default age comes from retention_days in config.yaml.
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/pkg/utils"
)

var pruneCmd = &cobra.Command{
	Use:     "prune",
	Short:   "Delete old run directories",
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		maxAge := cfg.Retention()
		if v := viper.GetString("older-than"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return ierr.Newf("invalid duration %q", v).
					WithHintf("--older-than must be a positive duration such as 720h, got %q", v).
					Mark(ierr.ErrConfiguration)
			}
			maxAge = d
		}

		removed, err := utils.CleanOldRuns(cfg.ExportDir, maxAge, time.Now())
		for _, dir := range removed {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", dir)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d run directories older than %s removed\n", len(removed), maxAge)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().String("older-than", "", "Remove run directories older than this (default: retention_days)")
}
