// =============================================================================
// Tenant Invoicer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// (generate, validate, properties, prune, version) is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (invoicer)
//   ├── generateCmd   (invoicer generate)
//   ├── validateCmd   (invoicer validate)
//   ├── propertiesCmd (invoicer properties)
//   ├── pruneCmd      (invoicer prune)
//   └── versionCmd    (invoicer version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading .env and binding INVOICER_* environment variables
//   3. Loading config.yaml and building the logger
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ginjaninja78/tenant-invoicer/internal/config"
	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// defaultConfigFile is used when --config is not given. A missing default
// file means "run on built-in defaults"; a missing explicit file is an error.
const defaultConfigFile = "config.yaml"

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Tenant Invoicer - Monthly invoices from a ledger and a water report",
	Long: `Tenant Invoicer turns a monthly bookkeeping ledger and a water-meter report
into one invoice workbook per tenant lot, plus a zip of every invoice, a JSON
manifest, a summary PDF and optional metrics.

Example Usage:
  invoicer generate --property PG --ledger ledger.xlsx --water water.xlsx
  invoicer generate --property PG --ledger ledger.xlsx --skip-water --statement 2024-06
  invoicer validate --property PG --ledger ledger.xlsx --water water.xlsx
  invoicer properties
  invoicer prune --older-than 2160h`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main(). Interrupts cancel the
// command context so a run stops between lots.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", ierr.UserMessage(err))
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================

	rootCmd.PersistentFlags().String(
		"config",
		defaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolP(
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	cobra.OnInitialize(initConfig)
}

// initConfig loads .env and wires INVOICER_* variables into viper. Flags are
// bound per command in bindFlags.
func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// bindFlags binds the flags of the running command (and the persistent root
// flags) to viper, so that each key resolves flag > INVOICER_* env > default.
// Binding at run time keeps commands that share a flag name independent.
func bindFlags(cmd *cobra.Command, _ []string) error {
	var bindErr error
	bind := func(f *pflag.Flag) {
		if err := viper.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = err
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	return bindErr
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig reads the configuration file named by --config. When the
// default file does not exist the built-in defaults are used.
func loadConfig() (*config.MainConfig, error) {
	path := viper.GetString("config")
	if path == "" {
		path = defaultConfigFile
	}

	var cfg *config.MainConfig
	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultConfigFile {
		cfg = config.DefaultMainConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else {
		loaded, err := config.LoadMainConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if viper.GetBool("verbose") {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger builds the run logger from the configuration.
func newLogger(cfg *config.MainConfig) (*logger.Logger, error) {
	var extra []string
	if cfg.LogFile != "" {
		extra = append(extra, cfg.LogFile)
	}
	log, err := logger.NewLogger(cfg.LogLevel, extra...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not open log output %s", cfg.LogFile).
			Mark(ierr.ErrConfiguration)
	}
	return log, nil
}
