// =============================================================================
// Tenant Invoicer - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration and
// for building the immutable per-run value (see run.go).
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (applyMainConfigDefaults)
//   2. Main config file (config.yaml)
//   3. Environment overrides for the business entity (INVOICER_BUSINESS_*)
//   4. Command-line flags, applied by the cmd package
//
// =============================================================================

package config

import (
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/validation"
)

// EnvPrefix prefixes every environment variable the application reads.
const EnvPrefix = "INVOICER"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// FILE SETTINGS
	// =========================================================================

	// TemplatePath is the invoice template workbook.
	// Default: "./template/invoice_template.xlsx"
	TemplatePath string `yaml:"template_path" validate:"required"`

	// PropertiesFile is the tab-delimited property lookup table.
	// Default: "./template/properties.tsv"
	PropertiesFile string `yaml:"properties_file" validate:"required"`

	// ExportDir is where run directories are created.
	// Default: "./exports"
	ExportDir string `yaml:"export_dir" validate:"required"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile, when set, receives a copy of the console log.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// RunDirFormat names each run directory.
	// Placeholders:
	//   {statement} - Statement month (YYYY-MM)
	//   {property}  - Property code
	//   {timestamp} - Run start (YYYYMMDD_HHMMSS, run zone)
	//   {uuid}      - A random UUID
	//
	// The format must contain {uuid} or {timestamp} so runs never collide.
	// Default: "{statement}_{timestamp}_{uuid}"
	RunDirFormat string `yaml:"run_dir_format"`

	// ZipName is the archive holding every generated invoice.
	// Default: "all_reports.zip"
	ZipName string `yaml:"zip_name"`

	// DisableSummaryPDF skips the run summary document.
	DisableSummaryPDF bool `yaml:"disable_summary_pdf"`

	// MetricsFile, when set, receives run metrics in Prometheus text format.
	MetricsFile string `yaml:"metrics_file"`

	// RetentionDays is the default age limit of the prune command.
	// Default: 90
	RetentionDays int `yaml:"retention_days" validate:"gte=0"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// Timezone is the zone "today" is taken in.
	// Default: "America/New_York"
	Timezone string `yaml:"timezone"`

	// ContinueOnError keeps rendering the remaining lots when one lot fails.
	// Default: false (the run aborts and its directory is removed)
	ContinueOnError bool `yaml:"continue_on_error"`

	// =========================================================================
	// BUSINESS SETTINGS
	// =========================================================================

	// Business is the invoicing entity printed on every invoice.
	Business BusinessEntity `yaml:"business"`

	// Water is the optional meter pricing used to cross-check the ledger.
	Water WaterPricing `yaml:"water"`
}

// BusinessEntity identifies the business issuing the invoices.
type BusinessEntity struct {
	Name     string `yaml:"name"`
	Address1 string `yaml:"address_1"`
	Address2 string `yaml:"address_2"`
	Phone    string `yaml:"phone"`
	Email    string `yaml:"email"`

	// PaymentInstruction prefixes the email in the remittance section.
	// Default: "Or Zelle to "
	PaymentInstruction string `yaml:"payment_instruction"`
}

// WaterPricing prices metered usage: usage * Rate + ServiceFee.
// A zero Rate disables the cross-check.
type WaterPricing struct {
	Rate       float64 `yaml:"rate" validate:"gte=0"`
	ServiceFee float64 `yaml:"service_fee" validate:"gte=0"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// DefaultMainConfig returns the configuration used when no file is given.
func DefaultMainConfig() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	applyEnvOverrides(config, os.LookupEnv)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error marked ErrConfiguration if the file cannot be read, parsed or
//     validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not read config file %s", configPath).
			Mark(ierr.ErrConfiguration)
	}
	return ParseMainConfig(data, os.LookupEnv)
}

// ParseMainConfig decodes, defaults and validates a YAML document. lookupEnv
// supplies the environment overrides (os.LookupEnv in production).
func ParseMainConfig(data []byte, lookupEnv func(string) (string, bool)) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Config file is not valid YAML").
			Mark(ierr.ErrConfiguration)
	}

	applyMainConfigDefaults(&config)
	applyEnvOverrides(&config, lookupEnv)

	if err := validateMainConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.TemplatePath == "" {
		config.TemplatePath = "./template/invoice_template.xlsx"
	}
	if config.PropertiesFile == "" {
		config.PropertiesFile = "./template/properties.tsv"
	}
	if config.ExportDir == "" {
		config.ExportDir = "./exports"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.RunDirFormat == "" {
		config.RunDirFormat = "{statement}_{timestamp}_{uuid}"
	}
	if config.ZipName == "" {
		config.ZipName = "all_reports.zip"
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 90
	}
	if config.Timezone == "" {
		config.Timezone = "America/New_York"
	}
	if config.Business.PaymentInstruction == "" {
		config.Business.PaymentInstruction = "Or Zelle to "
	}
}

// applyEnvOverrides lets the environment replace business entity fields.
func applyEnvOverrides(config *MainConfig, lookupEnv func(string) (string, bool)) {
	if lookupEnv == nil {
		return
	}
	overrides := []struct {
		key    string
		target *string
	}{
		{"BUSINESS_NAME", &config.Business.Name},
		{"BUSINESS_ADDRESS_1", &config.Business.Address1},
		{"BUSINESS_ADDRESS_2", &config.Business.Address2},
		{"BUSINESS_PHONE", &config.Business.Phone},
		{"BUSINESS_EMAIL", &config.Business.Email},
		{"BUSINESS_PAYMENT_INSTRUCTION", &config.Business.PaymentInstruction},
	}
	for _, o := range overrides {
		if v, ok := lookupEnv(EnvPrefix + "_" + o.key); ok {
			*o.target = v
		}
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	var result validation.ValidationResult
	for _, e := range validation.Struct(config) {
		result.Add(e)
	}

	if _, err := time.LoadLocation(config.Timezone); err != nil {
		result.Add(validation.NewError("Timezone", "timezone", "unknown time zone "+config.Timezone))
	}
	if !strings.Contains(config.RunDirFormat, "{uuid}") && !strings.Contains(config.RunDirFormat, "{timestamp}") {
		result.Add(validation.NewError("RunDirFormat", "unique", "run_dir_format must contain {uuid} or {timestamp}"))
	}
	if strings.ContainsAny(config.ZipName, `/\`) {
		result.Add(validation.NewError("ZipName", "filename", "zip_name must be a plain file name"))
	}

	if !result.IsValid() {
		details := validation.FormatErrors(result.Errors)
		return ierr.NewError(details).
			WithHint("Invalid configuration. " + details).
			Mark(ierr.ErrConfiguration)
	}
	return nil
}

// Location returns the configured time zone. It falls back to UTC when the
// zone cannot be loaded, which validateMainConfig already rejects.
func (c *MainConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Retention is RetentionDays as a duration.
func (c *MainConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Validate re-checks the configuration, e.g. after flag overrides.
func (c *MainConfig) Validate() error {
	return validateMainConfig(c)
}
