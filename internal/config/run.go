package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/models"
)

// StatementLayout is the command-line form of a statement month.
const StatementLayout = "2006-01"

// Statement years outside this range are almost certainly typos.
const (
	minStatementYear = 2020
	maxStatementYear = 2100
)

// Run is everything one generation run needs, resolved once up front and
// passed by value through the pipeline.
type Run struct {
	// StatementDate is the first of the billed month; invoices are due then.
	StatementDate models.Date

	// Today is the invoice date: the run's start date in Location.
	Today models.Date

	// StartedAt is the run start in Location.
	StartedAt time.Time
	Location  *time.Location

	Property  models.PropertyRecord
	SheetName string
	SkipWater bool

	Business        BusinessEntity
	WaterRate       decimal.Decimal
	WaterServiceFee decimal.Decimal

	ContinueOnError bool
}

// RunOptions are the per-invocation inputs to NewRun.
type RunOptions struct {
	// Statement is "YYYY-MM" or "YYYY-MM-DD" (normalized to the 1st); empty
	// selects next month.
	Statement string

	SheetName string
	SkipWater bool

	// Now is the run start; zero means time.Now().
	Now time.Time
}

// NewRun resolves a Run from the configuration, the selected property and
// the invocation options.
func NewRun(cfg *MainConfig, property models.PropertyRecord, opts RunOptions) (Run, error) {
	if err := property.Validate(); err != nil {
		return Run{}, ierr.WithError(err).
			WithHint("A property must be selected").
			Mark(ierr.ErrConfiguration)
	}

	loc := cfg.Location()
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(loc)

	statement, err := ParseStatement(opts.Statement, now)
	if err != nil {
		return Run{}, err
	}

	return Run{
		StatementDate:   statement,
		Today:           models.DateOf(now),
		StartedAt:       now,
		Location:        loc,
		Property:        property,
		SheetName:       strings.TrimSpace(opts.SheetName),
		SkipWater:       opts.SkipWater,
		Business:        cfg.Business,
		WaterRate:       decimal.NewFromFloat(cfg.Water.Rate),
		WaterServiceFee: decimal.NewFromFloat(cfg.Water.ServiceFee),
		ContinueOnError: cfg.ContinueOnError,
	}, nil
}

// ParseStatement parses a statement month. An empty value selects the month
// after now. Any day given is normalized to the 1st.
func ParseStatement(value string, now time.Time) (models.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		next := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
		return models.FirstOfMonth(next.Year(), next.Month()), nil
	}

	var t time.Time
	var err error
	if len(value) == len(StatementLayout) {
		t, err = time.Parse(StatementLayout, value)
	} else {
		t, err = time.Parse(models.DateLayout, value)
	}
	if err != nil {
		return models.Date{}, ierr.WithError(err).
			WithHintf("Statement %q must look like 2024-06", value).
			Mark(ierr.ErrConfiguration)
	}
	if t.Year() < minStatementYear || t.Year() > maxStatementYear {
		return models.Date{}, ierr.Newf("statement year %d out of range", t.Year()).
			WithHintf("Statement year must be between %d and %d", minStatementYear, maxStatementYear).
			Mark(ierr.ErrConfiguration)
	}
	return models.FirstOfMonth(t.Year(), t.Month()), nil
}

// PricingEnabled reports whether a water rate is configured.
func (r Run) PricingEnabled() bool {
	return r.WaterRate.IsPositive()
}

// StatementMonth is the statement date as "YYYY-MM".
func (r Run) StatementMonth() string {
	return r.StatementDate.Format(StatementLayout)
}
