package models

import (
	ierr "github.com/ginjaninja78/tenant-invoicer/internal/errors"
	"github.com/ginjaninja78/tenant-invoicer/internal/validation"
)

// PropertyRecord identifies the property a run invoices. It is static
// reference data loaded from the property table.
type PropertyRecord struct {
	PropertyCode  string `json:"property_code" yaml:"property_code" validate:"required"`
	StreetAddress string `json:"street_address" yaml:"street_address"`
	CityStateZip  string `json:"city_state_zip" yaml:"city_state_zip"`
}

// Validate checks the record has a property code.
func (p PropertyRecord) Validate() error {
	if errs := validation.Struct(p); len(errs) > 0 {
		return ierr.WithError(errs[0]).
			WithHint("Property code is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
