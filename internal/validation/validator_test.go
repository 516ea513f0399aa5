package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reading struct {
	Previous int `validate:"gte=0"`
	Current  int `validate:"gte=0,gtefield=Previous"`
}

func TestStructReportsFieldRules(t *testing.T) {
	assert.Nil(t, Struct(reading{Previous: 10, Current: 10}))

	errs := Struct(reading{Previous: 10, Current: 4})
	require.Len(t, errs, 1)
	assert.Equal(t, "Current", errs[0].Field)
	assert.Equal(t, "gtefield", errs[0].Rule)
	assert.Equal(t, "4", errs[0].Value)
	assert.Contains(t, errs[0].Message, "cannot be less than Previous")

	errs = Struct(reading{Previous: -1, Current: 0})
	require.Len(t, errs, 1)
	assert.Equal(t, "gte", errs[0].Rule)
}

func TestValidationResultCounts(t *testing.T) {
	var r ValidationResult
	r.Add(NewError("Current", "gtefield", "bad reading").AtRow(5, "Lot 3"))
	r.Add(NewWarning("", "unmatched", "no water row"))
	r.Add(nil)

	assert.False(t, r.IsValid())
	assert.Equal(t, 1, r.ErrorCount)
	assert.Equal(t, 1, r.WarningCount)
	assert.Len(t, r.Warnings(), 1)
	assert.Equal(t, "[ERROR] row 5 (Lot 3) field 'Current': bad reading", r.Errors[0].Error())
}

func TestFormatErrors(t *testing.T) {
	assert.Equal(t, "No validation errors.", FormatErrors(nil))
	out := FormatErrors([]*ValidationError{NewError("F", "r", "m")})
	assert.Contains(t, out, "1 issue(s)")
	assert.Contains(t, out, "1. [ERROR] field 'F': m")
}
