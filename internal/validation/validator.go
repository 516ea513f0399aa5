// =============================================================================
// Tenant Invoicer - Validation Engine
// =============================================================================
//
// This module turns invariant checks into collected, reportable errors.
//
// VALIDATION STRATEGY:
//   Validation happens at two levels:
//   1. Record-level: struct tags on the record models (go-playground/validator)
//      plus hand-written whole-record rules (see models.InvoiceFieldRecord).
//   2. Row-level: ingestion wraps record failures with the sheet row and the
//      row label so the user can find the offending line.
//
// ERROR HANDLING:
//   - Errors are collected, not thrown immediately
//   - Each error carries the field, the value, the rule and the row
//   - Errors are "error" (the row is rejected) or "warning" (reported only)
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity"`

	// Field is the record field that failed, when known.
	Field string `json:"field,omitempty"`

	// Value is the offending value rendered as text.
	Value string `json:"value,omitempty"`

	// Rule is the validation rule that was violated (e.g. "gtefield").
	Rule string `json:"rule,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// RowLabel is the label in the first column of the source row.
	RowLabel string `json:"row_label,omitempty"`

	// RowNumber is the 1-based sheet row (0 when not row-bound).
	RowNumber int `json:"row_number,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("[" + strings.ToUpper(e.Severity) + "]")
	if e.RowNumber > 0 {
		fmt.Fprintf(&b, " row %d", e.RowNumber)
	}
	if e.RowLabel != "" {
		fmt.Fprintf(&b, " (%s)", e.RowLabel)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field '%s'", e.Field)
	}
	b.WriteString(": " + e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

// AtRow returns a copy of e bound to a sheet row.
func (e *ValidationError) AtRow(rowNumber int, label string) *ValidationError {
	c := *e
	c.RowNumber = rowNumber
	c.RowLabel = label
	return &c
}

// NewError builds an error-severity ValidationError.
func NewError(field, rule, message string) *ValidationError {
	return &ValidationError{Severity: SeverityError, Field: field, Rule: rule, Message: message}
}

// NewWarning builds a warning-severity ValidationError.
func NewWarning(field, rule, message string) *ValidationError {
	return &ValidationError{Severity: SeverityWarning, Field: field, Rule: rule, Message: message}
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult accumulates errors and warnings across many records.
type ValidationResult struct {
	Errors       []*ValidationError `json:"errors"`
	ErrorCount   int                `json:"error_count"`
	WarningCount int                `json:"warning_count"`
}

// Add records one ValidationError.
func (r *ValidationResult) Add(err *ValidationError) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err)
	if err.Severity == SeverityWarning {
		r.WarningCount++
	} else {
		r.ErrorCount++
	}
}

// IsValid is true when no error-severity entries were recorded.
func (r *ValidationResult) IsValid() bool {
	return r.ErrorCount == 0
}

// Warnings returns only the warning-severity entries.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// STRUCT VALIDATION
// =============================================================================

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Struct runs the struct-tag rules of v and converts every failure into an
// error-severity ValidationError. It returns nil when v is valid.
func Struct(v any) []*ValidationError {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []*ValidationError{NewError("", "invalid", err.Error())}
	}

	out := make([]*ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, &ValidationError{
			Severity: SeverityError,
			Field:    fe.Field(),
			Value:    fmt.Sprint(fe.Value()),
			Rule:     fe.Tag(),
			Message:  describe(fe),
		})
	}
	return out
}

// describe renders a field error as a sentence.
func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s %v cannot be less than %s", fe.Field(), fe.Value(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the '%s' rule", fe.Field(), fe.Tag())
	}
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d issue(s):\n\n", len(errors)))
	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}
