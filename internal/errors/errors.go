// =============================================================================
// Tenant Invoicer - Error Taxonomy
// =============================================================================
//
// Every error that crosses a package boundary is marked with one of the
// sentinels below so the CLI can decide whether the run aborts, which message
// the user sees, and which exit path is taken.
//
//   ErrConfiguration : bad config file, missing property, bad flag value
//   ErrNotFound      : lookup misses (worksheet name, property code, template)
//   ErrIngestion     : structural problems in an input workbook
//   ErrValidation    : a record failed its own invariants
//   ErrRender        : filling or saving an output document failed
//
// =============================================================================

package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrConfiguration = new(ErrCodeConfiguration, "configuration error")
	ErrNotFound      = new(ErrCodeNotFound, "resource not found")
	ErrIngestion     = new(ErrCodeIngestion, "ingestion error")
	ErrValidation    = new(ErrCodeValidation, "validation error")
	ErrRender        = new(ErrCodeRender, "render error")
	ErrSystem        = new(ErrCodeSystem, "system error")
)

const (
	ErrCodeConfiguration = "configuration_error"
	ErrCodeNotFound      = "not_found"
	ErrCodeIngestion     = "ingestion_error"
	ErrCodeValidation    = "validation_error"
	ErrCodeRender        = "render_error"
	ErrCodeSystem        = "system_error"
)

// InternalError is a sentinel carrying a machine-readable code.
type InternalError struct {
	Code    string
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is matches on the code so wrapped copies of a sentinel compare equal.
func (e *InternalError) Is(target error) bool {
	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}
	return e.Code == t.Code
}

func new(code, message string) *InternalError {
	return &InternalError{Code: code, Message: message}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsIngestion(err error) bool {
	return errors.Is(err, ErrIngestion)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsRender(err error) bool {
	return errors.Is(err, ErrRender)
}

// UserMessage returns the hints attached to err, falling back to its message.
// Hints are written for the person running the tool, not for logs.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if hints := errors.FlattenHints(err); hints != "" {
		return hints
	}
	return err.Error()
}
