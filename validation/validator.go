package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/kbukum/flowkit/errors"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string { return f.Field + ": " + f.Message }

// Validator accumulates failed checks so a caller can report all of them
// at once. Checks chain:
//
//	err := validation.New().Required("name", name).Min("parallelism", n, 1).Validate()
type Validator struct {
	code   errors.ErrorCode
	failed []FieldError
}

// New returns a Validator reporting INVALID_CONFIG.
func New() *Validator { return NewWithCode(errors.ErrCodeInvalidConfig) }

// NewWithCode returns a Validator reporting code.
func NewWithCode(code errors.ErrorCode) *Validator { return &Validator{code: code} }

// AddError records a failed check.
func (v *Validator) AddError(field, message string) {
	v.failed = append(v.failed, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.failed) > 0 }

func (v *Validator) Errors() []FieldError { return v.failed }

// Validate folds the recorded failures into one AppError, or returns nil.
// Compare the result to nil before returning it as an error.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	parts := make([]string, len(v.failed))
	for i, f := range v.failed {
		parts[i] = f.String()
	}
	return newAppError(v.code, strings.Join(parts, "; "), v.failed)
}

// Required fails on a blank value.
func (v *Validator) Required(field, value string) *Validator {
	return v.Custom(strings.TrimSpace(value) != "", field, "is required")
}

// Min fails when value is below floor.
func (v *Validator) Min(field string, value, floor int) *Validator {
	return v.Custom(value >= floor, field, fmt.Sprintf("must be at least %d", floor))
}

// Unique fails when value is already in seen, and adds it.
func (v *Validator) Unique(field, value string, seen map[string]bool) *Validator {
	v.Custom(!seen[value], field, fmt.Sprintf("duplicate value %q", value))
	seen[value] = true
	return v
}

// Custom fails with message unless ok holds.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

// newAppError maps config failures to 500 and input failures to 400.
func newAppError(code errors.ErrorCode, message string, fields []FieldError) *errors.AppError {
	status := http.StatusBadRequest
	if code == errors.ErrCodeInvalidConfig {
		status = http.StatusInternalServerError
	}
	appErr := errors.New(code, message, status)
	if len(fields) > 0 {
		appErr.WithDetail("fields", fields)
	}
	return appErr
}
