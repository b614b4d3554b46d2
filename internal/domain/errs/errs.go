// Package errs holds the error taxonomy shared by every core operation.
// Domain packages wrap these sentinels so callers can branch with errors.Is.
package errs

import (
	"errors"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrDuplicateIdentity = errors.New("duplicate identity")
	ErrNotFound          = errors.New("not found")
	ErrDeliveryFailure   = errors.New("delivery failed")
	ErrTransaction       = errors.New("transaction failed")
	ErrInvalidScale      = errors.New("invalid scale")
)

// FieldError is used to indicate an error with a specific input field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries per-field details for bad input.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(flds ...FieldError) error {
	return &ValidationError{Fields: flds}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
