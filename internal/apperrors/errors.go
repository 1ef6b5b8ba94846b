package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound indicates that a requested record does not exist. Lookups
// return this instead of a nil record so callers can distinguish "absent"
// from infrastructure failures with errors.Is.
var ErrNotFound = errors.New("registro no encontrado")

// ErrDuplicate indicates a uniqueness violation (email, product code,
// invoice number).
var ErrDuplicate = errors.New("el registro ya existe")

// ErrValidation is the sentinel matched by every ValidationError.
var ErrValidation = errors.New("datos no válidos")

// ValidationError carries per-field violations. It is raised before any
// write happens; a backend never persists a half-valid record.
type ValidationError struct {
	Violations map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	fields := make([]string, 0, len(e.Violations))
	for f, msg := range e.Violations {
		fields = append(fields, fmt.Sprintf("%s: %s", f, msg))
	}
	sort.Strings(fields)
	return ErrValidation.Error() + " (" + strings.Join(fields, "; ") + ")"
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidation builds a ValidationError from a violations map.
func NewValidation(violations map[string]string) error {
	return &ValidationError{Violations: violations}
}

// Validationf is a convenience for a single-field violation.
func Validationf(field, msg string) error {
	return &ValidationError{Violations: map[string]string{field: msg}}
}

// IsClientError reports whether err maps to a 4xx response, so callers can
// keep infrastructure failures out of the error log noise.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicate)
}
