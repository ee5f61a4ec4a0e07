// Package shared provides domain types used across all domain packages.
package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure the domain can produce.
// The HTTP boundary maps these to status codes; the domain never
// decides the final wire format.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")
)

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden reports whether err is an authorization denial.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
