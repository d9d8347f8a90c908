// Package services defines the business logic for flights and airports.
// This file centralizes the service-level error taxonomy so that service
// methods return a closed set of failure kinds and callers can check them
// with errors.Is / errors.As.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer. Any error outside this set is a storage or
// infrastructure failure and is returned as-is.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-flight-info-backend/internal/validation"
)

var (
	// ErrValidation marks a structurally invalid command. The concrete
	// value is a *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrBusinessRule marks a well-formed command that breaks a domain rule
	// (time ordering, unknown airport). The concrete value is a
	// *BusinessRuleError.
	ErrBusinessRule = errors.New("business rule violated")

	// ErrFlightNotFound indicates that the targeted flight does not exist.
	ErrFlightNotFound = errors.New("flight not found")

	// ErrVersionConflict indicates that the supplied version token no longer
	// matches the stored one.
	ErrVersionConflict = errors.New("flight was modified by another request")
)

// ValidationError carries every rule violation found in a command.
type ValidationError struct {
	Summary    string
	Violations validation.Errors
}

func (e *ValidationError) Error() string {
	if e.Summary != "" {
		return e.Summary
	}
	return fmt.Sprintf("%s: %s", ErrValidation, e.Violations.Error())
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Messages lists the violation messages, or the summary alone when there are
// none.
func (e *ValidationError) Messages() []string {
	if len(e.Violations) == 0 && e.Summary != "" {
		return []string{e.Summary}
	}
	return e.Violations.Messages()
}

// BusinessRuleError describes which domain rule a command broke.
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string { return e.Message }

// Is lets errors.Is(err, ErrBusinessRule) match.
func (e *BusinessRuleError) Is(target error) bool { return target == ErrBusinessRule }

// newValidationError wraps a registry result. A nil or foreign error is
// returned unchanged.
func newValidationError(summary string, err error) error {
	var v validation.Errors
	if !errors.As(err, &v) {
		return err
	}
	return &ValidationError{Summary: summary, Violations: v}
}

func businessRule(format string, args ...any) error {
	return &BusinessRuleError{Message: fmt.Sprintf(format, args...)}
}
