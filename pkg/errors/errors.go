package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every BusinessError unwraps to exactly one of these.
var (
	ErrValidation     = errors.New("validation failed")
	ErrRateResolution = errors.New("no usable interest rate")
	ErrStateConflict  = errors.New("state conflict")
	ErrNotFound       = errors.New("not found")
	ErrDatabase       = errors.New("database operation failed")
)

// Error codes
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeRateResolution = "RATE_RESOLUTION_FAILURE"
	CodeStateConflict  = "STATE_CONFLICT"
	CodeNotFound       = "NOT_FOUND"
	CodeDatabase       = "DATABASE_ERROR"
)

// BusinessError represents a domain error surfaced to callers
type BusinessError struct {
	Code    string
	Message string
	// State is the current state of the entity for conflict errors, so the
	// caller can refresh without an extra read.
	State string
	Err   error
}

func (e *BusinessError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%s: %s (current state: %s)", e.Code, e.Message, e.State)
	}
	if e.Err != nil && !isKind(e.Err) {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the kind sentinel even when Err wraps a cause.
func (e *BusinessError) Is(target error) bool {
	return kindOf(e.Code) == target
}

// Validation creates a new validation error
func Validation(format string, args ...any) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf(format, args...),
		Err:     ErrValidation,
	}
}

// RateResolution creates a rate resolution failure
func RateResolution(format string, args ...any) *BusinessError {
	return &BusinessError{
		Code:    CodeRateResolution,
		Message: fmt.Sprintf(format, args...),
		Err:     ErrRateResolution,
	}
}

// StateConflict creates a state conflict error carrying the current state
func StateConflict(state, format string, args ...any) *BusinessError {
	return &BusinessError{
		Code:    CodeStateConflict,
		Message: fmt.Sprintf(format, args...),
		State:   state,
		Err:     ErrStateConflict,
	}
}

// NotFound creates a not found error for the given entity
func NotFound(entity string, id any) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", entity, id),
		Err:     ErrNotFound,
	}
}

// Database wraps a persistence failure
func Database(err error) *BusinessError {
	return &BusinessError{
		Code:    CodeDatabase,
		Message: "database operation failed",
		Err:     err,
	}
}

// CurrentState returns the state carried by a conflict error, if any
func CurrentState(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.State
	}
	return ""
}

func kindOf(code string) error {
	switch code {
	case CodeValidation:
		return ErrValidation
	case CodeRateResolution:
		return ErrRateResolution
	case CodeStateConflict:
		return ErrStateConflict
	case CodeNotFound:
		return ErrNotFound
	case CodeDatabase:
		return ErrDatabase
	}
	return nil
}

func isKind(err error) bool {
	switch err {
	case ErrValidation, ErrRateResolution, ErrStateConflict, ErrNotFound, ErrDatabase:
		return true
	}
	return false
}
