package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a domain error for callers and transport adapters.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeValidation   ErrorCode = "VALIDATION"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// DomainError is the error type returned by aggregates and application services.
type DomainError struct {
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFoundError reports that the referenced entity does not exist.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s with id %s not found", entity, id)}
}

// NewValidationError reports malformed input or a violated business rule.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Code: ErrCodeValidation, Message: msg}
}

// NewInvalidStateError reports a transition that the state machine does not allow.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{Code: ErrCodeInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewForbiddenError reports an actor that is not allowed to perform the operation.
func NewForbiddenError(msg string) *DomainError {
	return &DomainError{Code: ErrCodeForbidden, Message: msg}
}

// NewConflictError reports a lost race against a concurrent writer.
func NewConflictError(msg string) *DomainError {
	return &DomainError{Code: ErrCodeConflict, Message: msg}
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(msg string) *DomainError {
	return &DomainError{Code: ErrCodeUnauthorized, Message: msg}
}

// CodeOf returns the code of the first DomainError in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsNotFound reports whether err is a not-found domain error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsValidation reports whether err is a validation error. Invalid state transitions count as
// validation failures.
func IsValidation(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeValidation || code == ErrCodeInvalidState
}

// IsForbidden reports whether err is a forbidden domain error.
func IsForbidden(err error) bool { return CodeOf(err) == ErrCodeForbidden }

// IsConflict reports whether err is a conflict domain error.
func IsConflict(err error) bool { return CodeOf(err) == ErrCodeConflict }

// IsDomainError reports whether err carries any domain error.
func IsDomainError(err error) bool { return CodeOf(err) != "" }
