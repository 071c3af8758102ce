package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError and surfaced as the envelope's error kind.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeStore             = "STORE_ERROR"
	CodePartialCommit     = "PARTIAL_COMMIT"
	CodeInconsistentState = "INCONSISTENT_STATE"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    CodeConflict,
		Message: message,
	}
}

// NewStoreError wraps an adapter or transport failure.
func NewStoreError(err error) *AppError {
	return &AppError{
		Code:    CodeStore,
		Message: "Store operation failed",
		Err:     err,
	}
}

// NewPartialCommitError reports that the relational commit succeeded and the
// graph commit did not. Nothing is repaired automatically.
func NewPartialCommitError(err error) *AppError {
	return &AppError{
		Code:    CodePartialCommit,
		Message: "Relational store committed but graph store did not",
		Err:     err,
	}
}

func NewInconsistentStateError(message string) *AppError {
	return &AppError{
		Code:    CodeInconsistentState,
		Message: message,
	}
}

// KindOf returns the code of the first AppError in err's chain. Errors that
// never passed through an adapter boundary are reported as store errors.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStore
}

// IsKind reports whether err carries the given code.
func IsKind(err error, code string) bool {
	return err != nil && KindOf(err) == code
}
