package errors

import "fmt"

// ErrorCode represents a jot error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrConflict          ErrorCode = "CONFLICT"           // 409 (concurrent modification detected)
	ErrValidationFailure ErrorCode = "VALIDATION_FAILURE" // 422 (classification payload missing required fields)
	ErrTerminalFailure   ErrorCode = "TERMINAL_FAILURE"   // 502 (retry budget exhausted, surfaced to user)
	ErrTransientNetwork  ErrorCode = "TRANSIENT_NETWORK"  // 503 (retryable, drives outbox backoff)
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// JotError represents a structured error with code, status, and details.
type JotError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *JotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *JotError {
	return &JotError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing capture or derived row.
func NewNotFound(kind, id string) *JotError {
	return &JotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewConflict creates a 409 error for detected concurrent modification.
// Callers that hit this must retry the whole step sequence, never apply
// a partial one.
func NewConflict(msg string) *JotError {
	return &JotError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewValidationFailure creates a 422 error for a classification payload
// missing required type-specific fields.
func NewValidationFailure(msg string) *JotError {
	return &JotError{
		Code:    ErrValidationFailure,
		Status:  422,
		Message: msg,
	}
}

// NewTransientNetwork creates a 503 error for a retryable remote failure.
func NewTransientNetwork(err error) *JotError {
	msg := "transient network failure"
	if err != nil {
		msg = err.Error()
	}
	return &JotError{
		Code:    ErrTransientNetwork,
		Status:  503,
		Message: msg,
	}
}

// NewTerminalFailure creates a 502 error for an action whose retry
// budget is exhausted. Surfaced to the user, never silently dropped.
func NewTerminalFailure(action string, attempts int) *JotError {
	return &JotError{
		Code:    ErrTerminalFailure,
		Status:  502,
		Message: fmt.Sprintf("action %s failed after %d attempts", action, attempts),
		Details: map[string]any{"action": action, "attempts": attempts},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *JotError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &JotError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a JotError with the given code.
func Is(err error, code ErrorCode) bool {
	if jErr, ok := err.(*JotError); ok {
		return jErr.Code == code
	}
	return false
}
