package errors

import (
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrCodeSessionNotFound   = "SESSION_NOT_FOUND"
	ErrCodeSessionNotActive  = "SESSION_NOT_ACTIVE"
	ErrCodeMissingSessionPin = "MISSING_SESSION_PIN"
	ErrCodeStaleSubmission   = "STALE_SUBMISSION"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeGameUnavailable   = "GAME_UNAVAILABLE"
	ErrCodeAlreadyStarted    = "ALREADY_STARTED"
	ErrCodeNoActiveQuestion  = "NO_ACTIVE_QUESTION"
	ErrCodePlayerNotFound    = "PLAYER_NOT_FOUND"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "SESSION_NOT_FOUND")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code, so the
// sentinels below match any error built by the constructors.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrSessionNotFound   = &AppError{Code: ErrCodeSessionNotFound, Status: http.StatusNotFound}
	ErrSessionNotActive  = &AppError{Code: ErrCodeSessionNotActive, Status: http.StatusConflict}
	ErrMissingSessionPin = &AppError{Code: ErrCodeMissingSessionPin, Status: http.StatusBadRequest}
	ErrStaleSubmission   = &AppError{Code: ErrCodeStaleSubmission, Status: http.StatusConflict}
	ErrInvalidTransition = &AppError{Code: ErrCodeInvalidTransition, Status: http.StatusConflict}
	ErrGameUnavailable   = &AppError{Code: ErrCodeGameUnavailable, Status: http.StatusServiceUnavailable}
	ErrAlreadyStarted    = &AppError{Code: ErrCodeAlreadyStarted, Status: http.StatusConflict}
	ErrNoActiveQuestion  = &AppError{Code: ErrCodeNoActiveQuestion, Status: http.StatusConflict}
	ErrPlayerNotFound    = &AppError{Code: ErrCodePlayerNotFound, Status: http.StatusNotFound}
	ErrNotFound          = &AppError{Code: ErrCodeNotFound, Status: http.StatusNotFound}
	ErrValidation        = &AppError{Code: ErrCodeValidation, Status: http.StatusBadRequest}
	ErrUnauthorized      = &AppError{Code: ErrCodeUnauthorized, Status: http.StatusUnauthorized}
)

// NewSessionNotFoundError creates a new SESSION_NOT_FOUND error
func NewSessionNotFoundError(pin string) *AppError {
	return &AppError{
		Code:    ErrCodeSessionNotFound,
		Message: fmt.Sprintf("game not found: %s", pin),
		Status:  http.StatusNotFound,
	}
}

// NewSessionNotActiveError creates a new SESSION_NOT_ACTIVE error
func NewSessionNotActiveError(pin string) *AppError {
	return &AppError{
		Code:    ErrCodeSessionNotActive,
		Message: fmt.Sprintf("game %s is not active", pin),
		Status:  http.StatusConflict,
	}
}

// NewMissingSessionPinError creates a new MISSING_SESSION_PIN error
func NewMissingSessionPinError() *AppError {
	return &AppError{
		Code:    ErrCodeMissingSessionPin,
		Message: "session pin is required",
		Status:  http.StatusBadRequest,
	}
}

// NewStaleSubmissionError creates a new STALE_SUBMISSION error
func NewStaleSubmissionError(claimed, current int64) *AppError {
	return &AppError{
		Code:    ErrCodeStaleSubmission,
		Message: fmt.Sprintf("question %d is no longer current (now %d)", claimed, current),
		Status:  http.StatusConflict,
	}
}

// NewInvalidTransitionError creates a new INVALID_TRANSITION error
func NewInvalidTransitionError(from, to string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot move session from %s to %s", from, to),
		Status:  http.StatusConflict,
	}
}

// NewSessionClosedError creates an INVALID_TRANSITION error for edits to a
// finished session
func NewSessionClosedError(sessionID uint) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("session %d is finished", sessionID),
		Status:  http.StatusConflict,
	}
}

// NewGameUnavailableError creates a new GAME_UNAVAILABLE error
func NewGameUnavailableError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeGameUnavailable,
		Message: "game unavailable",
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// NewAlreadyStartedError creates a new ALREADY_STARTED error
func NewAlreadyStartedError(pin string) *AppError {
	return &AppError{
		Code:    ErrCodeAlreadyStarted,
		Message: fmt.Sprintf("game %s already started", pin),
		Status:  http.StatusConflict,
	}
}

// NewNoActiveQuestionError creates a new NO_ACTIVE_QUESTION error
func NewNoActiveQuestionError(pin string) *AppError {
	return &AppError{
		Code:    ErrCodeNoActiveQuestion,
		Message: fmt.Sprintf("game %s has no question in progress", pin),
		Status:  http.StatusConflict,
	}
}

// NewPlayerNotFoundError creates a new PLAYER_NOT_FOUND error
func NewPlayerNotFoundError(playerID uint) *AppError {
	return &AppError{
		Code:    ErrCodePlayerNotFound,
		Message: fmt.Sprintf("player not found: %d", playerID),
		Status:  http.StatusNotFound,
	}
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  http.StatusNotFound,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  http.StatusBadRequest,
	}
}

// NewUnauthorizedError creates a new UNAUTHORIZED error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// As converts any error into an AppError, wrapping unknown errors as
// internal errors.
func As(err error) *AppError {
	for e := err; e != nil; {
		if appErr, ok := e.(*AppError); ok {
			return appErr
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return NewInternalError(err)
}
