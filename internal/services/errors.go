package services

import (
	"errors"

	apperrors "github.com/SAP-F-2025/attempt-engine/internal/errors"
)

// ===== SESSION ERRORS =====

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionNotActive     = errors.New("session is not active")
	ErrSessionDisposed      = errors.New("session has been disposed")
	ErrNavigationNotAllowed = errors.New("navigation to this page is not allowed")
	ErrFinishNotConfirmed   = errors.New("finishing the attempt was not confirmed")
	ErrAttemptNotAllowed    = errors.New("a new attempt cannot be started")
	ErrAlreadyStarted       = errors.New("session already started")
)

// ===== CUSTOM ERROR TYPES =====

type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// AccessDeniedError carries the reasons the server gave for refusing a new
// attempt.
type AccessDeniedError struct {
	Reasons []string
}

func (e *AccessDeniedError) Error() string {
	if len(e.Reasons) == 0 {
		return ErrAttemptNotAllowed.Error()
	}
	return ErrAttemptNotAllowed.Error() + ": " + e.Reasons[0]
}

func (e *AccessDeniedError) Unwrap() error { return ErrAttemptNotAllowed }

// ===== ERROR HELPERS =====

func IsValidation(err error) bool { return apperrors.IsValidation(err) }
func IsTransport(err error) bool { return apperrors.IsTransport(err) }
func IsConcurrency(err error) bool { return apperrors.IsConcurrency(err) }
func IsContentParse(err error) bool { return apperrors.IsContentParse(err) }

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsConflict checks if error represents a state conflict the caller cannot
// resolve by retrying immediately.
func IsConflict(err error) bool {
	return IsConcurrency(err) ||
		errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrSessionDisposed) ||
		errors.Is(err, ErrAlreadyStarted)
}

// IsRejected reports errors caused by a disallowed user action.
func IsRejected(err error) bool {
	return errors.Is(err, ErrNavigationNotAllowed) ||
		errors.Is(err, ErrFinishNotConfirmed) ||
		errors.Is(err, ErrAttemptNotAllowed)
}
