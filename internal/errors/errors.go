package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodePreconditionNotMet = "PRECONDITION_NOT_MET"
	CodePersistenceError   = "PERSISTENCE_ERROR"
	CodeVersionMismatch    = "VERSION_MISMATCH"
	CodeRunInProgress      = "RUN_IN_PROGRESS"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Common error constructors
func PreconditionNotMet(message string) *AppError {
	return New(CodePreconditionNotMet, message)
}

func PersistenceError(message string) *AppError {
	return New(CodePersistenceError, message)
}

// PersistenceFailed attaches the storage driver's error as the cause.
func PersistenceFailed(message string, cause error) *AppError {
	return &AppError{Code: CodePersistenceError, Message: message, Cause: cause}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func RunInProgress() *AppError {
	return New(CodeRunInProgress, "a test run is already in progress")
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}
