package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorKind classifies a failure for transport mapping and for the sync
// engine's per-operation outcome conversion.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "VALIDATION"
	ErrorKindNotFound   ErrorKind = "NOT_FOUND"
	ErrorKindPermission ErrorKind = "PERMISSION"
	ErrorKindConflict   ErrorKind = "CONFLICT"
)

// AppError is the typed error returned by the lifecycle managers.
// Direct API calls propagate it unchanged; the sync engine flattens it
// into a FAILED operation outcome carrying Message.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrorKindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewPermissionError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrorKindPermission, Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) *AppError {
	return &AppError{Kind: ErrorKindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the ErrorKind of err, or "" when err carries no kind.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ""
}

func IsValidationError(err error) bool { return KindOf(err) == ErrorKindValidation }
func IsNotFoundError(err error) bool   { return KindOf(err) == ErrorKindNotFound }
func IsPermissionError(err error) bool { return KindOf(err) == ErrorKindPermission }
func IsConflictError(err error) bool   { return KindOf(err) == ErrorKindConflict }
