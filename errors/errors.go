package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// Configuration creates an error for an invalid plugin or graph declaration.
// These are raised before any chunk flows and abort graph construction.
func Configuration(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Unimplemented creates an error for a hook that a concrete plugin must provide.
func Unimplemented(hook, owner string) *AppError {
	return &AppError{
		Code:    ErrCodeUnimplemented,
		Message: fmt.Sprintf("%s must be implemented by %s", hook, owner),
		Details: map[string]any{"hook": hook, "owner": owner},
	}
}

// NotRegistered creates an error for an output no registered plugin provides.
func NotRegistered(provides string) *AppError {
	return &AppError{
		Code:    ErrCodeNotRegistered,
		Message: fmt.Sprintf("no plugin registered that provides %s", provides),
		Details: map[string]any{"provides": provides},
	}
}

// NotFound creates an error for a name that is missing from a lookup.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q not found", resource, id),
		Details: details,
	}
}

// AlreadyExists creates an error for a name registered twice.
func AlreadyExists(resource, id string) *AppError {
	return &AppError{
		Code: ErrCodeAlreadyExists, Message: fmt.Sprintf("%s %q already exists", resource, id),
		Details: map[string]any{"resource": resource, "id": id},
	}
}

// InvalidInput creates an error for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an error for failed struct validation.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// MissingField creates an error for a field absent from a schema or record.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("missing field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// Misaligned creates an error for inputs that violate row correspondence.
func Misaligned(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeMisaligned, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		Cause: cause,
	}
}

// Unavailable creates a retryable error for a collaborator that cannot accept work.
func Unavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeUnavailable, Message: fmt.Sprintf("%s is unavailable", service),
		Retryable: true, Details: map[string]any{"service": service},
	}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return HasCode(err, ErrCodeConfiguration) }

// IsUnimplemented reports whether err is an unimplemented-hook error.
func IsUnimplemented(err error) bool { return HasCode(err, ErrCodeUnimplemented) }

// Join formats a list of names for error messages.
func Join(names []string) string {
	return "[" + strings.Join(names, ", ") + "]"
}
