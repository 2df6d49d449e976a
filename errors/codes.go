package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Graph construction errors (fatal, never retried)
const (
	// ErrCodeConfiguration indicates an invalid plugin or graph declaration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeUnimplemented indicates a required hook was not provided.
	ErrCodeUnimplemented ErrorCode = "UNIMPLEMENTED"
	// ErrCodeNotRegistered indicates no plugin produces a requested output.
	ErrCodeNotRegistered ErrorCode = "NOT_REGISTERED"
	// ErrCodeNotFound indicates a name is missing from the registry.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates a name is registered twice.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
)

// Data errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeMisaligned indicates chunks that should correspond row by row do not.
	ErrCodeMisaligned ErrorCode = "MISALIGNED"
)

// Runtime errors
const (
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeTimeout indicates an operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeUnavailable indicates a collaborator (e.g. worker pool) is unavailable.
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:     true,
	ErrCodeUnavailable: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
