package cli

import (
	"errors"
	"fmt"

	kferrors "github.com/kbukum/kindflow/errors"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The stream failed while running
	ExitCommandError = 2 // Bad flags, configuration or graph declaration
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps err to a process exit code. Configuration and lookup errors
// are command errors; everything else is a failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if kferrors.IsConfiguration(err) ||
		kferrors.HasCode(err, kferrors.ErrCodeNotFound) ||
		kferrors.HasCode(err, kferrors.ErrCodeInvalidInput) {
		return ExitCommandError
	}
	return ExitFailure
}
