package cmd

import (
	"errors"
	"fmt"

	"github.com/3leaps/nimbusfs/pkg/output"
)

// Process exit codes, following sysexits(3) where one fits.
const (
	ExitSuccess            = 0
	ExitFailure            = 1
	ExitInvalidArgument    = 64
	ExitDataError          = 65
	ExitNotFound           = 66
	ExitServiceUnavailable = 69
	ExitInternal           = 70
	ExitAlreadyExists      = 73
	ExitIOError            = 74
	ExitTempFailure        = 75
	ExitPermissionDenied   = 77
	ExitConfigError        = 78
	ExitSignalInt          = 130
)

// ExitError carries the exit code a command failure should produce.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// fsError wraps a filesystem failure with the exit code of its kind.
func fsError(message string, err error) error {
	return exitError(exitCodeFor(err), message, err)
}

// exitCodeFor maps an error onto an exit code through its output code.
func exitCodeFor(err error) int {
	switch output.CodeOf(err) {
	case output.ErrCodeInvalidPath, output.ErrCodeInvalidArgument:
		return ExitInvalidArgument
	case output.ErrCodeNotFound:
		return ExitNotFound
	case output.ErrCodeExists:
		return ExitAlreadyExists
	case output.ErrCodeNotDirectory, output.ErrCodeIsDirectory, output.ErrCodeNotEmpty:
		return ExitDataError
	case output.ErrCodePartialRename, output.ErrCodePartialDelete, output.ErrCodeThrottled, output.ErrCodeTimeout:
		return ExitTempFailure
	case output.ErrCodeAccessDenied:
		return ExitPermissionDenied
	case output.ErrCodeStoreUnavailable:
		return ExitServiceUnavailable
	case output.ErrCodeUnsupported:
		return ExitDataError
	case output.ErrCodeCanceled:
		return ExitSignalInt
	default:
		return ExitIOError
	}
}

// ExitCode returns the process exit code for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}
