package cli

import (
	"errors"
	"fmt"

	"github.com/danielstefank/goodwill-alert/pkg/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a search or command failed
	ExitCommandError = 2 // bad arguments, unreadable database
	ExitConfigError  = 3 // missing credentials or invalid config
)

// ExitError carries the exit code for an error.
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

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps err with an exit code. Config errors always get
// ExitConfigError.
func WrapExitError(code int, message string, err error) *ExitError {
	if errors.Is(err, model.ErrConfig) {
		code = ExitConfigError
	}
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
