package cli

import (
	"errors"
	"fmt"
)

// UsageError is a problem with the command line itself: bad flag
// combinations, unknown component keys, unsupported output formats. No
// resources have been touched when one is returned.
type UsageError struct {
	Err error
}

// NewUsageError formats a UsageError.
func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsageError reports whether err is or wraps a UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// ExitError ends the command with a specific exit code. Its message has
// already been shown to the user, so it is not printed again.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Msg
}
