package review

import (
	"errors"
	"fmt"
)

// FatalError marks failures that abort the whole run: missing
// configuration and the initial metadata/diff fetch. Everything else
// (a failed chunk, a rejected comment) is logged and skipped.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps a formatted error as fatal.
func Fatal(format string, args ...any) error {
	return &FatalError{Err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err carries a FatalError anywhere in its
// chain.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
