// Package errors adds call-site context to errors and re-exports the
// standard matching helpers so callers need a single import.
package errors

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// New creates a new error with file and line number information.
func New(format string, a ...interface{}) error {
	file, line := caller()
	return fmt.Errorf("[%s:%d] %s", file, line, fmt.Sprintf(format, a...))
}

// Wrapf adds context (including file and line number) to an existing error.
// If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	file, line := caller()
	return fmt.Errorf("[%s:%d] %s: %w", file, line, fmt.Sprintf(format, a...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Plain returns an error without call-site decoration, for sentinels.
func Plain(text string) error { return stderrors.New(text) }

func caller() (string, int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???", 0
	}
	return filepath.Base(file), line
}
