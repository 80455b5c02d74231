package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session reconciler
var (
	// Credential errors
	ErrNoCredential    = errors.New("no persisted credential")
	ErrCorruptSnapshot = errors.New("persisted identity snapshot is corrupt")

	// Provider errors
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrNoIDToken           = errors.New("no id token in provider response")
	ErrSignedOut           = errors.New("provider session signed out")

	// Exchange errors
	ErrExchangeRejected = errors.New("token exchange rejected")
	ErrExchangeTimeout  = errors.New("token exchange timed out")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("reconciler already started")
	ErrClosed         = errors.New("reconciler closed")

	// General errors
	ErrInvalidArgument = errors.New("invalid argument")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers importing this package need no alias
func New(text string) error {
	return errors.New(text)
}
