// Package apperr defines the error kinds surfaced to users.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a lookup that found no row. Callers treat it as
	// "not yet created" rather than a failure.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an access the caller is not allowed to make.
	ErrForbidden = errors.New("forbidden")
)

// AuthError is a credential or account problem the user can fix by retrying.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Auth returns a new AuthError
func Auth(format string, args ...any) error {
	return &AuthError{Message: fmt.Sprintf(format, args...)}
}

// ValidationError is malformed or incomplete input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation returns a new ValidationError
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RemoteError is a network or HTTP failure talking to Google.
type RemoteError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote responded %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// PersistenceError is a failed repository write or read.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Persistence wraps err as a PersistenceError
func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// IsNotFound reports whether err is a not-found signal
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden reports whether err is an access denial
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsAuth reports whether err is an AuthError
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRemote reports whether err is a RemoteError
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsPersistence reports whether err is a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
