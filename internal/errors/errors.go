package errors

import (
	"context"
	"errors"
	"fmt"
)

// Common error types for the session and realtime layers
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCallback           = errors.New("federated login callback failed")
	ErrLoginInProgress    = errors.New("login already in progress")
	ErrLoginCancelled     = errors.New("login cancelled")

	// Session errors
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNoSession       = errors.New("no active session")
	ErrNoRefreshToken  = errors.New("no refresh token")
	ErrMissingAuthCode = errors.New("authorization code not found")

	// Realtime errors
	ErrTransport      = errors.New("realtime transport error")
	ErrMalformedEvent = errors.New("malformed event")

	// Storage errors
	ErrNotFound = errors.New("not found")
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

// Join combines errors, used when a cause must stay inspectable next to a
// sentinel (e.g. ErrCallback plus the collaborator's *APIError).
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// IsContextDone reports whether err comes from a cancelled or expired
// context rather than from the remote side.
func IsContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
