package errors

import (
	"errors"
	"fmt"
)

// Error kinds shared by the services. Callers classify failures with Is.
var (
	// ErrConfiguration means a required endpoint or key is missing. It is fatal at start-up.
	ErrConfiguration = errors.New("configuration error")
	// ErrNetwork covers transport failures talking to a remote backend
	ErrNetwork = errors.New("network error")
	// ErrProtocol covers non-2xx responses, GraphQL errors and undecodable payloads
	ErrProtocol = errors.New("protocol error")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Kind joins a sentinel kind with the underlying cause so that both match errors.Is.
func Kind(kind, cause error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}
