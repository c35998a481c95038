package goShare

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation is an exported constant or variable used by the session engine.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is an exported constant or variable used by the session engine.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials is an exported constant or variable used by the session engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is an exported constant or variable used by the session engine.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountLocked is an exported constant or variable used by the session engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrUnauthorized is an exported constant or variable used by the session engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is an exported constant or variable used by the session engine.
	ErrNotFound = errors.New("not found")
	// ErrOTPInvalid is an exported constant or variable used by the session engine.
	ErrOTPInvalid = errors.New("otp invalid or expired")
	// ErrOTPIncorrect wraps ErrOTPInvalid for a wrong code against a live challenge.
	ErrOTPIncorrect = fmt.Errorf("%w: incorrect otp", ErrOTPInvalid)
	// ErrInternal is an exported constant or variable used by the session engine.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is an exported constant or variable used by the session engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrUserNotFound is returned by a CredentialStore when no row matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned by a CredentialStore when an insert violates
	// the username or email uniqueness constraint.
	ErrDuplicateUser = errors.New("duplicate user")
)

// LockedError reports a login refused because of an active lockout.
// It matches ErrAccountLocked under errors.Is.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return "account locked until " + e.Until.UTC().Format(time.RFC3339)
}

// Unwrap returns ErrAccountLocked.
func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}

// publicError carries the message a caller may show to the end user.
type publicError struct {
	kind error
	msg  string
}

func (e *publicError) Error() string {
	return e.kind.Error() + ": " + e.msg
}

func (e *publicError) Unwrap() error {
	return e.kind
}

func userError(kind error, msg string) error {
	return &publicError{kind: kind, msg: msg}
}

func internalError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, cause)
}

// Kind returns a stable code for the class of err, or "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrOTPInvalid):
		return "otp_invalid"
	default:
		return "internal"
	}
}

// Message returns the text that may be shown to the end user for err.
// Internal failures never leak their cause.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var locked *LockedError
	if errors.As(err, &locked) {
		return "Account locked until " + locked.Until.UTC().Format(time.RFC3339)
	}
	if errors.Is(err, ErrInternal) {
		return "Internal server error"
	}
	if errors.Is(err, ErrOTPIncorrect) {
		return "Incorrect OTP"
	}

	var pub *publicError
	if errors.As(err, &pub) {
		return pub.msg
	}

	switch Kind(err) {
	case "validation":
		return "Invalid request"
	case "conflict":
		return "Already exists"
	case "invalid_credentials":
		return "Invalid username or password"
	case "account_disabled":
		return "Account is disabled. Contact an admin."
	case "unauthorized":
		return "Invalid or expired token"
	case "not_found":
		return "Not found"
	case "otp_invalid":
		return "OTP is invalid or expired"
	default:
		return "Internal server error"
	}
}
