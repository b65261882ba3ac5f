package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EMALFORMEDTOKEN      = "malformed_token"       // Handoff token is structurally invalid
	EAUTHFAILED          = "authentication_failed" // MAC mismatch on a token or credential
	ETOKENEXPIRED        = "token_expired"         // Handoff token exp is missing or in the past
	EMALFORMEDCREDENTIAL = "malformed_credential"  // Session credential is structurally invalid
	ENOTFOUND            = "not_found"             // Resource not found
	ERATELIMIT           = "rate_limit"            // Rate limit exceeded
	EINTERNAL            = "internal"              // Internal server error
)

// ErrInvalidClaim is returned by the session codec when a claim cannot be
// serialized. Claims only come from the token codec, so this is an internal
// invariant violation rather than a client error.
var ErrInvalidClaim = errors.New("claim field cannot be serialized")

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "handoff.Decode")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code, op, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Convenience constructors for the protocol error kinds. Messages stay
// terse; they are logged, never written to a response body.

// MalformedToken creates a structurally-invalid handoff token error.
func MalformedToken(op, message string) *Error {
	return &Error{
		Code:    EMALFORMEDTOKEN,
		Op:      op,
		Message: message,
	}
}

// AuthenticationFailed creates a MAC mismatch error.
func AuthenticationFailed(op string) *Error {
	return &Error{
		Code:    EAUTHFAILED,
		Op:      op,
		Message: "authentication failed",
	}
}

// TokenExpired creates an expired handoff token error.
func TokenExpired(op, message string) *Error {
	return &Error{
		Code:    ETOKENEXPIRED,
		Op:      op,
		Message: message,
	}
}

// MalformedCredential creates a structurally-invalid session credential error.
func MalformedCredential(op, message string) *Error {
	return &Error{
		Code:    EMALFORMEDCREDENTIAL,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RateLimit creates a rate limit error.
func RateLimit(op string) *Error {
	return &Error{
		Code:    ERATELIMIT,
		Op:      op,
		Message: "too many failed attempts",
	}
}
