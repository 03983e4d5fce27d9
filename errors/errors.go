package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// General errors
	ErrCodeUnknown  ErrorCode = "UNKNOWN"
	ErrCodeInternal ErrorCode = "INTERNAL"

	// Identity and routing errors
	ErrCodeMalformedIdentity      ErrorCode = "MALFORMED_IDENTITY"
	ErrCodeAuthorizationViolation ErrorCode = "AUTHORIZATION_VIOLATION"

	// Transport errors
	ErrCodeTransportNotReady ErrorCode = "TRANSPORT_NOT_READY"
	ErrCodeStreamClosed      ErrorCode = "STREAM_CLOSED"

	// Tool errors
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeQuotaExceeded   ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"

	// Session errors
	ErrCodeSessionLoad ErrorCode = "SESSION_LOAD_FAILED"
	ErrCodeSessionSave ErrorCode = "SESSION_SAVE_FAILED"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Context: make(map[string]any),
	}
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
		Context: make(map[string]any),
	}
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code from an error if it's an AppError
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeUnknown
}

// GetMessage returns the error message
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Is checks if error is of specific type
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatus maps an error to the HTTP status the gateway should return.
// Authorization mismatches confirm only that a mismatch occurred; the
// message never names the identity the session is bound to.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeMalformedIdentity, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeAuthorizationViolation:
		return http.StatusForbidden
	case ErrCodeTransportNotReady:
		return http.StatusConflict
	case ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrCodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors

func MalformedIdentity(candidate string) *AppError {
	// Do not echo the raw candidate back in the message; it is untrusted.
	return New(ErrCodeMalformedIdentity, "identity must match [A-Za-z0-9_-] and be 10-50 characters").
		WithContext("candidate_length", len(candidate))
}

func AuthorizationViolation() *AppError {
	return New(ErrCodeAuthorizationViolation, "session is bound to a different identity")
}

func TransportNotReady(operation string) *AppError {
	return New(ErrCodeTransportNotReady, fmt.Sprintf("no open stream for this session, cannot %s", operation))
}

func StreamClosed() *AppError {
	return New(ErrCodeStreamClosed, "event stream has been closed by the peer")
}

func Validation(msg string) *AppError {
	return New(ErrCodeValidation, msg)
}

func QuotaExceeded(max int) *AppError {
	return New(ErrCodeQuotaExceeded, fmt.Sprintf("memory quota of %d items reached", max))
}

func UpstreamFailure(operation string, err error) *AppError {
	return Wrapf(err, ErrCodeUpstreamFailure, "memory store %s failed", operation)
}

func Internal(err error) *AppError {
	return Wrap(err, ErrCodeInternal, "internal error")
}
