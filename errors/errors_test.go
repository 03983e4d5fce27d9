package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewError(t *testing.T) {
	err := New(ErrCodeValidation, "test error")
	if err.Code != ErrCodeValidation {
		t.Errorf("expected code %s, got %s", ErrCodeValidation, err.Code)
	}
	if err.Message != "test error" {
		t.Errorf("expected message 'test error', got '%s'", err.Message)
	}
}

func TestWrapError(t *testing.T) {
	original := errors.New("original error")
	wrapped := Wrap(original, ErrCodeUpstreamFailure, "store call failed")

	if wrapped.Code != ErrCodeUpstreamFailure {
		t.Errorf("expected code %s, got %s", ErrCodeUpstreamFailure, wrapped.Code)
	}
	if !errors.Is(wrapped, original) {
		t.Error("wrapped error should contain original error")
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"app error", New(ErrCodeQuotaExceeded, "test"), ErrCodeQuotaExceeded},
		{"standard error", errors.New("standard"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := GetCode(tt.err); code != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, code)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := TransportNotReady("post message")

	if !Is(err, ErrCodeTransportNotReady) {
		t.Error("Is should return true for matching error code")
	}
	if Is(err, ErrCodeStreamClosed) {
		t.Error("Is should return false for non-matching error code")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"malformed identity", MalformedIdentity("bad id!"), http.StatusBadRequest},
		{"authorization violation", AuthorizationViolation(), http.StatusForbidden},
		{"transport not ready", TransportNotReady("post"), http.StatusConflict},
		{"validation", Validation("bad input"), http.StatusBadRequest},
		{"quota exceeded", QuotaExceeded(2000), http.StatusTooManyRequests},
		{"upstream failure", UpstreamFailure("save", errors.New("boom")), http.StatusBadGateway},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, got)
			}
		})
	}
}

func TestAuthorizationViolationLeaksNothing(t *testing.T) {
	err := AuthorizationViolation()
	// The message confirms a mismatch and nothing else.
	if err.Message != "session is bound to a different identity" {
		t.Errorf("unexpected message: %s", err.Message)
	}
	if len(err.Context) != 0 {
		t.Error("authorization violation should carry no identity context")
	}
}
