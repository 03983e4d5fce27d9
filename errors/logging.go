package errors

import (
	"github.com/memgate/memgate/internal/logger"
	"go.uber.org/zap"
)

// ErrorHandler provides centralized error logging
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{
		logger: logger.L(),
	}
}

// Handle logs an error with severity chosen by its code
func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	code := GetCode(err)
	msg := GetMessage(err)

	switch code {
	case ErrCodeMalformedIdentity, ErrCodeValidation, ErrCodeTransportNotReady:
		// Caller errors, correctable by the caller
		h.logger.Debug("Request rejected", zap.String("code", string(code)), zap.String("message", msg))
	case ErrCodeQuotaExceeded, ErrCodeStreamClosed:
		h.logger.Info("Policy or transport condition", zap.String("code", string(code)), zap.String("message", msg))
	case ErrCodeAuthorizationViolation:
		// Security relevant, always visible
		h.logger.Warn("Authorization violation", zap.String("code", string(code)))
	case ErrCodeUpstreamFailure, ErrCodeSessionLoad, ErrCodeSessionSave:
		h.logger.Error("Operation failed", zap.String("code", string(code)), zap.Error(err))
	default:
		h.logger.Error("Unexpected error", zap.String("code", string(code)), zap.Error(err))
	}
}
