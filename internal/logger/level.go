package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents log level
type LogLevel int

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in production
	DebugLevel LogLevel = iota
	// InfoLevel is the default logging priority
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual human review
	WarnLevel
	// ErrorLevel logs are high-priority
	ErrorLevel
	// FatalLevel logs. After a fatal log, the application will exit
	FatalLevel
)

func toZapLevel(l LogLevel) zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel parses a string to a log level
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// FieldLogger provides structured logging with fields
type FieldLogger struct {
	logger *zap.Logger
	fields []zap.Field
}

// NewFieldLogger creates a new field logger
func NewFieldLogger(fields ...zap.Field) *FieldLogger {
	return &FieldLogger{
		logger: L(),
		fields: fields,
	}
}

// With creates a child logger with additional fields
func (fl *FieldLogger) With(fields ...zap.Field) *FieldLogger {
	return &FieldLogger{
		logger: fl.logger,
		fields: fl.merge(fields),
	}
}

// merge copies before appending so siblings never write into a shared
// backing array.
func (fl *FieldLogger) merge(fields []zap.Field) []zap.Field {
	merged := make([]zap.Field, 0, len(fl.fields)+len(fields))
	merged = append(merged, fl.fields...)
	return append(merged, fields...)
}

// Debug logs at debug level
func (fl *FieldLogger) Debug(msg string, fields ...zap.Field) {
	fl.logger.Debug(msg, fl.merge(fields)...)
}

// Info logs at info level
func (fl *FieldLogger) Info(msg string, fields ...zap.Field) {
	fl.logger.Info(msg, fl.merge(fields)...)
}

// Warn logs at warn level
func (fl *FieldLogger) Warn(msg string, fields ...zap.Field) {
	fl.logger.Warn(msg, fl.merge(fields)...)
}

// Error logs at error level
func (fl *FieldLogger) Error(msg string, fields ...zap.Field) {
	fl.logger.Error(msg, fl.merge(fields)...)
}

// Module creates a field logger with module name
func Module(name string) *FieldLogger {
	return NewFieldLogger(zap.String("module", name))
}

// Session creates a field logger for session tracking
func Session(locator string) *FieldLogger {
	return NewFieldLogger(zap.String("session", locator))
}
