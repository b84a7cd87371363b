// Package logging provides the service logger: structured JSON logging on
// top of zap, carried through request contexts.
package logging

import (
	"context"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log entry.
type LogLevel string

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in
	// production.
	DebugLevel LogLevel = "DEBUG"
	// InfoLevel is the default logging priority.
	InfoLevel LogLevel = "INFO"
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel LogLevel = "WARN"
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel LogLevel = "ERROR"
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel LogLevel = "FATAL"
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
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

// Logger represents an active logging object.
type Logger struct {
	z *zap.Logger
}

// New creates a JSON Logger with the specified log level and output.
func New(level LogLevel, output io.Writer) *Logger {
	return newLogger(level, "json", zapcore.AddSync(output))
}

func newLogger(level LogLevel, format string, out zapcore.WriteSyncer) *Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if format == "text" {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(enc)
	} else {
		encoder = zapcore.NewJSONEncoder(enc)
	}
	core := zapcore.NewCore(encoder, out, level.zapLevel())
	return &Logger{z: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{z: z.WithOptions(zap.AddCallerSkip(1))}
}

// Zap returns the underlying zap logger for components that log through
// zap directly.
func (l *Logger) Zap() *zap.Logger {
	return l.z.WithOptions(zap.AddCallerSkip(-1))
}

// Named returns a logger for a subsystem.
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

// WithFields returns a new Logger with the specified fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{z: l.z.With(toZap(fields)...)}
}

// WithField returns a new Logger with the specified key-value pair.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{z: l.z.With(zap.Any(key, value))}
}

// WithError returns a new Logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{z: l.z.With(zap.Error(err))}
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level LogLevel) bool {
	return l.z.Core().Enabled(level.zapLevel())
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// toZap converts fields in key order so that output is stable.
func toZap(fields map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, len(keys))
	for i, k := range keys {
		if err, ok := fields[k].(error); ok {
			out[i] = zap.NamedError(k, err)
			continue
		}
		out[i] = zap.Any(k, fields[k])
	}
	return out
}

func first(fields []map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	return toZap(fields[0])
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.z.Debug(msg, first(fields)...)
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.z.Info(msg, first(fields)...)
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.z.Warn(msg, first(fields)...)
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.z.Error(msg, first(fields)...)
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.z.Fatal(msg, first(fields)...)
}

// CtxLogger is a logger that can be used with context.
type CtxLogger struct {
	*Logger
}

// FromContext returns a logger from the context or a new one if none exists.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext returns a new context with the logger.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

type ctxLoggerKey struct{}
