// Package observability provides unified logging, metrics, and tracing
// capabilities for the mesh coordinator and its supporting services. It
// follows a consistent approach to observability across all components.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is a Logger implementation backed by go.uber.org/zap.
type ZapLogger struct {
	prefix string
	base   *zap.Logger
	fields map[string]interface{}
}

// NewStandardLogger creates a new zap-backed Logger with the given prefix,
// writing structured JSON to stderr. The name is kept for call-site
// compatibility with the rest of the codebase; "standard" now means
// "the production logger", not the stdlib log package.
func NewStandardLogger(prefix string) Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build()
	if err != nil {
		// Fall back to a minimal logger rather than panic; this should only
		// happen on a malformed zap config, never on a healthy process.
		base = zap.NewNop()
	}

	return newZapLogger(base, prefix, nil)
}

// NewDevelopmentLogger creates a zap-backed Logger tuned for local
// development: console encoding, debug level enabled, stack traces on warn.
func NewDevelopmentLogger(prefix string) Logger {
	base, err := zap.NewDevelopment()
	if err != nil {
		base = zap.NewNop()
	}
	return newZapLogger(base, prefix, nil)
}

func newZapLogger(base *zap.Logger, prefix string, fields map[string]interface{}) *ZapLogger {
	named := base
	if prefix != "" {
		named = base.Named(prefix)
	}
	return &ZapLogger{prefix: prefix, base: named, fields: fields}
}

func (l *ZapLogger) zapFields(extra map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(l.fields)+len(extra))
	for k, v := range l.fields {
		out = append(out, zap.Any(k, v))
	}
	for k, v := range extra {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// Debug logs a debug message
func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.base.Debug(msg, l.zapFields(fields)...)
}

// Info logs an info message
func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.base.Info(msg, l.zapFields(fields)...)
}

// Warn logs a warning message
func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.base.Warn(msg, l.zapFields(fields)...)
}

// Error logs an error message
func (l *ZapLogger) Error(msg string, fields map[string]interface{}) {
	l.base.Error(msg, l.zapFields(fields)...)
}

// Fatal logs a fatal message and exits
func (l *ZapLogger) Fatal(msg string, fields map[string]interface{}) {
	l.base.Fatal(msg, l.zapFields(fields)...)
	os.Exit(1)
}

// WithPrefix returns a new logger scoped under the given name.
func (l *ZapLogger) WithPrefix(prefix string) Logger {
	return newZapLogger(l.base, prefix, l.fields)
}

// With returns a new logger with the given fields merged into every
// subsequent Debug/Info/Warn/Error/Fatal call. The formatted variants
// (Debugf, Infof, ...) do not include these fields.
func (l *ZapLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &ZapLogger{prefix: l.prefix, base: l.base, fields: merged}
}

// Debugf logs a formatted debug message
func (l *ZapLogger) Debugf(format string, args ...interface{}) {
	l.base.Sugar().Debugf(format, args...)
}

// Infof logs a formatted info message
func (l *ZapLogger) Infof(format string, args ...interface{}) {
	l.base.Sugar().Infof(format, args...)
}

// Warnf logs a formatted warning message
func (l *ZapLogger) Warnf(format string, args ...interface{}) {
	l.base.Sugar().Warnf(format, args...)
}

// Errorf logs a formatted error message
func (l *ZapLogger) Errorf(format string, args ...interface{}) {
	l.base.Sugar().Errorf(format, args...)
}

// Fatalf logs a formatted fatal message and exits
func (l *ZapLogger) Fatalf(format string, args ...interface{}) {
	l.base.Sugar().Fatalf(format, args...)
}

// NoopLogger is a logger that does nothing
type NoopLogger struct{}

func (l *NoopLogger) Debug(msg string, fields map[string]interface{}) {}
func (l *NoopLogger) Info(msg string, fields map[string]interface{})  {}
func (l *NoopLogger) Warn(msg string, fields map[string]interface{})  {}
func (l *NoopLogger) Error(msg string, fields map[string]interface{}) {}
func (l *NoopLogger) Fatal(msg string, fields map[string]interface{}) {}

func (l *NoopLogger) Debugf(format string, args ...interface{}) {}
func (l *NoopLogger) Infof(format string, args ...interface{})  {}
func (l *NoopLogger) Warnf(format string, args ...interface{})  {}
func (l *NoopLogger) Errorf(format string, args ...interface{}) {}
func (l *NoopLogger) Fatalf(format string, args ...interface{}) {}

func (l *NoopLogger) WithPrefix(prefix string) Logger { return l }
func (l *NoopLogger) With(fields map[string]interface{}) Logger { return l }

// NewNoopLogger creates a new NoopLogger
func NewNoopLogger() Logger {
	return &NoopLogger{}
}

// NewLogger creates a production logger with the given prefix, defaulting
// the prefix to "meshd" when it is empty.
func NewLogger(prefix string) Logger {
	if prefix == "" {
		prefix = "meshd"
	}
	return NewStandardLogger(prefix)
}
