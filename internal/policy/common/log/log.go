// Package log is the daemon's logging facade over zap.
//
// Everything goes to stderr: in stdio mode stdout is the policy channel to
// Postfix and a stray log line there would be read as a response. Postfix
// spawns one process per policy connection in that mode, so every entry is
// tagged with the process id to keep interleaved output apart.
package log

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	sink    = "stderr"
	appName = "rr-policyd"
)

var global Logger = newZapLogger(false, zapcore.InfoLevel)

// Logger is what every component logs through. Fields are a flat map; event
// names for per-line parser diagnostics are short snake_case strings, and
// operator-facing messages are sentences.
type Logger interface {
	Info(fields map[string]any, msg string)
	Error(fields map[string]any, msg string)
	Debug(fields map[string]any, msg string)
	Warn(fields map[string]any, msg string)
	Panic(fields map[string]any, msg string)
	Fatal(fields map[string]any, msg string)
}

// SetLogger replaces the global logger. Tests use it to capture or silence output.
func SetLogger(l Logger) {
	global = l
}

// GetLogger returns the global logger, for injection into components.
func GetLogger() Logger {
	return global
}

// Configure installs the global logger for env and level. "prod" selects JSON
// output; any other env selects the coloured console encoder.
func Configure(env, level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	global = newZapLogger(env != "prod", lvl)
	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return lvl, fmt.Errorf("invalid log level: %w", err)
	}
	return lvl, nil
}

// Info logs through the global logger.
func Info(fields map[string]any, msg string) { global.Info(fields, msg) }

// Error logs through the global logger.
func Error(fields map[string]any, msg string) { global.Error(fields, msg) }

// Debug logs through the global logger.
func Debug(fields map[string]any, msg string) { global.Debug(fields, msg) }

// Warn logs through the global logger.
func Warn(fields map[string]any, msg string) { global.Warn(fields, msg) }

// Panic logs and then panics.
func Panic(fields map[string]any, msg string) { global.Panic(fields, msg) }

// Fatal logs and exits the process with status 1.
func Fatal(fields map[string]any, msg string) { global.Fatal(fields, msg) }

type zapLogger struct {
	base *zap.Logger
}

func newZapLogger(dev bool, level zapcore.Level) Logger {
	var config zap.Config
	if dev {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{sink}
	config.ErrorOutputPaths = []string{sink}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.MessageKey = "msg"
	config.EncoderConfig.LevelKey = "level"

	base, err := config.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return withIdentity(base)
}

// withIdentity tags every entry of base with the daemon name and process id.
func withIdentity(base *zap.Logger) *zapLogger {
	return &zapLogger{base: base.With(zap.String("app", appName), zap.Int("pid", os.Getpid()))}
}

func (l *zapLogger) Info(fields map[string]any, msg string) {
	l.base.Info(msg, zapFields(fields)...)
}

func (l *zapLogger) Error(fields map[string]any, msg string) {
	l.base.Error(msg, zapFields(fields)...)
}

func (l *zapLogger) Debug(fields map[string]any, msg string) {
	l.base.Debug(msg, zapFields(fields)...)
}

func (l *zapLogger) Warn(fields map[string]any, msg string) {
	l.base.Warn(msg, zapFields(fields)...)
}

func (l *zapLogger) Panic(fields map[string]any, msg string) {
	l.base.Panic(msg, zapFields(fields)...)
}

func (l *zapLogger) Fatal(fields map[string]any, msg string) {
	l.base.Fatal(msg, zapFields(fields)...)
}

// zapFields renders errors as their message; zap.Any would otherwise emit a
// nested object for wrapped errors such as the rule loader's read failures.
func zapFields(m map[string]any) []zap.Field {
	fields := make([]zap.Field, 0, len(m))
	for k, v := range m {
		if err, ok := v.(error); ok {
			fields = append(fields, zap.String(k, err.Error()))
			continue
		}
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

type noopLogger struct{}

func (noopLogger) Info(map[string]any, string)  {}
func (noopLogger) Error(map[string]any, string) {}
func (noopLogger) Debug(map[string]any, string) {}
func (noopLogger) Warn(map[string]any, string)  {}
func (noopLogger) Panic(map[string]any, string) {}
func (noopLogger) Fatal(map[string]any, string) {}

// NewNoopLogger returns a Logger that discards everything, including Panic and Fatal.
func NewNoopLogger() Logger {
	return noopLogger{}
}
