package log

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testLogger struct {
	entries []string
}

func (l *testLogger) Info(_ map[string]any, msg string)  { l.entries = append(l.entries, "INFO:"+msg) }
func (l *testLogger) Error(_ map[string]any, msg string) { l.entries = append(l.entries, "ERROR:"+msg) }
func (l *testLogger) Debug(_ map[string]any, msg string) { l.entries = append(l.entries, "DEBUG:"+msg) }
func (l *testLogger) Warn(_ map[string]any, msg string)  { l.entries = append(l.entries, "WARN:"+msg) }
func (l *testLogger) Panic(_ map[string]any, msg string) {}
func (l *testLogger) Fatal(_ map[string]any, msg string) {}

func TestActualZapLogger(t *testing.T) {
	Debug(map[string]any{
		"source": "denied_senders",
		"line":   42,
		"ok":     true,
	}, "test debug")
	Info(nil, "test info")
	Warn(map[string]any{"error": errors.New("boom")}, "test warn")
	Error(nil, "test error")
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic, but none occurred")
		}
	}()
	Panic(nil, "test panic")
}

func TestSetLoggerAndGlobalLogging(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)
	tlog := &testLogger{}
	SetLogger(tlog)

	Info(nil, "info msg")
	Error(nil, "error msg")
	Debug(nil, "debug msg")
	Warn(nil, "warn msg")

	assert.Equal(t, []string{
		"INFO:info msg",
		"ERROR:error msg",
		"DEBUG:debug msg",
		"WARN:warn msg",
	}, tlog.entries)
}

func TestConfigure(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)

	tests := []struct {
		env, level string
		wantErr    bool
	}{
		{"dev", "debug", false},
		{"prod", "info", false},
		{"prod", " WARN ", false},
		{"dev", "notalevel", true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			err := Configure(tt.env, tt.level)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, &zapLogger{}, GetLogger())
		})
	}
}

func TestZapLogger_TagsIdentityAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := withIdentity(zap.New(core))

	l.Warn(map[string]any{
		"source": "denied_senders",
		"error":  fmt.Errorf("read denied_senders: %w", errors.New("permission denied")),
	}, "Rule source unreadable, treating as empty")
	l.Debug(nil, "skip_empty_frame")

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, zapcore.WarnLevel, first.Level)
	assert.Equal(t, "Rule source unreadable, treating as empty", first.Message)
	ctx := first.ContextMap()
	assert.Equal(t, "rr-policyd", ctx["app"])
	assert.EqualValues(t, os.Getpid(), ctx["pid"])
	assert.Equal(t, "denied_senders", ctx["source"])
	assert.Equal(t, "read denied_senders: permission denied", ctx["error"])

	assert.Equal(t, "skip_empty_frame", entries[1].Message)
	assert.Equal(t, "rr-policyd", entries[1].ContextMap()["app"])
}

func TestZapFields_RendersErrors(t *testing.T) {
	fields := zapFields(map[string]any{"error": errors.New("boom")})
	require.Len(t, fields, 1)
	assert.Equal(t, "error", fields[0].Key)
	assert.Equal(t, "boom", fields[0].String)
}

func TestNoopLogger_TestAllLevels(t *testing.T) {
	orig := GetLogger()
	defer SetLogger(orig)
	SetLogger(NewNoopLogger())

	Debug(nil, "debug message")
	Info(nil, "info message")
	Warn(nil, "warn message")
	Error(nil, "error message")
	Panic(nil, "panic message")
	Fatal(nil, "fatal message")
}
