package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUnstructuredLogsCheck tests the unstructuredLogs function
func TestUnstructuredLogsCheck(t *testing.T) { //nolint:paralleltest // mutates process env
	tests := []struct {
		name     string
		envValue string
		expected bool
	}{
		{"Default Case", "", true},
		{"Explicitly True", "true", true},
		{"Explicitly False", "false", false},
		{"Invalid Value", "not-a-bool", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("UNSTRUCTURED_LOGS", tt.envValue)

			if got := unstructuredLogs(); got != tt.expected {
				t.Errorf("unstructuredLogs() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// setSingletonForTest temporarily replaces the singleton logger and restores
// the original when the test completes.
func setSingletonForTest(t *testing.T, l *slog.Logger) {
	t.Helper()
	prev := singleton.Load()
	singleton.Store(l)
	t.Cleanup(func() { singleton.Store(prev) })
}

// TestLogLevels tests that each log function writes to the underlying handler.
func TestLogLevels(t *testing.T) { //nolint:paralleltest // mutates singleton
	var buf bytes.Buffer
	setSingletonForTest(t, slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	tests := []struct {
		name  string
		log   func()
		level string
		msg   string
	}{
		{"Debug", func() { Debug("debug msg") }, "DEBUG", "debug msg"},
		{"Debugf", func() { Debugf("debug %s", "fmt") }, "DEBUG", "debug fmt"},
		{"Debugw", func() { Debugw("debug kv", "k", "v") }, "DEBUG", "debug kv"},
		{"Info", func() { Info("info msg") }, "INFO", "info msg"},
		{"Infof", func() { Infof("info %s", "fmt") }, "INFO", "info fmt"},
		{"Infow", func() { Infow("info kv", "k", "v") }, "INFO", "info kv"},
		{"Warn", func() { Warn("warn msg") }, "WARN", "warn msg"},
		{"Warnf", func() { Warnf("warn %s", "fmt") }, "WARN", "warn fmt"},
		{"Warnw", func() { Warnw("warn kv", "k", "v") }, "WARN", "warn kv"},
		{"Error", func() { Error("error msg") }, "ERROR", "error msg"},
		{"Errorf", func() { Errorf("error %s", "fmt") }, "ERROR", "error fmt"},
		{"Errorw", func() { Errorw("error kv", "k", "v") }, "ERROR", "error kv"},
	}

	for _, tt := range tests { //nolint:paralleltest // shared buffer
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()

			out := buf.String()
			require.NotEmpty(t, out, "expected log output")
			assert.Contains(t, out, tt.level)
			assert.Contains(t, out, tt.msg)
		})
	}
}

// TestGetAndSet verifies that Set replaces the logger returned by Get.
func TestGetAndSet(t *testing.T) { //nolint:paralleltest // mutates singleton
	var buf bytes.Buffer
	replacement := slog.New(slog.NewTextHandler(&buf, nil))

	prev := Get()
	require.NotNil(t, prev)
	t.Cleanup(func() { Set(prev) })

	Set(replacement)
	assert.Same(t, replacement, Get())
}
