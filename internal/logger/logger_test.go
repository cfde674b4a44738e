package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"selfcheckout/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func newTestLogger(t *testing.T, level string) (*Logger, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir, LogLevel: level})
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l, dir
}

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	l, dir := newTestLogger(t, "info")

	l.Info("cart total %.2f", 3.5)
	l.Warning("zone %s unstable", "z1")
	l.Error("backend lost: %v", "eof")
	l.Debug("hidden")
	l.Close()

	info := readLog(t, dir, "info.log")
	assert.Contains(t, info, "cart total 3.50")
	assert.NotContains(t, info, "zone z1")
	assert.NotContains(t, info, "hidden")

	assert.Contains(t, readLog(t, dir, "warning.log"), "zone z1 unstable")
	assert.Contains(t, readLog(t, dir, "error.log"), "backend lost: eof")
}

func TestLogger_LevelFiltersInfo(t *testing.T) {
	l, dir := newTestLogger(t, "warning")

	l.Info("should not appear")
	l.Warning("should appear")
	l.Close()

	assert.Empty(t, strings.TrimSpace(readLog(t, dir, "info.log")))
	assert.Contains(t, readLog(t, dir, "warning.log"), "should appear")
}

func TestLogger_CleanLogs(t *testing.T) {
	l, dir := newTestLogger(t, "info")

	l.Warning("first entry")
	require.NoError(t, l.CleanLogs("warning.log"))

	assert.Empty(t, readLog(t, dir, "warning.log"))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"warn", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		level, err := ParseLevel(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, level, tt.input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewNop_DoesNotPanic(t *testing.T) {
	l := NewNop()
	l.Info("x %d", 1)
	l.Error("y")
	l.Close()
}
