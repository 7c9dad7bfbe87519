// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ckarabey/attendbot/internal/config"
)

// testWriter adapts a bytes.Buffer to zapcore.WriteSyncer.
type testWriter struct {
	bytes.Buffer
}

func (w *testWriter) Sync() error { return nil }

func TestInitializeConsoleLogger(t *testing.T) {
	ResetForTest()
	var buf testWriter

	Initialize(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "test-service",
	}, zapcore.Lock(&buf))

	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Info("hello from test")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.Contains(t, out, "hello from test")
	assert.Contains(t, out, "test-service")
	// Console format colorizes the level.
	assert.Contains(t, out, "\x1b[32m")
}

func TestInitializeJSONLogger(t *testing.T) {
	ResetForTest()
	var buf testWriter

	Initialize(config.LoggerConfig{
		Level:       "warn",
		Format:      "json",
		ServiceName: "test-service",
	}, zapcore.Lock(&buf))

	logger := GetLogger()
	logger.Info("below the configured level")
	logger.Warn("visible warning")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "below the configured level")
	assert.Contains(t, out, `"visible warning"`)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	var first, second testWriter

	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "one"}, zapcore.Lock(&first))
	Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "two"}, zapcore.Lock(&second))

	GetLogger().Info("routed to the first writer")
	_ = GetLogger().Sync()

	assert.Contains(t, first.String(), "routed to the first writer")
	assert.Empty(t, second.String())
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	// Never initialized; must still return a usable logger.
	logger := GetLogger()
	require.NotNil(t, logger)
	logger.Debug("fallback logger is usable")
}
