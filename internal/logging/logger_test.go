package logging

import (
	"bytes"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("ctp-cli", "bogus")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("ctp-cli", "debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("quote-relay", zapcore.InfoLevel, zapcore.AddSync(&buf))
	logger.Info("md: subscribed", zap.String("code", "rb2510"))
	require.NoError(t, logger.Sync())

	var entry map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "quote-relay", entry["service"])
	assert.Equal(t, "rb2510", entry["code"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "caller")
}
