package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerNotNil(t *testing.T) {
	logger := NewLogger(Config{})
	require.NotNil(t, logger)
}

func TestNewLoggerUsesTextHandlerWithInfoLevel(t *testing.T) {
	logger := NewLogger(Config{Format: "text", Level: "info"})

	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewLoggerJSONIncludesCommonFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: "JSON", Level: "debug", Service: "takwira", Version: "v1", Output: &buf})
	logger.Debug("hello", FieldTeam, "A")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "takwira", entry[FieldService])
	assert.Equal(t, "v1", entry[FieldVersion])
	assert.Equal(t, "A", entry[FieldTeam])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestHelpersTolerateNilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		Debug(nil, "x")
		Info(nil, "x")
		Warn(nil, "x")
		Error(nil, "x", errors.New("boom"))
	})
}

func TestErrorAppendsErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	Error(logger, "save failed", errors.New("boom"), FieldSlot, 3)
	assert.Contains(t, buf.String(), "error=boom")
	assert.Contains(t, buf.String(), "slot=3")
}
