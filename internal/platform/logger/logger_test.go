package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/star64ccs/CardStrategy-sub008/internal/config"
	"github.com/star64ccs/CardStrategy-sub008/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithWriter(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	tests := []struct {
		name     string
		level    string
		logDebug bool
		logInfo  bool
		logWarn  bool
	}{
		{name: "debug", level: "debug", logDebug: true, logInfo: true, logWarn: true},
		{name: "info", level: "info", logDebug: false, logInfo: true, logWarn: true},
		{name: "error", level: "ERROR", logDebug: false, logInfo: false, logWarn: false},
		{name: "invalid falls back to info", level: "verbose", logDebug: false, logInfo: true, logWarn: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: tc.level}, &buf)
			require.NoError(t, err)
			require.NotNil(t, l)

			ctx := context.Background()
			assert.Equal(t, tc.logDebug, l.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tc.logInfo, l.Enabled(ctx, slog.LevelInfo))
			assert.Equal(t, tc.logWarn, l.Enabled(ctx, slog.LevelWarn))
			assert.Same(t, l, slog.Default())
		})
	}
}

func TestSetupWritesJSON(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	var buf bytes.Buffer
	l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "info"}, &buf)
	require.NoError(t, err)

	l.Info("scheduler started", "max_concurrent", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "scheduler started", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.EqualValues(t, 3, entry["max_concurrent"])
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	buf, l := logger.NewTestLogger(t)
	ctx := logger.WithContext(context.Background(), l.With("trace_id", "abc"))

	logger.FromContext(ctx).Info("hello")
	logger.FromContext(ctx).Info("other")

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "abc", entries[0]["trace_id"])

	hello := logger.EntriesWithMessage(t, buf, "hello")
	require.Len(t, hello, 1)
	assert.Equal(t, "INFO", hello[0][slog.LevelKey])

	assert.Same(t, slog.Default(), logger.FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, ok := logger.ParseLevel("Warn")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelWarn, level)

	level, ok = logger.ParseLevel("nope")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, level)
}
