package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{level: "debug", format: "json", enabled: zapcore.DebugLevel},
		{level: "info", format: "console", enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
		{level: "warn", format: "json", enabled: zapcore.WarnLevel, muted: zapcore.InfoLevel},
		{level: "error", format: "json", enabled: zapcore.ErrorLevel, muted: zapcore.WarnLevel},
		{level: "bogus", format: "json", enabled: zapcore.InfoLevel, muted: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			l, err := New(tt.level, tt.format)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			if tt.level != "debug" {
				assert.False(t, l.Core().Enabled(tt.muted))
			}
		})
	}
}

func TestComponent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	Component(zap.New(core), "coordinator").Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "coordinator", logs.All()[0].ContextMap()["component"])
	assert.NotNil(t, Component(nil, "x"))
}
