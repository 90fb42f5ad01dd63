package logger

import (
	"errors"
	"testing"

	"grant-workers/internal/common/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_LevelParsing(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(tt.level, "json")
			assert.True(t, l.Core().Enabled(tt.expected))
			if tt.expected > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.expected-1))
			}
		})
	}
}

func TestZapWrapper_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).
		WithFields(map[string]interface{}{"taskType": "discover-grants"}).
		WithError(errors.New("redis down"))

	log.Warn("cache lookup failed", map[string]interface{}{
		"grantId": "g-1",
		"cause":   errors.New("timeout"),
	})

	entries := logs.All()
	assert.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "discover-grants", ctx["taskType"])
	assert.Equal(t, "g-1", ctx["grantId"])
	assert.Equal(t, "redis down", ctx["error"])
	assert.Equal(t, "timeout", ctx["cause"])
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.With(map[string]interface{}{"a": 1}).Info("ignored", nil)
	})
}

func TestNewFromConfig_ServiceFields(t *testing.T) {
	l := NewFromConfig(
		config.LoggingConfig{Level: "warn", Format: "json"},
		config.AppConfig{Name: "grant-workers", Version: "1.2.0"},
	)
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
}
