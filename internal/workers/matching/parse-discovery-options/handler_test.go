package parsediscoveryoptions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/matching/pipeline"
)

func createTestConfig() *Config {
	cfg := pipeline.DefaultConfig()
	cfg.MaxLimit = 50
	return &Config{
		Timeout:  time.Second,
		Pipeline: cfg,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name        string
		options     map[string]interface{}
		want        pipeline.Options
		wantClamped bool
	}{
		{
			name:    "no options",
			options: nil,
			want:    pipeline.Options{Limit: 20, SortBy: pipeline.SortBestMatch, UseCache: true, UseAI: true},
		},
		{
			name: "process variable types",
			options: map[string]interface{}{
				"limit":        float64(10),
				"minScore":     "40",
				"sortBy":       "Deadline",
				"useAI":        "false",
				"includeDebug": true,
			},
			want: pipeline.Options{
				Limit:        10,
				MinScore:     40,
				SortBy:       pipeline.SortDeadline,
				UseCache:     true,
				IncludeDebug: true,
			},
		},
		{
			name:        "limit clamped to configured max",
			options:     map[string]interface{}{"limit": float64(500), "useCache": false},
			want:        pipeline.Options{Limit: 50, SortBy: pipeline.SortBestMatch, UseAI: true},
			wantClamped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), createTestLogger(t))
			output, err := h.Execute(context.Background(), &Input{Options: tt.options})
			require.NoError(t, err)
			assert.Equal(t, tt.want, output.Options)
			assert.Equal(t, tt.wantClamped, output.LimitClamped)
		})
	}
}

func TestHandler_Execute_InvalidOptions(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]interface{}
	}{
		{name: "fractional limit", options: map[string]interface{}{"limit": 2.5}},
		{name: "negative limit", options: map[string]interface{}{"limit": float64(-1)}},
		{name: "unknown sort", options: map[string]interface{}{"sortBy": "popularity"}},
		{name: "bad boolean", options: map[string]interface{}{"useAI": "maybe"}},
		{name: "min score too high", options: map[string]interface{}{"minScore": "101"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), createTestLogger(t))
			_, err := h.Execute(context.Background(), &Input{Options: tt.options})
			assert.ErrorIs(t, err, pipeline.ErrInvalidOptions)
		})
	}
}
