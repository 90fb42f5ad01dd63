package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-workers/internal/common/config"
)

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		opts    Options
		want    Options
		wantErr bool
	}{
		{
			name: "defaults",
			opts: Options{},
			want: Options{Limit: 20, SortBy: SortBestMatch},
		},
		{
			name: "limit above max is clamped",
			opts: Options{Limit: 5000, SortBy: "Deadline "},
			want: Options{Limit: 300, SortBy: SortDeadline},
		},
		{
			name: "explicit values kept",
			opts: Options{Limit: 5, MinScore: 40, SortBy: SortAmount, UseAI: true},
			want: Options{Limit: 5, MinScore: 40, SortBy: SortAmount, UseAI: true},
		},
		{name: "negative limit", opts: Options{Limit: -1}, wantErr: true},
		{name: "min score above 100", opts: Options{MinScore: 101}, wantErr: true},
		{name: "negative min score", opts: Options{MinScore: -5}, wantErr: true},
		{name: "unknown sort", opts: Options{SortBy: "popularity"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Resolve(cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUsesConfiguredMinScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultMinScore = 30

	got, err := DefaultOptions().Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, 30, got.MinScore)

	parsed, err := ParseOptions(map[string]interface{}{"minScore": float64(0)})
	require.NoError(t, err)
	got, err = parsed.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MinScore)
}

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]interface{}
		want    Options
		wantErr bool
	}{
		{
			name: "empty keeps defaults",
			raw:  map[string]interface{}{},
			want: DefaultOptions(),
		},
		{
			name: "json numbers and bools",
			raw: map[string]interface{}{
				"limit":        float64(10),
				"minScore":     float64(55),
				"sortBy":       "newest",
				"useCache":     false,
				"includeDebug": true,
			},
			want: Options{Limit: 10, MinScore: 55, SortBy: SortNewest, UseAI: true, IncludeDebug: true},
		},
		{
			name: "query string values",
			raw:  map[string]interface{}{"limit": "25", "useAI": "false", "minScore": ""},
			want: Options{Limit: 25, MinScore: MinScoreUnset, SortBy: SortBestMatch, UseCache: true},
		},
		{
			name: "explicit zero min score",
			raw:  map[string]interface{}{"minScore": 0},
			want: Options{MinScore: 0, SortBy: SortBestMatch, UseCache: true, UseAI: true},
		},
		{name: "fractional limit", raw: map[string]interface{}{"limit": 2.5}, wantErr: true},
		{name: "non numeric limit", raw: map[string]interface{}{"limit": "ten"}, wantErr: true},
		{name: "sortBy not a string", raw: map[string]interface{}{"sortBy": 3}, wantErr: true},
		{name: "bad bool", raw: map[string]interface{}{"useCache": "maybe"}, wantErr: true},
		{name: "unsupported type", raw: map[string]interface{}{"limit": []int{1}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptions(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFromMatching(t *testing.T) {
	cfg := ConfigFromMatching(config.MatchingConfig{
		MaxLimit:      100,
		MaxAIAnalyses: 3,
	})

	assert.Equal(t, 20, cfg.DefaultLimit)
	assert.Equal(t, 100, cfg.MaxLimit)
	assert.Equal(t, 3, cfg.MaxAIAnalyses)
	assert.Equal(t, 8*time.Second, cfg.AIBudget)
	assert.Equal(t, 7*24*time.Hour, cfg.CacheTTL)
}
