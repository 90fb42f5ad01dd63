package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"grant-workers/internal/common/config"
)

var ErrInvalidOptions = errors.New("INVALID_OPTIONS")

type SortBy string

const (
	SortBestMatch SortBy = "best_match"
	SortDeadline  SortBy = "deadline"
	SortAmount    SortBy = "amount"
	SortNewest    SortBy = "newest"
)

func (s SortBy) Valid() bool {
	switch s {
	case SortBestMatch, SortDeadline, SortAmount, SortNewest:
		return true
	}
	return false
}

// MinScoreUnset leaves the minimum score to Config.DefaultMinScore. An
// explicit 0 keeps every eligible grant.
const MinScoreUnset = -1

// Options are the per-run knobs a caller may set.
type Options struct {
	Limit        int    `json:"limit"`
	MinScore     int    `json:"minScore"`
	SortBy       SortBy `json:"sortBy"`
	UseCache     bool   `json:"useCache"`
	UseAI        bool   `json:"useAI"`
	IncludeDebug bool   `json:"includeDebug"`
}

// DefaultOptions enables the cache and AI analysis; both are no-ops when the
// pipeline has no store or analyzer.
func DefaultOptions() Options {
	return Options{
		MinScore: MinScoreUnset,
		SortBy:   SortBestMatch,
		UseCache: true,
		UseAI:    true,
	}
}

// Config holds deployment-level limits.
type Config struct {
	DefaultLimit     int
	MaxLimit         int
	DefaultMinScore  int
	DebugTraceSize   int
	CacheConcurrency int
	MaxAIAnalyses    int
	AIBudget         time.Duration
	CacheTTL         time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultLimit:     20,
		MaxLimit:         300,
		DebugTraceSize:   10,
		CacheConcurrency: 8,
		MaxAIAnalyses:    5,
		AIBudget:         8 * time.Second,
		CacheTTL:         7 * 24 * time.Hour,
	}
}

// ConfigFromMatching maps the matching section of the service config,
// keeping defaults for unset values.
func ConfigFromMatching(m config.MatchingConfig) Config {
	cfg := DefaultConfig()
	if m.DefaultLimit > 0 {
		cfg.DefaultLimit = m.DefaultLimit
	}
	if m.MaxLimit > 0 {
		cfg.MaxLimit = m.MaxLimit
	}
	if m.DefaultMinScore > 0 {
		cfg.DefaultMinScore = m.DefaultMinScore
	}
	if m.DebugTraceSize > 0 {
		cfg.DebugTraceSize = m.DebugTraceSize
	}
	if m.CacheLookupConcurrent > 0 {
		cfg.CacheConcurrency = m.CacheLookupConcurrent
	}
	if m.MaxAIAnalyses > 0 {
		cfg.MaxAIAnalyses = m.MaxAIAnalyses
	}
	if m.AIBudget > 0 {
		cfg.AIBudget = config.GetDuration(m.AIBudget)
	}
	if ttl := m.CacheTTL(); ttl > 0 {
		cfg.CacheTTL = ttl
	}
	return cfg
}

// Resolve validates opts and fills defaults from cfg. Limits above the
// configured maximum are clamped rather than rejected.
func (o Options) Resolve(cfg Config) (Options, error) {
	if o.Limit < 0 {
		return o, fmt.Errorf("%w: limit must not be negative", ErrInvalidOptions)
	}
	if o.Limit == 0 {
		o.Limit = cfg.DefaultLimit
	}
	if cfg.MaxLimit > 0 && o.Limit > cfg.MaxLimit {
		o.Limit = cfg.MaxLimit
	}
	if o.MinScore == MinScoreUnset {
		o.MinScore = cfg.DefaultMinScore
	}
	if o.MinScore < 0 || o.MinScore > 100 {
		return o, fmt.Errorf("%w: minScore must be between 0 and 100", ErrInvalidOptions)
	}
	o.SortBy = SortBy(strings.ToLower(strings.TrimSpace(string(o.SortBy))))
	if o.SortBy == "" {
		o.SortBy = SortBestMatch
	}
	if !o.SortBy.Valid() {
		return o, fmt.Errorf("%w: unknown sortBy %q", ErrInvalidOptions, o.SortBy)
	}
	return o, nil
}

// ParseOptions reads loosely typed option values as they arrive from process
// variables or query strings ("20", 20.0, "true").
func ParseOptions(raw map[string]interface{}) (Options, error) {
	opts := DefaultOptions()
	var err error

	if opts.Limit, err = intField(raw, "limit", opts.Limit); err != nil {
		return opts, err
	}
	if opts.MinScore, err = intField(raw, "minScore", opts.MinScore); err != nil {
		return opts, err
	}
	if v, ok := raw["sortBy"]; ok && v != nil {
		s, isString := v.(string)
		if !isString {
			return opts, fmt.Errorf("%w: sortBy must be a string", ErrInvalidOptions)
		}
		opts.SortBy = SortBy(s)
	}
	if opts.UseCache, err = boolField(raw, "useCache", opts.UseCache); err != nil {
		return opts, err
	}
	if opts.UseAI, err = boolField(raw, "useAI", opts.UseAI); err != nil {
		return opts, err
	}
	if opts.IncludeDebug, err = boolField(raw, "includeDebug", opts.IncludeDebug); err != nil {
		return opts, err
	}
	return opts, nil
}

func intField(raw map[string]interface{}, key string, def int) (int, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return def, fmt.Errorf("%w: %s must be a whole number", ErrInvalidOptions, key)
		}
		return int(n), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return def, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return def, fmt.Errorf("%w: %s must be a number", ErrInvalidOptions, key)
		}
		return i, nil
	}
	return def, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidOptions, key, v)
}

func boolField(raw map[string]interface{}, key string, def bool) (bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		if strings.TrimSpace(b) == "" {
			return def, nil
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return def, fmt.Errorf("%w: %s must be true or false", ErrInvalidOptions, key)
		}
		return parsed, nil
	}
	return def, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidOptions, key, v)
}
