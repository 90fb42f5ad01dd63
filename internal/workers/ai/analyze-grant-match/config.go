package analyzegrantmatch

import (
	"time"

	"grant-workers/internal/common/config"
	"grant-workers/internal/matching/cache"
)

type Config struct {
	Timeout  time.Duration
	AIBudget time.Duration
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  20 * time.Second,
		AIBudget: 15 * time.Second,
		CacheTTL: cache.DefaultTTL,
	}
}

// ConfigFromApp takes the analysis budget from the GenAI client timeout.
func ConfigFromApp(cfg *config.Config) *Config {
	c := LoadConfig()
	if w, ok := cfg.Workers[TaskType]; ok && w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	if cfg.APIs.GenAI.Timeout > 0 {
		c.AIBudget = config.GetDuration(cfg.APIs.GenAI.Timeout)
	}
	if ttl := cfg.Matching.CacheTTL(); ttl > 0 {
		c.CacheTTL = ttl
	}
	if c.AIBudget > c.Timeout {
		c.AIBudget = c.Timeout
	}
	return c
}
