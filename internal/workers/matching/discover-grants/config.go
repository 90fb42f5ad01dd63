package discovergrants

import (
	"time"

	"grant-workers/internal/common/config"
	"grant-workers/internal/matching/source"
)

type Config struct {
	Timeout  time.Duration
	PoolSize int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		PoolSize: source.MaxPoolSize,
	}
}

// ConfigFromApp reads the worker timeout and the candidate pool size.
func ConfigFromApp(cfg *config.Config) *Config {
	c := LoadConfig()
	if w, ok := cfg.Workers[TaskType]; ok && w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	if cfg.Matching.GrantPoolSize > 0 {
		c.PoolSize = cfg.Matching.GrantPoolSize
	}
	return c
}
