package calculategrantscore

import (
	"time"

	"grant-workers/internal/matching/scoring"
)

type Config struct {
	Timeout time.Duration
	Scoring scoring.Config
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
		Scoring: scoring.DefaultConfig(),
	}
}
