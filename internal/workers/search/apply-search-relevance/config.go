package applysearchrelevance

import (
	"time"

	"grant-workers/internal/matching/relevance"
)

type Config struct {
	Timeout   time.Duration
	Relevance relevance.Config
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   10 * time.Second,
		Relevance: relevance.DefaultConfig(),
	}
}
