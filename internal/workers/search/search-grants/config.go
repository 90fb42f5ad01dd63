package searchgrants

import (
	"time"

	"grant-workers/internal/matching/relevance"
	"grant-workers/internal/matching/source"
)

type Config struct {
	Timeout   time.Duration
	FetchSize int
	Relevance relevance.Config
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   10 * time.Second,
		FetchSize: source.DefaultSearchSize,
		Relevance: relevance.DefaultConfig(),
	}
}
