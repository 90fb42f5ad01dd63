package parsediscoveryoptions

import (
	"time"

	"grant-workers/internal/matching/pipeline"
)

type Config struct {
	Timeout  time.Duration
	Pipeline pipeline.Config
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  5 * time.Second,
		Pipeline: pipeline.DefaultConfig(),
	}
}
