package sweepmatchcache

import (
	"time"

	"grant-workers/internal/matching/cache"
)

// Input is informational; a sweep always covers the whole keyspace.
type Input struct {
	Trigger string `json:"trigger,omitempty"`
}

type Output struct {
	Report     cache.SweepReport `json:"report"`
	SweptAt    time.Time         `json:"sweptAt"`
	DurationMs int64             `json:"durationMs"`
}
