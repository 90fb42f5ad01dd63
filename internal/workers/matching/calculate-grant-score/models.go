package calculategrantscore

import (
	"time"

	"grant-workers/internal/matching/scoring"
	"grant-workers/internal/models"
)

// Input scores grants that already passed eligibility. Now pins the deadline
// factor for replays; it defaults to the worker clock.
type Input struct {
	Profile  *models.UserProfile `json:"profile"`
	Grants   []*models.Grant     `json:"grants"`
	MinScore int                 `json:"minScore,omitempty"`
	Now      *time.Time          `json:"now,omitempty"`
}

type Output struct {
	ScoredGrants []scoring.Scored     `json:"scoredGrants"`
	Count        int                  `json:"count"`
	TopScore     int                  `json:"topScore"`
	ByTier       map[scoring.Tier]int `json:"byTier"`
	BelowMin     int                  `json:"belowMinScore"`
}
