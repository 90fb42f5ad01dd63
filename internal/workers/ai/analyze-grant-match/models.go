package analyzegrantmatch

import (
	"grant-workers/internal/matching/cache"
	"grant-workers/internal/matching/eligibility"
	"grant-workers/internal/matching/scoring"
	"grant-workers/internal/models"
)

// Input asks for the analysis of one (profile, grant) pair. ForceFresh skips
// the cache lookup; Required turns an unavailable analysis into a job
// failure instead of a score-only result.
type Input struct {
	Profile    *models.UserProfile `json:"profile"`
	Grant      *models.Grant       `json:"grant"`
	ForceFresh bool                `json:"forceFresh,omitempty"`
	Required   bool                `json:"required,omitempty"`
}

type Output struct {
	UserID         string             `json:"userId"`
	GrantID        string             `json:"grantId"`
	Eligibility    eligibility.Result `json:"eligibilityAssessment"`
	Score          scoring.Result     `json:"score"`
	Analysis       *cache.MatchResult `json:"aiAnalysis,omitempty"`
	CacheStatus    cache.Status       `json:"cacheStatus,omitempty"`
	Fallback       bool               `json:"fallback"`
	FallbackReason string             `json:"fallbackReason,omitempty"`
	Analyzer       string             `json:"analyzer,omitempty"`
}

const (
	FallbackDisabled = "analyzer_disabled"
	FallbackTimeout  = "timeout"
	FallbackFailed   = "failed"
)
