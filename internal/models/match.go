package models

import "time"

// MatchAnalysis is the AI-derived explanation of how a grant fits a profile.
type MatchAnalysis struct {
	FitSummary        string   `json:"fitSummary"`
	WhyMatch          []string `json:"whyMatch"`
	EligibilityStatus string   `json:"eligibilityStatus"`
	MatchScore        int      `json:"matchScore"`
	Confidence        string   `json:"confidence"`
	NextSteps         []string `json:"nextSteps"`
	Concerns          []string `json:"concerns"`
	Model             string   `json:"model,omitempty"`
}

// MatchCacheEntry stores one analysis together with the snapshot it was
// computed against.
type MatchCacheEntry struct {
	ID               string        `json:"id"`
	UserID           string        `json:"userId"`
	GrantID          string        `json:"grantId"`
	ProfileVersion   int64         `json:"profileVersion"`
	GrantUpdatedAt   time.Time     `json:"grantUpdatedAt"`
	GrantFingerprint string        `json:"grantFingerprint"`
	Analysis         MatchAnalysis `json:"analysis"`
	CreatedAt        time.Time     `json:"createdAt"`
	ExpiresAt        time.Time     `json:"expiresAt"`
}

func (e *MatchCacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
