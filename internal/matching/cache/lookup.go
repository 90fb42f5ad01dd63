package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"grant-workers/internal/models"
)

type Status string

const (
	StatusHit            Status = "hit"
	StatusMiss           Status = "miss"
	StatusProfileChanged Status = "profile_changed"
	StatusGrantChanged   Status = "grant_changed"
	StatusExpired        Status = "expired"
	StatusCorrupt        Status = "corrupt"
	StatusError          Status = "error"
)

// IsHit reports whether s carries a usable entry.
func (s Status) IsHit() bool {
	return s == StatusHit
}

// MatchKey identifies the snapshot a cached analysis must match.
type MatchKey struct {
	UserID         string
	GrantID        string
	ProfileVersion int64
	GrantUpdatedAt time.Time
}

// GetCachedMatch returns the stored analysis for key when it is still valid
// for the given profile version and grant revision. The entry is nil on any
// status other than StatusHit. An error is returned only when the store
// itself failed.
func GetCachedMatch(ctx context.Context, store Store, key MatchKey, now time.Time) (*models.MatchCacheEntry, Status, error) {
	entry, err := store.Get(ctx, key.UserID, key.GrantID)
	if err != nil {
		if errors.Is(err, ErrCorruptEntry) {
			return nil, StatusCorrupt, nil
		}
		return nil, StatusError, err
	}
	if entry == nil {
		return nil, StatusMiss, nil
	}
	return checkEntry(entry, key, now)
}

func checkEntry(entry *models.MatchCacheEntry, key MatchKey, now time.Time) (*models.MatchCacheEntry, Status, error) {
	switch {
	case entry.Expired(now):
		return nil, StatusExpired, nil
	case entry.ProfileVersion != key.ProfileVersion:
		return nil, StatusProfileChanged, nil
	case key.GrantUpdatedAt.After(entry.GrantUpdatedAt):
		return nil, StatusGrantChanged, nil
	case entry.GrantFingerprint != "" && entry.GrantFingerprint != models.GrantFingerprint(key.GrantID, key.GrantUpdatedAt):
		return nil, StatusGrantChanged, nil
	}
	return entry, StatusHit, nil
}

// NewEntry builds the cache record for a freshly computed analysis.
func NewEntry(userID string, grant *models.Grant, profileVersion int64, analysis models.MatchAnalysis, now time.Time, ttl time.Duration) *models.MatchCacheEntry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &models.MatchCacheEntry{
		ID:               uuid.NewString(),
		UserID:           userID,
		GrantID:          grant.ID,
		ProfileVersion:   profileVersion,
		GrantUpdatedAt:   grant.UpdatedAt,
		GrantFingerprint: grant.Fingerprint(),
		Analysis:         analysis,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ttl),
	}
}

// MatchResult is the AI portion attached to a ranked grant.
type MatchResult struct {
	FitSummary        string    `json:"fitSummary"`
	WhyMatch          []string  `json:"whyMatch"`
	EligibilityStatus string    `json:"eligibilityStatus"`
	MatchScore        int       `json:"matchScore"`
	Confidence        string    `json:"confidence"`
	NextSteps         []string  `json:"nextSteps"`
	Concerns          []string  `json:"concerns"`
	Source            string    `json:"source"`
	AnalyzedAt        time.Time `json:"analyzedAt"`
	ExpiresAt         time.Time `json:"expiresAt,omitempty"`
}

const (
	SourceCache = "cache"
	SourceFresh = "fresh"
)

// CacheDataToMatchResult converts a stored entry into the shape returned to
// callers, normalizing values written by older analyzers.
func CacheDataToMatchResult(entry *models.MatchCacheEntry, source string) *MatchResult {
	if entry == nil {
		return nil
	}
	a := entry.Analysis
	res := &MatchResult{
		FitSummary:        a.FitSummary,
		WhyMatch:          nonNil(a.WhyMatch),
		EligibilityStatus: a.EligibilityStatus,
		MatchScore:        a.MatchScore,
		Confidence:        a.Confidence,
		NextSteps:         nonNil(a.NextSteps),
		Concerns:          nonNil(a.Concerns),
		Source:            source,
		AnalyzedAt:        entry.CreatedAt,
		ExpiresAt:         entry.ExpiresAt,
	}
	if res.MatchScore < 0 {
		res.MatchScore = 0
	}
	if res.MatchScore > 100 {
		res.MatchScore = 100
	}
	if res.EligibilityStatus == "" {
		res.EligibilityStatus = "uncertain"
	}
	if res.Confidence == "" {
		res.Confidence = "low"
	}
	return res
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
