package pipeline

import (
	"sort"
	"time"

	"grant-workers/internal/matching/eligibility"
	"grant-workers/internal/matching/scoring"
)

const (
	ExcludedIneligible    = "ineligible"
	ExcludedBelowMinScore = "below_min_score"
	ExcludedMalformed     = "malformed"
)

type Stats struct {
	Total           int            `json:"total"`
	Duplicates      int            `json:"duplicates"`
	Malformed       int            `json:"malformed"`
	Evaluated       int            `json:"evaluated"`
	Eligible        int            `json:"eligible"`
	Ineligible      int            `json:"ineligible"`
	BelowMinScore   int            `json:"belowMinScore"`
	Returned        int            `json:"returned"`
	ByTier          map[string]int `json:"byTier"`
	ByConfidence    map[string]int `json:"byConfidence"`
	ByAppliesToUser map[string]int `json:"byAppliesToUser"`
	FailedFilters   map[string]int `json:"failedFilters"`
	CacheHits       int            `json:"cacheHits"`
	CacheMisses     int            `json:"cacheMisses"`
	CacheErrors     int            `json:"cacheErrors"`
	AIAnalyzed      int            `json:"aiAnalyzed"`
	AIFallbacks     int            `json:"aiFallbacks"`
	DurationMs      int64          `json:"durationMs"`
}

func newStats(total int) Stats {
	return Stats{
		Total:           total,
		ByTier:          map[string]int{},
		ByConfidence:    map[string]int{},
		ByAppliesToUser: map[string]int{},
		FailedFilters:   map[string]int{},
	}
}

type excludedGrant struct {
	candidate *candidate
	reason    string
}

// TraceEntry is the per-grant record regression checks assert against.
type TraceEntry struct {
	Rank          int                       `json:"rank,omitempty"`
	GrantID       string                    `json:"grantId"`
	Title         string                    `json:"title"`
	URL           string                    `json:"url"`
	Status        string                    `json:"status"`
	ExcludedBy    string                    `json:"excludedBy,omitempty"`
	IsEligible    bool                      `json:"isEligible"`
	AppliesToUser eligibility.AppliesToUser `json:"appliesToUser,omitempty"`
	Confidence    eligibility.Confidence    `json:"confidence,omitempty"`
	PrimaryReason string                    `json:"primaryReason,omitempty"`
	PassedFilters []eligibility.FilterName  `json:"passedFilters,omitempty"`
	FailedFilters []eligibility.FilterName  `json:"failedFilters,omitempty"`
	Score         int                       `json:"score"`
	Tier          scoring.Tier              `json:"tier,omitempty"`
	Breakdown     *scoring.Breakdown        `json:"breakdown,omitempty"`
	CacheStatus   string                    `json:"cacheStatus,omitempty"`
	AISource      string                    `json:"aiSource,omitempty"`
}

type Debug struct {
	RunID       string       `json:"runId"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Options     Options      `json:"options"`
	Ranked      []TraceEntry `json:"ranked"`
	Excluded    []TraceEntry `json:"excluded"`
}

func buildDebug(runID string, opts Options, now time.Time, ranked []*candidate, excluded []excludedGrant, size int) *Debug {
	if size <= 0 {
		size = DefaultConfig().DebugTraceSize
	}
	d := &Debug{
		RunID:       runID,
		GeneratedAt: now,
		Options:     opts,
		Ranked:      []TraceEntry{},
		Excluded:    []TraceEntry{},
	}
	for i, c := range ranked {
		if i == size {
			break
		}
		e := traceEntry(c)
		e.Rank = i + 1
		d.Ranked = append(d.Ranked, e)
	}
	for i, x := range excluded {
		if i == size {
			break
		}
		e := traceEntry(x.candidate)
		e.ExcludedBy = x.reason
		d.Excluded = append(d.Excluded, e)
	}
	return d
}

func traceEntry(c *candidate) TraceEntry {
	e := TraceEntry{
		GrantID:       c.grant.ID,
		Title:         c.grant.Title,
		URL:           c.grant.URL,
		Status:        string(c.grant.Status),
		IsEligible:    c.verdict.IsEligible,
		AppliesToUser: c.verdict.AppliesToUser,
		Confidence:    c.verdict.ConfidenceLevel,
		PrimaryReason: c.verdict.PrimaryReason,
		PassedFilters: c.verdict.PassedFilters,
		FailedFilters: c.verdict.FailedFilters,
		Score:         c.score.TotalScore,
		Tier:          c.score.Tier,
		CacheStatus:   string(c.cache),
	}
	if c.score.Tier != "" {
		b := c.score.Breakdown
		e.Breakdown = &b
	}
	if c.ai != nil {
		e.AISource = c.ai.Source
	}
	return e
}

func sortCandidates(list []*candidate, by SortBy) {
	var less func(a, b *candidate) bool
	switch by {
	case SortDeadline:
		less = func(a, b *candidate) bool {
			if !sameDeadline(a, b) {
				return scoring.DeadlineLess(a.grant, b.grant)
			}
			return byScore(a, b)
		}
	case SortAmount:
		less = func(a, b *candidate) bool {
			ma, oka := maxAmount(a)
			mb, okb := maxAmount(b)
			switch {
			case oka && okb && ma != mb:
				return ma > mb
			case oka != okb:
				return oka
			}
			return byScore(a, b)
		}
	case SortNewest:
		less = func(a, b *candidate) bool {
			ta, tb := posted(a), posted(b)
			if !ta.Equal(tb) {
				return ta.After(tb)
			}
			return byScore(a, b)
		}
	default:
		less = byScore
	}
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}

// byScore is the best_match order: score desc, deadline asc with rolling
// last, then ID.
func byScore(a, b *candidate) bool {
	if a.score.TotalScore != b.score.TotalScore {
		return a.score.TotalScore > b.score.TotalScore
	}
	return scoring.DeadlineLess(a.grant, b.grant)
}

func sameDeadline(a, b *candidate) bool {
	da, db := a.grant.DeadlineDate, b.grant.DeadlineDate
	if da == nil || db == nil {
		return da == nil && db == nil
	}
	return da.Equal(*db)
}

func maxAmount(c *candidate) (float64, bool) {
	_, hi, ok := c.grant.AmountRange()
	return hi, ok
}

func posted(c *candidate) time.Time {
	if !c.grant.CreatedAt.IsZero() {
		return c.grant.CreatedAt
	}
	return c.grant.UpdatedAt
}
