// Package relevance filters and ranks grants for interactive search. It is a
// cheaper fusion of eligibility and scoring with a stricter topical gate.
package relevance

import (
	"math"
	"sort"
	"strings"

	"grant-workers/internal/matching/scoring"
	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

// DefaultMinScore is the lowest relevance score shown in search results.
const DefaultMinScore = 30

type Weights struct {
	Entity    float64
	Industry  float64
	Geography float64
	Search    float64
}

func DefaultWeights() Weights {
	return Weights{Entity: 25, Industry: 35, Geography: 20, Search: 20}
}

type Config struct {
	Weights   Weights
	MinScore  int
	Adjacency taxonomy.EntityAdjacency
}

func DefaultConfig() Config {
	return Config{
		Weights:   DefaultWeights(),
		MinScore:  DefaultMinScore,
		Adjacency: taxonomy.DefaultEntityAdjacency(),
	}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if cfg.MinScore < 0 {
		cfg.MinScore = 0
	}
	if cfg.Adjacency == nil {
		cfg.Adjacency = taxonomy.DefaultEntityAdjacency()
	}
	return &Engine{cfg: cfg}
}

var defaultEngine = NewEngine(DefaultConfig())

type Breakdown struct {
	EntityMatch    int `json:"entityMatch"`
	IndustryMatch  int `json:"industryMatch"`
	GeographyMatch int `json:"geographyMatch"`
	SearchMatch    int `json:"searchMatch"`
}

type Result struct {
	RelevanceScore int       `json:"relevanceScore"`
	IsEligible     bool      `json:"isEligible"`
	MatchReasons   []string  `json:"matchReasons"`
	Warnings       []string  `json:"warnings"`
	Breakdown      Breakdown `json:"breakdown"`
	// BlockedBy names the gate that excluded the grant, if any.
	BlockedBy string `json:"blockedBy,omitempty"`
}

const (
	BlockedMissingURL  = "missing_url"
	BlockedNotOpen     = "not_open"
	BlockedOffTopic    = "off_topic"
	BlockedNoTermMatch = "no_term_match"
	BlockedEntity      = "entity_type"
	BlockedGeography   = "geography"
	BlockedLowScore    = "below_min_score"
)

// CalculateRelevance scores grant for a search with the default configuration.
// profile may be nil for anonymous searches.
func CalculateRelevance(grant *models.Grant, profile *models.UserProfile, term string) Result {
	return defaultEngine.CalculateRelevance(grant, profile, term)
}

func (e *Engine) CalculateRelevance(grant *models.Grant, profile *models.UserProfile, term string) Result {
	res := Result{MatchReasons: []string{}, Warnings: []string{}}
	if strings.TrimSpace(grant.URL) == "" {
		res.BlockedBy = BlockedMissingURL
		return res
	}
	if grant.Status != taxonomy.StatusOpen {
		res.BlockedBy = BlockedNotOpen
		return res
	}

	search, blocked := e.searchPart(grant, term)
	if blocked != "" {
		res.BlockedBy = blocked
		return res
	}
	parts := []part{
		e.entityPart(grant, profile),
		e.industryPart(grant, profile),
		e.geographyPart(grant, profile),
		search,
	}
	weights := []float64{e.cfg.Weights.Entity, e.cfg.Weights.Industry, e.cfg.Weights.Geography, e.cfg.Weights.Search}

	points := make([]int, len(parts))
	total := 0
	for i, p := range parts {
		points[i] = int(math.Round(math.Max(0, math.Min(1, p.fraction)) * weights[i]))
		total += points[i]
		if p.reason != "" {
			res.MatchReasons = append(res.MatchReasons, p.reason)
		}
		if p.warning != "" {
			res.Warnings = append(res.Warnings, p.warning)
		}
		if p.blocked != "" && res.BlockedBy == "" {
			res.BlockedBy = p.blocked
		}
	}
	if total > 100 {
		total = 100
	}

	res.Breakdown = Breakdown{
		EntityMatch:    points[0],
		IndustryMatch:  points[1],
		GeographyMatch: points[2],
		SearchMatch:    points[3],
	}
	res.RelevanceScore = total
	if res.BlockedBy == "" && total < e.cfg.MinScore {
		res.BlockedBy = BlockedLowScore
	}
	res.IsEligible = res.BlockedBy == ""
	return res
}

// Ranked is one displayable search result.
type Ranked struct {
	Grant     *models.Grant `json:"grant"`
	Relevance Result        `json:"relevance"`
}

type Stats struct {
	Total     int            `json:"total"`
	Returned  int            `json:"returned"`
	BlockedBy map[string]int `json:"blockedBy"`
}

// FilterSearchResults keeps the displayable grants, sorted by relevance
// descending, then deadline ascending with rolling last, then ID.
func FilterSearchResults(grants []*models.Grant, profile *models.UserProfile, term string) ([]Ranked, Stats) {
	return defaultEngine.FilterSearchResults(grants, profile, term)
}

func (e *Engine) FilterSearchResults(grants []*models.Grant, profile *models.UserProfile, term string) ([]Ranked, Stats) {
	stats := Stats{BlockedBy: map[string]int{}}
	out := make([]Ranked, 0, len(grants))
	for _, g := range grants {
		if g == nil {
			continue
		}
		stats.Total++
		r := e.CalculateRelevance(g, profile, term)
		if !r.IsEligible {
			stats.BlockedBy[r.BlockedBy]++
			continue
		}
		out = append(out, Ranked{Grant: g, Relevance: r})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Relevance.RelevanceScore != out[j].Relevance.RelevanceScore {
			return out[i].Relevance.RelevanceScore > out[j].Relevance.RelevanceScore
		}
		return scoring.DeadlineLess(out[i].Grant, out[j].Grant)
	})
	stats.Returned = len(out)
	return out, stats
}
