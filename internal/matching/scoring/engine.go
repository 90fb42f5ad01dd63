// Package scoring computes a weighted 0-100 match score for a (profile,
// grant) pair. Scores depend only on their inputs and the injected clock.
package scoring

import (
	"math"
	"sort"
	"time"

	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierLow       Tier = "low"
)

// TierFor buckets a total score.
func TierFor(score int) Tier {
	switch {
	case score >= 80:
		return TierExcellent
	case score >= 60:
		return TierGood
	case score >= 40:
		return TierFair
	}
	return TierLow
}

// Weights are the maximum points each factor contributes. They should sum to 100.
type Weights struct {
	Entity    float64 `json:"entity" yaml:"entity"`
	Industry  float64 `json:"industry" yaml:"industry"`
	Geography float64 `json:"geography" yaml:"geography"`
	Budget    float64 `json:"budget" yaml:"budget"`
	Deadline  float64 `json:"deadline" yaml:"deadline"`
}

func DefaultWeights() Weights {
	return Weights{Entity: 20, Industry: 50, Geography: 10, Budget: 10, Deadline: 10}
}

type Config struct {
	Weights   Weights
	Adjacency taxonomy.EntityAdjacency
	// ReasonThreshold is the fraction of a factor's maximum at which it is
	// reported as a match reason.
	ReasonThreshold float64
}

func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights(),
		Adjacency:       taxonomy.DefaultEntityAdjacency(),
		ReasonThreshold: 0.5,
	}
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Adjacency == nil {
		cfg.Adjacency = taxonomy.DefaultEntityAdjacency()
	}
	if cfg.ReasonThreshold <= 0 {
		cfg.ReasonThreshold = 0.5
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	return &Engine{cfg: cfg}
}

var defaultEngine = NewEngine(DefaultConfig())

type Breakdown struct {
	EntityMatch       int `json:"entityMatch"`
	IndustryMatch     int `json:"industryMatch"`
	GeographyMatch    int `json:"geographyMatch"`
	BudgetMatch       int `json:"budgetMatch"`
	DeadlineMatch     int `json:"deadlineMatch"`
	QualityAdjustment int `json:"qualityAdjustment"`
}

type Result struct {
	TotalScore   int       `json:"totalScore"`
	Tier         Tier      `json:"tier"`
	Breakdown    Breakdown `json:"breakdown"`
	MatchReasons []string  `json:"matchReasons"`
	Warnings     []string  `json:"warnings"`
}

// CalculateScore scores one pair with the default configuration.
func CalculateScore(profile *models.UserProfile, grant *models.Grant, now time.Time) Result {
	return defaultEngine.CalculateScore(profile, grant, now)
}

// CalculateScore is safe to call on any grant, eligible or not.
func (e *Engine) CalculateScore(profile *models.UserProfile, grant *models.Grant, now time.Time) Result {
	factors := []factor{
		e.entityFactor(profile, grant),
		industryFactor(profile, grant),
		geographyFactor(profile, grant),
		budgetFactor(profile, grant),
		deadlineFactor(profile, grant, now),
	}
	weights := []float64{e.cfg.Weights.Entity, e.cfg.Weights.Industry, e.cfg.Weights.Geography, e.cfg.Weights.Budget, e.cfg.Weights.Deadline}

	res := Result{MatchReasons: []string{}, Warnings: []string{}}
	points := make([]int, len(factors))
	raw := 0
	for i, f := range factors {
		points[i] = int(math.Round(clamp01(f.fraction) * weights[i]))
		raw += points[i]
		if f.reason != "" && weights[i] > 0 && float64(points[i]) >= e.cfg.ReasonThreshold*weights[i] {
			res.MatchReasons = append(res.MatchReasons, f.reason)
		}
		res.Warnings = append(res.Warnings, f.warnings...)
	}
	raw = clampScore(raw)

	total, qualityWarning := applyQuality(raw, grant.QualityScore)
	if qualityWarning != "" {
		res.Warnings = append(res.Warnings, qualityWarning)
	}

	res.Breakdown = Breakdown{
		EntityMatch:       points[0],
		IndustryMatch:     points[1],
		GeographyMatch:    points[2],
		BudgetMatch:       points[3],
		DeadlineMatch:     points[4],
		QualityAdjustment: total - raw,
	}
	res.TotalScore = total
	res.Tier = TierFor(total)
	return res
}

// applyQuality caps the score of poorly described listings so they cannot
// reach the top tier on topical match alone.
func applyQuality(score, quality int) (int, string) {
	if quality <= 0 {
		quality = taxonomy.DefaultQualityScore
	}
	switch {
	case quality >= 70:
		return score, ""
	case quality >= 40:
		if score > 79 {
			score = 79
		}
		return score, "Listing details are incomplete; confirm requirements with the sponsor"
	}
	score = int(math.Round(float64(score) * 0.75))
	if score > 59 {
		score = 59
	}
	return score, "Listing has limited information; confirm it is still active before applying"
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Scored pairs a grant with its score.
type Scored struct {
	Grant *models.Grant `json:"grant"`
	Score Result        `json:"score"`
}

// ScoreAndSortGrants scores every grant with the default configuration.
func ScoreAndSortGrants(profile *models.UserProfile, grants []*models.Grant, now time.Time) []Scored {
	return defaultEngine.ScoreAndSortGrants(profile, grants, now)
}

// ScoreAndSortGrants scores every grant and orders them best first.
func (e *Engine) ScoreAndSortGrants(profile *models.UserProfile, grants []*models.Grant, now time.Time) []Scored {
	out := make([]Scored, 0, len(grants))
	for _, g := range grants {
		if g == nil {
			continue
		}
		out = append(out, Scored{Grant: g, Score: e.CalculateScore(profile, g, now)})
	}
	SortByScore(out)
	return out
}

// SortByScore orders by total score descending, then deadline ascending with
// rolling deadlines last, then grant ID.
func SortByScore(list []Scored) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Score.TotalScore != b.Score.TotalScore {
			return a.Score.TotalScore > b.Score.TotalScore
		}
		return DeadlineLess(a.Grant, b.Grant)
	})
}

// DeadlineLess orders grants by deadline ascending, rolling last, then by ID.
func DeadlineLess(a, b *models.Grant) bool {
	switch {
	case a.DeadlineDate != nil && b.DeadlineDate != nil:
		if !a.DeadlineDate.Equal(*b.DeadlineDate) {
			return a.DeadlineDate.Before(*b.DeadlineDate)
		}
	case a.DeadlineDate != nil:
		return true
	case b.DeadlineDate != nil:
		return false
	}
	return a.ID < b.ID
}
