package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

var now = time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

func amount(v float64) *float64 { return &v }

func daysFromNow(d int) *time.Time {
	t := now.AddDate(0, 0, d)
	return &t
}

func farmGrant() *models.Grant {
	g := &models.Grant{
		ID:           "g-farm",
		Title:        "Beginning Farmer and Rancher Grant",
		Summary:      "Supports beginning farmers with crop and livestock operations",
		Categories:   []string{"Agriculture"},
		Eligibility:  models.GrantEligibility{Tags: []string{"small business"}},
		Locations:    []models.Location{{Type: taxonomy.LocationState, Value: "CA"}},
		AmountMin:    amount(10_000),
		AmountMax:    amount(50_000),
		DeadlineDate: daysFromNow(45),
		Status:       taxonomy.StatusOpen,
		QualityScore: 90,
		URL:          "https://grants.example.org/farm",
	}
	g.Normalize()
	return g
}

func farmProfile() *models.UserProfile {
	p := &models.UserProfile{
		UserID:       "u-1",
		EntityType:   taxonomy.EntitySmallBusiness,
		State:        "CA",
		IndustryTags: []taxonomy.IndustryTag{taxonomy.IndustryAgriculture},
		GrantPreferences: &models.GrantPreferences{
			PreferredSize: taxonomy.GrantSizeSmall,
			Timeline:      taxonomy.TimelineSoon,
		},
	}
	p.Normalize()
	return p
}

func TestCalculateScorePerfectMatch(t *testing.T) {
	res := CalculateScore(farmProfile(), farmGrant(), now)

	assert.Equal(t, Breakdown{
		EntityMatch:    20,
		IndustryMatch:  50,
		GeographyMatch: 10,
		BudgetMatch:    10,
		DeadlineMatch:  10,
	}, res.Breakdown)
	assert.Equal(t, 100, res.TotalScore)
	assert.Equal(t, TierExcellent, res.Tier)
	assert.Len(t, res.MatchReasons, 5)
	assert.Equal(t, "Open to small business applicants", res.MatchReasons[0])
	assert.Equal(t, "Matches your focus areas: Agriculture", res.MatchReasons[1])
	assert.Empty(t, res.Warnings)
}

func TestCalculateScoreQualityModifier(t *testing.T) {
	tests := []struct {
		name           string
		quality        int
		wantTotal      int
		wantTier       Tier
		wantAdjustment int
	}{
		{name: "high quality unchanged", quality: 70, wantTotal: 100, wantTier: TierExcellent, wantAdjustment: 0},
		{name: "unset quality uses default", quality: 0, wantTotal: 100, wantTier: TierExcellent, wantAdjustment: 0},
		{name: "medium quality capped below excellent", quality: 55, wantTotal: 79, wantTier: TierGood, wantAdjustment: -21},
		{name: "low quality scaled and capped", quality: 20, wantTotal: 59, wantTier: TierFair, wantAdjustment: -41},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := farmGrant()
			g.QualityScore = tt.quality
			res := CalculateScore(farmProfile(), g, now)
			assert.Equal(t, tt.wantTotal, res.TotalScore)
			assert.Equal(t, tt.wantTier, res.Tier)
			assert.Equal(t, tt.wantAdjustment, res.Breakdown.QualityAdjustment)
			if tt.wantAdjustment != 0 {
				assert.NotEmpty(t, res.Warnings)
			}
		})
	}
}

func TestEntityFactor(t *testing.T) {
	tests := []struct {
		name        string
		entity      taxonomy.EntityType
		tags        []string
		wantPoints  int
		wantWarning bool
	}{
		{name: "exact match", entity: taxonomy.EntityNonprofit, tags: []string{"501(c)(3)"}, wantPoints: 20},
		{name: "small business meets for-profit restriction", entity: taxonomy.EntitySmallBusiness, tags: []string{"For-Profit"}, wantPoints: 20},
		{name: "for-profit adjacent to small business", entity: taxonomy.EntityForProfit, tags: []string{"small business"}, wantPoints: 14},
		{name: "government adjacent to tribal", entity: taxonomy.EntityGovernment, tags: []string{"tribal"}, wantPoints: 10},
		{name: "unrestricted", entity: taxonomy.EntityIndividual, tags: []string{"any"}, wantPoints: 15},
		{name: "no tags", entity: taxonomy.EntityIndividual, tags: nil, wantPoints: 15},
		{name: "unknown profile entity", entity: "", tags: []string{"nonprofit"}, wantPoints: 8},
		{name: "mismatch", entity: taxonomy.EntityIndividual, tags: []string{"nonprofit"}, wantPoints: 0, wantWarning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := farmProfile()
			p.EntityType = tt.entity
			g := farmGrant()
			g.Eligibility.Tags = tt.tags

			res := CalculateScore(p, g, now)
			assert.Equal(t, tt.wantPoints, res.Breakdown.EntityMatch)
			if tt.wantWarning {
				assert.Contains(t, res.Warnings, "Your organization type may not be eligible")
			}
		})
	}
}

func TestEntityAdjacencyIsConfigurable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Adjacency = taxonomy.DefaultEntityAdjacency()
	cfg.Adjacency.Set(taxonomy.EntityIndividual, taxonomy.EntityNonprofit, 0.25)
	engine := NewEngine(cfg)

	p := farmProfile()
	p.EntityType = taxonomy.EntityIndividual
	g := farmGrant()
	g.Eligibility.Tags = []string{"nonprofit"}

	assert.Equal(t, 5, engine.CalculateScore(p, g, now).Breakdown.EntityMatch)
	assert.Equal(t, 0, CalculateScore(p, g, now).Breakdown.EntityMatch)
}

func TestIndustryFactor(t *testing.T) {
	t.Run("no profile tags scores neutral", func(t *testing.T) {
		p := farmProfile()
		p.IndustryTags = nil
		res := CalculateScore(p, farmGrant(), now)
		assert.Equal(t, 15, res.Breakdown.IndustryMatch)
		assert.Contains(t, res.Warnings, "Add focus areas to your profile to improve match accuracy")
	})

	t.Run("unrelated grant scores zero", func(t *testing.T) {
		g := farmGrant()
		g.Title = "K-12 Teacher Professional Development Grant"
		g.Summary = "Training for classroom teachers"
		g.Categories = []string{"Education"}
		res := CalculateScore(farmProfile(), g, now)
		assert.Equal(t, 0, res.Breakdown.IndustryMatch)
		assert.Contains(t, res.Warnings, "Limited overlap with your focus areas")
	})

	t.Run("label hit outweighs a single keyword", func(t *testing.T) {
		labelled := farmGrant()
		labelled.Title = "Rural Support Grant"
		labelled.Summary = ""
		labelled.Categories = []string{"Agriculture"}

		keyword := farmGrant()
		keyword.Title = "Rural Support Grant"
		keyword.Summary = "Open to dairy operations"
		keyword.Categories = nil

		l := CalculateScore(farmProfile(), labelled, now).Breakdown.IndustryMatch
		k := CalculateScore(farmProfile(), keyword, now).Breakdown.IndustryMatch
		assert.Greater(t, l, k)
		assert.Equal(t, 5, k)
	})
}

func TestIndustryMatchIsMonotonic(t *testing.T) {
	keywords := []string{"farm", "crop", "livestock", "orchard", "dairy", "aquaculture", "soil health", "agribusiness", "ranch", "food system"}
	p := farmProfile()

	prev := -1
	summary := "Program"
	for _, kw := range keywords {
		summary += " " + kw
		g := farmGrant()
		g.Title = "Regional Grant"
		g.Categories = nil
		g.Summary = summary

		got := CalculateScore(p, g, now).Breakdown.IndustryMatch
		assert.GreaterOrEqual(t, got, prev, "adding %q decreased the industry score", kw)
		prev = got
	}
	assert.Equal(t, 50, prev)
}

func TestGeographyFactor(t *testing.T) {
	tests := []struct {
		name       string
		locations  []models.Location
		wantPoints int
	}{
		{name: "state match", locations: []models.Location{{Type: taxonomy.LocationState, Value: "CA"}}, wantPoints: 10},
		{name: "region match", locations: []models.Location{{Type: taxonomy.LocationRegion, Value: "west"}}, wantPoints: 8},
		{name: "national", locations: []models.Location{{Type: taxonomy.LocationNational}}, wantPoints: 6},
		{name: "national with country name", locations: []models.Location{{Type: taxonomy.LocationNational, Value: "United States"}}, wantPoints: 6},
		{name: "unspecified", locations: nil, wantPoints: 6},
		{name: "best of several", locations: []models.Location{{Type: taxonomy.LocationNational}, {Type: taxonomy.LocationState, Value: "CA"}}, wantPoints: 10},
		{name: "other state", locations: []models.Location{{Type: taxonomy.LocationState, Value: "TX"}}, wantPoints: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := farmGrant()
			g.Locations = tt.locations
			assert.Equal(t, tt.wantPoints, CalculateScore(farmProfile(), g, now).Breakdown.GeographyMatch)
		})
	}
}

func TestBudgetFactor(t *testing.T) {
	tests := []struct {
		name        string
		size        taxonomy.GrantSize
		min, max    *float64
		budget      taxonomy.BudgetBand
		wantPoints  int
		wantWarning string
	}{
		{name: "overlapping range", size: taxonomy.GrantSizeSmall, min: amount(20_000), max: amount(40_000), wantPoints: 10},
		{name: "adjacent band", size: taxonomy.GrantSizeSmall, min: amount(75_000), max: amount(150_000), wantPoints: 5},
		{name: "far outside", size: taxonomy.GrantSizeMicro, min: amount(500_000), max: amount(900_000), wantPoints: 0, wantWarning: "Award size is outside your preferred range"},
		{name: "any preference", size: taxonomy.GrantSizeAny, min: amount(2_000_000), max: amount(3_000_000), wantPoints: 10},
		{name: "no preference", size: "", max: amount(5_000), wantPoints: 10},
		{name: "no amount", size: taxonomy.GrantSizeSmall, wantPoints: 3, wantWarning: "This grant has no stated funding amount"},
		{name: "no amount with any", size: taxonomy.GrantSizeAny, wantPoints: 5, wantWarning: "This grant has no stated funding amount"},
		{
			name:        "award dwarfs annual budget",
			size:        taxonomy.GrantSizeAny,
			min:         amount(500_000),
			max:         amount(1_000_000),
			budget:      taxonomy.BudgetUnder50K,
			wantPoints:  10,
			wantWarning: "The award is large relative to your annual budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := farmProfile()
			p.GrantPreferences.PreferredSize = tt.size
			p.AnnualBudget = tt.budget
			g := farmGrant()
			g.AmountMin, g.AmountMax = tt.min, tt.max

			res := CalculateScore(p, g, now)
			assert.Equal(t, tt.wantPoints, res.Breakdown.BudgetMatch)
			if tt.wantWarning != "" {
				assert.Contains(t, res.Warnings, tt.wantWarning)
			}
		})
	}
}

func TestDeadlineFactor(t *testing.T) {
	tests := []struct {
		name       string
		deadline   *time.Time
		timeline   taxonomy.Timeline
		wantPoints int
		wantReason string
	}{
		{name: "rolling", deadline: nil, wantPoints: 7, wantReason: "Rolling deadline"},
		{name: "passed", deadline: daysFromNow(-2), wantPoints: 0},
		{name: "within a week", deadline: daysFromNow(3), wantPoints: 3},
		{name: "fits urgent timeline", deadline: daysFromNow(20), timeline: taxonomy.TimelineUrgent, wantPoints: 10, wantReason: "Closes in 20 days, fits your timeline"},
		{name: "beyond soon timeline", deadline: daysFromNow(120), timeline: taxonomy.TimelineSoon, wantPoints: 6},
		{name: "flexible timeline", deadline: daysFromNow(200), timeline: taxonomy.TimelineFlexible, wantPoints: 10},
		{name: "no timeline comfortable", deadline: daysFromNow(30), wantPoints: 8, wantReason: "Closes in 30 days"},
		{name: "no timeline tight", deadline: daysFromNow(10), wantPoints: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := farmProfile()
			p.GrantPreferences.Timeline = tt.timeline
			g := farmGrant()
			g.DeadlineDate = tt.deadline

			res := CalculateScore(p, g, now)
			assert.Equal(t, tt.wantPoints, res.Breakdown.DeadlineMatch)
			if tt.wantReason != "" {
				assert.Contains(t, res.MatchReasons, tt.wantReason)
			}
		})
	}
}

func TestCalculateScoreDeterministic(t *testing.T) {
	p, g := farmProfile(), farmGrant()
	assert.Equal(t, CalculateScore(p, g, now), CalculateScore(p, g, now))
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, TierExcellent, TierFor(80))
	assert.Equal(t, TierGood, TierFor(79))
	assert.Equal(t, TierGood, TierFor(60))
	assert.Equal(t, TierFair, TierFor(40))
	assert.Equal(t, TierLow, TierFor(39))
}

func TestScoreAndSortGrants(t *testing.T) {
	best := farmGrant()
	best.ID = "g-best"

	weaker := farmGrant()
	weaker.ID = "g-weaker"
	weaker.Locations = []models.Location{{Type: taxonomy.LocationNational}}

	unrelated := farmGrant()
	unrelated.ID = "g-unrelated"
	unrelated.Title = "Museum Exhibit Grant"
	unrelated.Summary = ""
	unrelated.Categories = []string{"Arts"}

	out := ScoreAndSortGrants(farmProfile(), []*models.Grant{unrelated, nil, weaker, best}, now)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"g-best", "g-weaker", "g-unrelated"}, []string{out[0].Grant.ID, out[1].Grant.ID, out[2].Grant.ID})
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].Score.TotalScore, out[i].Score.TotalScore)
	}
}

func TestSortByScoreTieBreak(t *testing.T) {
	mk := func(id string, deadline *time.Time) Scored {
		return Scored{Grant: &models.Grant{ID: id, DeadlineDate: deadline}, Score: Result{TotalScore: 70}}
	}
	list := []Scored{
		mk("rolling-b", nil),
		mk("late", daysFromNow(40)),
		mk("rolling-a", nil),
		mk("soon", daysFromNow(5)),
		{Grant: &models.Grant{ID: "top"}, Score: Result{TotalScore: 90}},
	}

	SortByScore(list)
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.Grant.ID
	}
	assert.Equal(t, []string{"top", "soon", "late", "rolling-a", "rolling-b"}, ids)
}
