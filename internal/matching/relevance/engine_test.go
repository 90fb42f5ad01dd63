package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

func youthGrant() *models.Grant {
	g := &models.Grant{
		ID:          "g-youth",
		Title:       "Youth Development Initiative Grant",
		Sponsor:     "Hudson Valley Foundation",
		Categories:  []string{"Youth", "Community"},
		Eligibility: models.GrantEligibility{Tags: []string{"nonprofit"}},
		Locations: []models.Location{
			{Type: taxonomy.LocationState, Value: "NY"},
			{Type: taxonomy.LocationState, Value: "NJ"},
		},
		Status: taxonomy.StatusOpen,
		URL:    "https://grants.example.org/youth",
	}
	g.Normalize()
	return g
}

func nyNonprofit() *models.UserProfile {
	p := &models.UserProfile{
		UserID:       "u-ny",
		EntityType:   taxonomy.EntityNonprofit,
		State:        "NY",
		IndustryTags: []taxonomy.IndustryTag{taxonomy.IndustryCommunity, taxonomy.IndustryYouth},
	}
	p.Normalize()
	return p
}

func TestCalculateRelevance(t *testing.T) {
	tests := []struct {
		name        string
		grant       func() *models.Grant
		profile     *models.UserProfile
		term        string
		wantBlocked string
		wantScore   int
		validate    func(t *testing.T, res Result)
	}{
		{
			name:      "category term in title",
			grant:     youthGrant,
			profile:   nyNonprofit(),
			term:      "youth",
			wantScore: 100,
			validate: func(t *testing.T, res Result) {
				assert.Equal(t, Breakdown{EntityMatch: 25, IndustryMatch: 35, GeographyMatch: 20, SearchMatch: 20}, res.Breakdown)
				assert.Contains(t, res.MatchReasons, "Title matches youth")
			},
		},
		{
			name:      "category alias resolves",
			grant:     youthGrant,
			profile:   nyNonprofit(),
			term:      "kids",
			wantScore: 100,
		},
		{
			name: "category keyword outside the title",
			grant: func() *models.Grant {
				g := youthGrant()
				g.Title = "Hudson Valley Opportunity Fund"
				g.Summary = "Supports after school programs for teens"
				return g
			},
			profile: nyNonprofit(),
			term:    "youth",
			validate: func(t *testing.T, res Result) {
				assert.Equal(t, 15, res.Breakdown.SearchMatch)
				assert.True(t, res.IsEligible)
			},
			wantScore: -1,
		},
		{
			name: "category term blocks off-topic listing",
			grant: func() *models.Grant {
				g := youthGrant()
				g.Title = "K-12 Teacher Professional Development Grant"
				g.Categories = []string{"Education"}
				return g
			},
			profile:     nyNonprofit(),
			term:        "agriculture",
			wantBlocked: BlockedOffTopic,
		},
		{
			name: "free text matches sponsor",
			grant: func() *models.Grant {
				g := youthGrant()
				g.Sponsor = "NASA Office of STEM Engagement"
				return g
			},
			profile:   nyNonprofit(),
			term:      "nasa",
			wantScore: 94,
			validate: func(t *testing.T, res Result) {
				assert.Equal(t, 14, res.Breakdown.SearchMatch)
			},
		},
		{
			name: "free text only in description is not enough",
			grant: func() *models.Grant {
				g := youthGrant()
				g.Description = "Funded in partnership with NASA"
				return g
			},
			profile:     nyNonprofit(),
			term:        "nasa",
			wantBlocked: BlockedNoTermMatch,
		},
		{
			name: "missing url",
			grant: func() *models.Grant {
				g := youthGrant()
				g.URL = ""
				return g
			},
			profile:     nyNonprofit(),
			wantBlocked: BlockedMissingURL,
		},
		{
			name: "closed listing",
			grant: func() *models.Grant {
				g := youthGrant()
				g.Status = taxonomy.StatusClosed
				return g
			},
			profile:     nyNonprofit(),
			wantBlocked: BlockedNotOpen,
		},
		{
			name:  "entity mismatch",
			grant: youthGrant,
			profile: func() *models.UserProfile {
				p := nyNonprofit()
				p.EntityType = taxonomy.EntityIndividual
				return p
			}(),
			wantBlocked: BlockedEntity,
		},
		{
			name:  "state mismatch",
			grant: youthGrant,
			profile: func() *models.UserProfile {
				p := nyNonprofit()
				p.State = "MA"
				return p
			}(),
			wantBlocked: BlockedGeography,
		},
		{
			name: "anonymous search on a national listing",
			grant: func() *models.Grant {
				g := youthGrant()
				g.Locations = nil
				return g
			},
			profile:   nil,
			wantScore: 65,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := CalculateRelevance(tt.grant(), tt.profile, tt.term)
			assert.Equal(t, tt.wantBlocked, res.BlockedBy)
			assert.Equal(t, tt.wantBlocked == "", res.IsEligible)
			if tt.wantBlocked != "" && tt.wantBlocked != BlockedEntity && tt.wantBlocked != BlockedGeography {
				assert.Zero(t, res.RelevanceScore)
			}
			if tt.wantScore >= 0 && tt.wantBlocked == "" {
				assert.Equal(t, tt.wantScore, res.RelevanceScore)
			}
			if tt.validate != nil {
				tt.validate(t, res)
			}
		})
	}
}

func TestMinScoreThreshold(t *testing.T) {
	strict := NewEngine(Config{MinScore: 101})
	res := strict.CalculateRelevance(youthGrant(), nyNonprofit(), "youth")
	assert.False(t, res.IsEligible)
	assert.Equal(t, BlockedLowScore, res.BlockedBy)
	assert.Equal(t, 100, res.RelevanceScore)
}

func TestFilterSearchResults(t *testing.T) {
	mentoring := &models.Grant{
		ID:         "g-mentoring",
		Title:      "Mentoring Matters",
		Sponsor:    "National Mentoring Fund",
		Categories: []string{"Youth"},
		Locations:  []models.Location{{Type: taxonomy.LocationNational}},
		Status:     taxonomy.StatusOpen,
		URL:        "https://grants.example.org/mentoring",
	}
	mentoring.Normalize()

	farm := &models.Grant{
		ID:         "g-farm",
		Title:      "Beginning Farmer Grant",
		Categories: []string{"Agriculture"},
		Status:     taxonomy.StatusOpen,
		URL:        "https://grants.example.org/farm",
	}
	farm.Normalize()

	noURL := youthGrant()
	noURL.ID = "g-no-url"
	noURL.URL = ""

	results, stats := FilterSearchResults([]*models.Grant{mentoring, farm, nil, noURL, youthGrant()}, nyNonprofit(), "youth")
	require.Len(t, results, 2)
	assert.Equal(t, "g-youth", results[0].Grant.ID)
	assert.Equal(t, "g-mentoring", results[1].Grant.ID)
	assert.Equal(t, 84, results[1].Relevance.RelevanceScore)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Returned)
	assert.Equal(t, map[string]int{BlockedOffTopic: 1, BlockedMissingURL: 1}, stats.BlockedBy)

	for _, r := range results {
		assert.NotEmpty(t, r.Grant.URL)
		assert.GreaterOrEqual(t, r.Relevance.RelevanceScore, DefaultMinScore)
	}
}
