package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-workers/internal/matching/taxonomy"
)

func floatPtr(v float64) *float64 { return &v }

func TestGrantNormalize(t *testing.T) {
	g := Grant{
		ID:         " g-1 ",
		Title:      " Youth Development Initiative Grant ",
		Status:     "OPEN",
		Categories: []string{"Youth", "youth", " Community ", ""},
		Eligibility: GrantEligibility{
			Tags: []string{"Nonprofit", "nonprofit"},
		},
		Locations: []Location{
			{Type: "state", Value: "New York"},
			{Type: "STATE", Value: "ny"},
			{Type: "region", Value: "New England Region"},
			{Type: "national", Value: "USA"},
			{Type: "national", Value: "United States"},
		},
	}
	g.Normalize()

	assert.Equal(t, "g-1", g.ID)
	assert.Equal(t, taxonomy.StatusOpen, g.Status)
	assert.Equal(t, []string{"Youth", "Community"}, g.Categories)
	assert.Equal(t, []string{"Nonprofit"}, g.Eligibility.Tags)
	assert.Equal(t, []Location{
		{Type: taxonomy.LocationState, Value: "NY"},
		{Type: taxonomy.LocationRegion, Value: "new england region"},
		{Type: taxonomy.LocationNational, Value: "US"},
	}, g.Locations)
	assert.Equal(t, taxonomy.DefaultQualityScore, g.QualityScore)
}

func TestGrantValidate(t *testing.T) {
	valid := func() Grant {
		return Grant{ID: "g-1", Title: "Grant", Status: taxonomy.StatusOpen, QualityScore: 80}
	}

	tests := []struct {
		name    string
		mutate  func(g *Grant)
		wantErr string
	}{
		{name: "valid", mutate: func(g *Grant) {}},
		{name: "empty url is allowed", mutate: func(g *Grant) { g.URL = "" }},
		{name: "missing id", mutate: func(g *Grant) { g.ID = "" }, wantErr: "id is required"},
		{name: "missing title", mutate: func(g *Grant) { g.Title = "" }, wantErr: "no title"},
		{name: "unknown status", mutate: func(g *Grant) { g.Status = "pending" }, wantErr: "unknown status"},
		{
			name:    "state location without value",
			mutate:  func(g *Grant) { g.Locations = []Location{{Type: taxonomy.LocationState}} },
			wantErr: "without a value",
		},
		{
			name:    "unknown location type",
			mutate:  func(g *Grant) { g.Locations = []Location{{Type: "county", Value: "Kings"}} },
			wantErr: "unknown location type",
		},
		{
			name: "inverted amounts",
			mutate: func(g *Grant) {
				g.AmountMin = floatPtr(50_000)
				g.AmountMax = floatPtr(10_000)
			},
			wantErr: "amountMin above amountMax",
		},
		{name: "quality out of range", mutate: func(g *Grant) { g.QualityScore = 120 }, wantErr: "quality score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := valid()
			tt.mutate(&g)
			err := g.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidGrant)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGrantFingerprint(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := Grant{ID: "g-1", UpdatedAt: updated}

	fp := g.Fingerprint()
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, GrantFingerprint("g-1", updated.In(time.FixedZone("EST", -5*3600))))

	g.UpdatedAt = updated.Add(time.Second)
	assert.NotEqual(t, fp, g.Fingerprint())
}

func TestGrantAmountRange(t *testing.T) {
	lo, hi, ok := (&Grant{AmountMin: floatPtr(5_000), AmountMax: floatPtr(20_000)}).AmountRange()
	assert.True(t, ok)
	assert.Equal(t, 5_000.0, lo)
	assert.Equal(t, 20_000.0, hi)

	lo, hi, ok = (&Grant{AmountMax: floatPtr(20_000)}).AmountRange()
	assert.True(t, ok)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 20_000.0, hi)

	_, _, ok = (&Grant{AmountText: "Varies"}).AmountRange()
	assert.False(t, ok)
}

func TestGrantIsNational(t *testing.T) {
	assert.True(t, (&Grant{}).IsNational())
	assert.True(t, (&Grant{Locations: []Location{{Type: taxonomy.LocationState, Value: "TX"}, {Type: taxonomy.LocationNational}}}).IsNational())
	assert.False(t, (&Grant{Locations: []Location{{Type: taxonomy.LocationState, Value: "TX"}}}).IsNational())
}

func TestProfileNormalize(t *testing.T) {
	p := UserProfile{
		UserID:       " u-1 ",
		EntityType:   "501(c)(3)",
		State:        "California",
		IndustryTags: []taxonomy.IndustryTag{"youth", "Agriculture", "youth", "Economic Development"},
		SizeBand:     "Small",
	}
	p.Normalize()

	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, taxonomy.EntityNonprofit, p.EntityType)
	assert.Equal(t, "US", p.Country)
	assert.Equal(t, "CA", p.State)
	assert.Equal(t, []taxonomy.IndustryTag{
		taxonomy.IndustryAgriculture,
		taxonomy.IndustryEconomicDevelopment,
		taxonomy.IndustryYouth,
	}, p.IndustryTags)
	assert.Equal(t, taxonomy.SizeSmall, p.SizeBand)
	assert.Equal(t, 75, p.ConfidenceScore)
	require.NoError(t, p.Validate())
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile UserProfile
		wantErr string
	}{
		{name: "empty profile is allowed", profile: UserProfile{UserID: "u-1"}},
		{name: "unknown entity", profile: UserProfile{EntityType: "wizard"}, wantErr: "unknown entity type"},
		{name: "unknown state", profile: UserProfile{State: "Atlantis"}, wantErr: "unknown state"},
		{name: "unknown industry", profile: UserProfile{IndustryTags: []taxonomy.IndustryTag{"mining"}}, wantErr: "unknown industry tag"},
		{
			name:    "unknown preferred size",
			profile: UserProfile{GrantPreferences: &GrantPreferences{PreferredSize: "huge"}},
			wantErr: "unknown preferred size",
		},
		{name: "negative version", profile: UserProfile{ProfileVersion: -1}, wantErr: "negative profile version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.profile
			p.Normalize()
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidProfile)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProfileSparseAndConfidence(t *testing.T) {
	p := UserProfile{EntityType: taxonomy.EntitySmallBusiness}
	assert.True(t, p.IsSparse())
	assert.Equal(t, 25, p.ComputeConfidenceScore())

	p.IndustryTags = []taxonomy.IndustryTag{taxonomy.IndustryAgriculture}
	p.State = "CA"
	p.SizeBand = taxonomy.SizeSmall
	p.Stage = taxonomy.StageGrowth
	p.AnnualBudget = taxonomy.Budget50KTo250K
	p.GrantPreferences = &GrantPreferences{PreferredSize: taxonomy.GrantSizeSmall}
	assert.False(t, p.IsSparse())
	assert.Equal(t, 100, p.ComputeConfidenceScore())
	assert.True(t, p.HasIndustry(taxonomy.IndustryAgriculture))
	assert.False(t, p.HasIndustry(taxonomy.IndustryHealth))
}

func TestMatchCacheEntryExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	e := MatchCacheEntry{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, e.Expired(now))
	assert.True(t, e.Expired(now.Add(time.Hour)))
	assert.False(t, (&MatchCacheEntry{}).Expired(now))
}

func TestQueryTypeValid(t *testing.T) {
	assert.True(t, QueryTypeOpenGrants.Valid())
	assert.True(t, QueryTypeGrantIDsExist.Valid())
	assert.False(t, QueryType("franchise_details").Valid())
}
