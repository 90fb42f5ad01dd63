package checkgranteligibility

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/matching/eligibility"
	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func testGrant(id string, mutate func(g *models.Grant)) *models.Grant {
	g := &models.Grant{
		ID:          id,
		Title:       "Grant " + id,
		Categories:  []string{"Agriculture"},
		Eligibility: models.GrantEligibility{Tags: []string{"small_business"}},
		Locations:   []models.Location{{Type: taxonomy.LocationNational}},
		Status:      taxonomy.StatusOpen,
		URL:         "https://grants.example.org/" + id,
	}
	if mutate != nil {
		mutate(g)
	}
	return g
}

func testProfile() *models.UserProfile {
	return &models.UserProfile{
		UserID:       "u-1",
		EntityType:   "Small Business",
		State:        "California",
		IndustryTags: []taxonomy.IndustryTag{taxonomy.IndustryAgriculture},
	}
}

func verdictIDs(list []eligibility.Verdict) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, v.Grant.ID)
	}
	return out
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name           string
		grants         []*models.Grant
		wantEligible   []string
		wantIneligible []string
		wantMalformed  []string
	}{
		{
			name: "partitions in input order",
			grants: []*models.Grant{
				testGrant("g-1", nil),
				testGrant("g-closed", func(g *models.Grant) { g.Status = taxonomy.StatusClosed }),
				testGrant("g-2", func(g *models.Grant) {
					g.Locations = []models.Location{{Type: taxonomy.LocationState, Value: "CA"}}
				}),
				testGrant("g-tx", func(g *models.Grant) {
					g.Locations = []models.Location{{Type: taxonomy.LocationState, Value: "TX"}}
				}),
			},
			wantEligible:   []string{"g-1", "g-2"},
			wantIneligible: []string{"g-closed", "g-tx"},
		},
		{
			name: "skips malformed and nil grants",
			grants: []*models.Grant{
				nil,
				testGrant("g-broken", func(g *models.Grant) { g.Title = " " }),
				testGrant("g-1", nil),
			},
			wantEligible:   []string{"g-1"},
			wantIneligible: []string{},
			wantMalformed:  []string{"g-broken"},
		},
		{
			name:           "empty pool",
			grants:         nil,
			wantEligible:   []string{},
			wantIneligible: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), createTestLogger(t))
			output, err := h.Execute(context.Background(), &Input{Profile: testProfile(), Grants: tt.grants})
			require.NoError(t, err)

			assert.Equal(t, tt.wantEligible, verdictIDs(output.Eligible))
			assert.Equal(t, tt.wantIneligible, verdictIDs(output.Ineligible))
			assert.Equal(t, tt.wantMalformed, output.Malformed)
			assert.Equal(t, len(tt.wantEligible), output.EligibleCount)
			assert.Equal(t, len(tt.wantIneligible), output.IneligibleCount)
		})
	}
}

func TestHandler_Execute_VerdictDetails(t *testing.T) {
	h := NewHandler(createTestConfig(), createTestLogger(t))
	output, err := h.Execute(context.Background(), &Input{
		Profile: testProfile(),
		Grants: []*models.Grant{
			testGrant("g-tx", func(g *models.Grant) {
				g.Locations = []models.Location{{Type: taxonomy.LocationState, Value: "TX"}}
			}),
		},
	})
	require.NoError(t, err)
	require.Len(t, output.Ineligible, 1)

	result := output.Ineligible[0].Result
	assert.False(t, result.IsEligible)
	assert.Equal(t, eligibility.AppliesNo, result.AppliesToUser)
	assert.Contains(t, result.FailedFilters, eligibility.FilterGeography)
	assert.NotEmpty(t, result.PrimaryReason)
}

func TestHandler_Execute_DoesNotMutateInput(t *testing.T) {
	h := NewHandler(createTestConfig(), createTestLogger(t))
	profile := testProfile()
	g := testGrant("g-1", func(g *models.Grant) { g.Status = "OPEN " })

	_, err := h.Execute(context.Background(), &Input{Profile: profile, Grants: []*models.Grant{g}})
	require.NoError(t, err)

	assert.Equal(t, taxonomy.EntityType("Small Business"), profile.EntityType)
	assert.Equal(t, "California", profile.State)
	assert.Equal(t, taxonomy.GrantStatus("OPEN "), g.Status)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   *Input
		wantErr error
	}{
		{name: "nil input", input: nil, wantErr: ErrInvalidInput},
		{name: "missing profile", input: &Input{}, wantErr: ErrInvalidInput},
		{
			name:    "unknown entity type",
			input:   &Input{Profile: &models.UserProfile{UserID: "u-1", EntityType: "qwerty"}},
			wantErr: ErrInvalidProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), createTestLogger(t))
			_, err := h.Execute(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
