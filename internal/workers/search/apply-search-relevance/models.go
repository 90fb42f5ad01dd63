package applysearchrelevance

import (
	"grant-workers/internal/matching/relevance"
	"grant-workers/internal/models"
)

// Input filters search hits for display. Profile is optional for anonymous
// searches.
type Input struct {
	SearchTerm string              `json:"searchTerm"`
	Profile    *models.UserProfile `json:"profile,omitempty"`
	Grants     []*models.Grant     `json:"grants"`
	Limit      int                 `json:"limit,omitempty"`
}

type Output struct {
	Results  []relevance.Ranked `json:"results"`
	Count    int                `json:"count"`
	Stats    relevance.Stats    `json:"stats"`
	Filtered int                `json:"filtered"`
}
