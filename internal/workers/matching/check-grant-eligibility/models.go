package checkgranteligibility

import (
	"grant-workers/internal/matching/eligibility"
	"grant-workers/internal/models"
)

type Input struct {
	Profile *models.UserProfile `json:"profile"`
	Grants  []*models.Grant     `json:"grants"`
}

type Output struct {
	Eligible        []eligibility.Verdict `json:"eligible"`
	Ineligible      []eligibility.Verdict `json:"ineligible"`
	EligibleCount   int                   `json:"eligibleCount"`
	IneligibleCount int                   `json:"ineligibleCount"`
	Malformed       []string              `json:"malformed,omitempty"`
}
