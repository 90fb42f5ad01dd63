package searchgrants

import (
	"grant-workers/internal/matching/relevance"
	"grant-workers/internal/models"
)

type Input struct {
	SearchTerm string              `json:"searchTerm"`
	Profile    *models.UserProfile `json:"profile,omitempty"`
	Limit      int                 `json:"limit,omitempty"`
}

type Output struct {
	Results   []relevance.Ranked `json:"results"`
	Count     int                `json:"count"`
	TotalHits int64              `json:"totalHits"`
	Fetched   int                `json:"fetched"`
	Skipped   int                `json:"skipped"`
	Stats     relevance.Stats    `json:"stats"`
	Took      int64              `json:"took"`
}
