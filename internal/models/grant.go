package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"grant-workers/internal/matching/taxonomy"
)

var ErrInvalidGrant = errors.New("INVALID_GRANT")

type Location struct {
	Type  taxonomy.LocationType `json:"type"`
	Value string                `json:"value,omitempty"`
}

type GrantEligibility struct {
	Tags    []string `json:"tags"`
	RawText string   `json:"rawText,omitempty"`
}

// ParseLocation reads a free-text location: "national", "US" and similar mean
// nationwide, a state name or code means that state and anything else is a
// region.
func ParseLocation(s string) Location {
	s = strings.TrimSpace(s)
	if taxonomy.NormalizeCountry(s) == taxonomy.DefaultCountry {
		return Location{Type: taxonomy.LocationNational}
	}
	if code, ok := taxonomy.NormalizeState(s); ok {
		return Location{Type: taxonomy.LocationState, Value: code}
	}
	return Location{Type: taxonomy.LocationRegion, Value: s}
}

// Grant is a funding opportunity as the matching engines see it. Fields that
// are stored as JSON text upstream are decoded before a Grant is built.
type Grant struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Sponsor      string               `json:"sponsor"`
	Summary      string               `json:"summary,omitempty"`
	Description  string               `json:"description,omitempty"`
	Categories   []string             `json:"categories"`
	Eligibility  GrantEligibility     `json:"eligibility"`
	Locations    []Location           `json:"locations"`
	AmountMin    *float64             `json:"amountMin,omitempty"`
	AmountMax    *float64             `json:"amountMax,omitempty"`
	AmountText   string               `json:"amountText,omitempty"`
	FundingType  string               `json:"fundingType,omitempty"`
	PurposeTags  []string             `json:"purposeTags,omitempty"`
	DeadlineDate *time.Time           `json:"deadlineDate,omitempty"`
	Status       taxonomy.GrantStatus `json:"status"`
	QualityScore int                  `json:"qualityScore"`
	URL          string               `json:"url"`
	CreatedAt    time.Time            `json:"createdAt,omitempty"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// Normalize cleans up free-text fields in place. It never fails; Validate
// reports what Normalize could not repair.
func (g *Grant) Normalize() {
	g.ID = strings.TrimSpace(g.ID)
	g.Title = strings.TrimSpace(g.Title)
	g.Sponsor = strings.TrimSpace(g.Sponsor)
	g.Summary = strings.TrimSpace(g.Summary)
	g.URL = strings.TrimSpace(g.URL)
	g.Status = taxonomy.GrantStatus(strings.ToLower(strings.TrimSpace(string(g.Status))))
	g.Categories = dedupeFold(g.Categories)
	g.PurposeTags = dedupeFold(g.PurposeTags)
	g.Eligibility.Tags = dedupeFold(g.Eligibility.Tags)
	g.Eligibility.RawText = strings.TrimSpace(g.Eligibility.RawText)

	locs := make([]Location, 0, len(g.Locations))
	seen := make(map[Location]bool)
	for _, loc := range g.Locations {
		loc.Type = taxonomy.LocationType(strings.ToLower(strings.TrimSpace(string(loc.Type))))
		loc.Value = strings.TrimSpace(loc.Value)
		switch loc.Type {
		case taxonomy.LocationState:
			if code, ok := taxonomy.NormalizeState(loc.Value); ok {
				loc.Value = code
			}
		case taxonomy.LocationRegion:
			loc.Value = taxonomy.NormalizeText(loc.Value)
		case taxonomy.LocationNational:
			loc.Value = taxonomy.NormalizeCountry(loc.Value)
		}
		if seen[loc] {
			continue
		}
		seen[loc] = true
		locs = append(locs, loc)
	}
	g.Locations = locs

	if g.QualityScore <= 0 {
		g.QualityScore = taxonomy.DefaultQualityScore
	}
}

// Validate rejects grants the engines cannot reason about. A missing URL is
// not a validation failure; the eligibility engine gates on it.
func (g *Grant) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidGrant)
	}
	if g.Title == "" {
		return fmt.Errorf("%w: grant %s has no title", ErrInvalidGrant, g.ID)
	}
	if !g.Status.Valid() {
		return fmt.Errorf("%w: grant %s has unknown status %q", ErrInvalidGrant, g.ID, g.Status)
	}
	for _, loc := range g.Locations {
		if !loc.Type.Valid() {
			return fmt.Errorf("%w: grant %s has unknown location type %q", ErrInvalidGrant, g.ID, loc.Type)
		}
		if loc.Type != taxonomy.LocationNational && loc.Value == "" {
			return fmt.Errorf("%w: grant %s has a %s location without a value", ErrInvalidGrant, g.ID, loc.Type)
		}
	}
	if g.AmountMin != nil && g.AmountMax != nil && *g.AmountMin > *g.AmountMax {
		return fmt.Errorf("%w: grant %s has amountMin above amountMax", ErrInvalidGrant, g.ID)
	}
	if g.QualityScore > 100 {
		return fmt.Errorf("%w: grant %s has quality score %d", ErrInvalidGrant, g.ID, g.QualityScore)
	}
	return nil
}

// Fingerprint identifies this revision of the grant for cache snapshots.
func (g *Grant) Fingerprint() string {
	return GrantFingerprint(g.ID, g.UpdatedAt)
}

func GrantFingerprint(id string, updatedAt time.Time) string {
	sum := sha256.Sum256([]byte(id + "|" + updatedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])[:16]
}

// AmountRange returns the stated award range. A single bound is used for
// both ends; ok is false when no amount is stated.
func (g *Grant) AmountRange() (lo, hi float64, ok bool) {
	switch {
	case g.AmountMin != nil && g.AmountMax != nil:
		return *g.AmountMin, *g.AmountMax, true
	case g.AmountMax != nil:
		return 0, *g.AmountMax, true
	case g.AmountMin != nil:
		return *g.AmountMin, *g.AmountMin, true
	}
	return 0, 0, false
}

// IsNational reports whether the grant is open nationwide, either explicitly
// or because it lists no locations.
func (g *Grant) IsNational() bool {
	if len(g.Locations) == 0 {
		return taxonomy.DefaultScopeWhenUnspecified == taxonomy.ScopeNational
	}
	for _, loc := range g.Locations {
		if loc.Type == taxonomy.LocationNational {
			return true
		}
	}
	return false
}

// TopicText is the normalized text searched for industry keywords.
func (g *Grant) TopicText() string {
	parts := []string{g.Title, g.Summary}
	parts = append(parts, g.Categories...)
	parts = append(parts, g.PurposeTags...)
	parts = append(parts, g.Eligibility.Tags...)
	return taxonomy.NormalizeText(strings.Join(parts, " | "))
}

// LabelText covers only the curated labels of the grant.
func (g *Grant) LabelText() string {
	parts := append([]string{}, g.Categories...)
	parts = append(parts, g.PurposeTags...)
	return taxonomy.NormalizeText(strings.Join(parts, " | "))
}

func dedupeFold(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
