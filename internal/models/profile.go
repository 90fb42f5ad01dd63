package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"grant-workers/internal/matching/taxonomy"
)

var ErrInvalidProfile = errors.New("INVALID_PROFILE")

type GrantPreferences struct {
	PreferredSize taxonomy.GrantSize  `json:"preferredSize,omitempty"`
	Timeline      taxonomy.Timeline   `json:"timeline,omitempty"`
	Complexity    taxonomy.Complexity `json:"complexity,omitempty"`
}

type UserProfile struct {
	UserID           string                 `json:"userId"`
	EntityType       taxonomy.EntityType    `json:"entityType,omitempty"`
	Country          string                 `json:"country,omitempty"`
	State            string                 `json:"state,omitempty"`
	IndustryTags     []taxonomy.IndustryTag `json:"industryTags"`
	SizeBand         taxonomy.SizeBand      `json:"sizeBand,omitempty"`
	Stage            taxonomy.Stage         `json:"stage,omitempty"`
	AnnualBudget     taxonomy.BudgetBand    `json:"annualBudget,omitempty"`
	GrantPreferences *GrantPreferences      `json:"grantPreferences,omitempty"`
	ProfileVersion   int64                  `json:"profileVersion"`
	ConfidenceScore  int                    `json:"confidenceScore,omitempty"`
}

// Normalize maps free-text values onto the taxonomy where it can. Values it
// cannot map are left as given so that Validate can report them.
func (p *UserProfile) Normalize() {
	p.UserID = strings.TrimSpace(p.UserID)
	if raw := strings.TrimSpace(string(p.EntityType)); raw != "" {
		if e, ok := taxonomy.ParseEntityType(raw); ok {
			p.EntityType = e
		}
	}
	p.Country = taxonomy.NormalizeCountry(p.Country)
	if p.Country == "" {
		p.Country = taxonomy.DefaultCountry
	}
	if code, ok := taxonomy.NormalizeState(p.State); ok {
		p.State = code
	} else {
		p.State = strings.TrimSpace(p.State)
	}

	seen := make(map[taxonomy.IndustryTag]bool, len(p.IndustryTags))
	tags := make([]taxonomy.IndustryTag, 0, len(p.IndustryTags))
	for _, t := range p.IndustryTags {
		if strings.TrimSpace(string(t)) == "" {
			continue
		}
		if parsed, ok := taxonomy.ParseIndustryTag(string(t)); ok {
			t = parsed
		}
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	p.IndustryTags = tags

	p.SizeBand = taxonomy.SizeBand(strings.ToLower(strings.TrimSpace(string(p.SizeBand))))
	p.Stage = taxonomy.Stage(strings.ToLower(strings.TrimSpace(string(p.Stage))))
	p.AnnualBudget = taxonomy.BudgetBand(strings.ToLower(strings.TrimSpace(string(p.AnnualBudget))))
	p.ConfidenceScore = p.ComputeConfidenceScore()
}

// Validate rejects enum values outside the taxonomy. Missing values are
// allowed: an incomplete profile lowers confidence rather than failing.
func (p *UserProfile) Validate() error {
	if p.EntityType != "" && !p.EntityType.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidProfile, p.EntityType)
	}
	if p.State != "" {
		if _, ok := taxonomy.NormalizeState(p.State); !ok {
			return fmt.Errorf("%w: unknown state %q", ErrInvalidProfile, p.State)
		}
	}
	for _, t := range p.IndustryTags {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown industry tag %q", ErrInvalidProfile, t)
		}
	}
	if p.SizeBand != "" && !p.SizeBand.Valid() {
		return fmt.Errorf("%w: unknown size band %q", ErrInvalidProfile, p.SizeBand)
	}
	if p.Stage != "" && !p.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidProfile, p.Stage)
	}
	if p.AnnualBudget != "" && !p.AnnualBudget.Valid() {
		return fmt.Errorf("%w: unknown annual budget %q", ErrInvalidProfile, p.AnnualBudget)
	}
	if prefs := p.GrantPreferences; prefs != nil {
		if prefs.PreferredSize != "" && !prefs.PreferredSize.Valid() {
			return fmt.Errorf("%w: unknown preferred size %q", ErrInvalidProfile, prefs.PreferredSize)
		}
		if prefs.Timeline != "" && !prefs.Timeline.Valid() {
			return fmt.Errorf("%w: unknown timeline %q", ErrInvalidProfile, prefs.Timeline)
		}
		if prefs.Complexity != "" && !prefs.Complexity.Valid() {
			return fmt.Errorf("%w: unknown complexity %q", ErrInvalidProfile, prefs.Complexity)
		}
	}
	if p.ProfileVersion < 0 {
		return fmt.Errorf("%w: negative profile version", ErrInvalidProfile)
	}
	return nil
}

// IsSparse reports whether the profile lacks the fields eligibility depends on.
func (p *UserProfile) IsSparse() bool {
	return p.EntityType == "" || len(p.IndustryTags) == 0
}

// HasIndustry reports whether tag is among the profile's industry tags.
func (p *UserProfile) HasIndustry(tag taxonomy.IndustryTag) bool {
	for _, t := range p.IndustryTags {
		if t == tag {
			return true
		}
	}
	return false
}

// ComputeConfidenceScore rates profile completeness from 0 to 100.
func (p *UserProfile) ComputeConfidenceScore() int {
	score := 0
	if p.EntityType != "" {
		score += 25
	}
	if len(p.IndustryTags) > 0 {
		score += 25
	}
	if p.State != "" {
		score += 15
	}
	if p.SizeBand != "" {
		score += 10
	}
	if p.Stage != "" {
		score += 10
	}
	if p.AnnualBudget != "" {
		score += 10
	}
	if p.GrantPreferences != nil && (p.GrantPreferences.PreferredSize != "" || p.GrantPreferences.Timeline != "") {
		score += 5
	}
	return score
}
