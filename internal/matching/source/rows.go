package source

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

// grantRow mirrors the grants table. categories, eligibility, locations and
// purpose_tags are JSON text columns.
type grantRow struct {
	id           string
	title        sql.NullString
	sponsor      sql.NullString
	summary      sql.NullString
	description  sql.NullString
	categories   sql.NullString
	eligibility  sql.NullString
	locations    sql.NullString
	amountMin    sql.NullFloat64
	amountMax    sql.NullFloat64
	amountText   sql.NullString
	fundingType  sql.NullString
	purposeTags  sql.NullString
	deadlineDate sql.NullTime
	status       sql.NullString
	qualityScore sql.NullInt64
	url          sql.NullString
	createdAt    sql.NullTime
	updatedAt    sql.NullTime
}

func (r *grantRow) dest() []interface{} {
	return []interface{}{
		&r.id, &r.title, &r.sponsor, &r.summary, &r.description,
		&r.categories, &r.eligibility, &r.locations,
		&r.amountMin, &r.amountMax, &r.amountText, &r.fundingType,
		&r.purposeTags, &r.deadlineDate, &r.status, &r.qualityScore,
		&r.url, &r.createdAt, &r.updatedAt,
	}
}

func (r *grantRow) toGrant() (*models.Grant, error) {
	g := &models.Grant{
		ID:           r.id,
		Title:        r.title.String,
		Sponsor:      r.sponsor.String,
		Summary:      r.summary.String,
		Description:  r.description.String,
		AmountText:   r.amountText.String,
		FundingType:  r.fundingType.String,
		Status:       taxonomy.GrantStatus(r.status.String),
		QualityScore: int(r.qualityScore.Int64),
		URL:          r.url.String,
		CreatedAt:    r.createdAt.Time,
		UpdatedAt:    r.updatedAt.Time,
	}
	if r.amountMin.Valid {
		v := r.amountMin.Float64
		g.AmountMin = &v
	}
	if r.amountMax.Valid {
		v := r.amountMax.Float64
		g.AmountMax = &v
	}
	if r.deadlineDate.Valid {
		t := r.deadlineDate.Time.UTC()
		g.DeadlineDate = &t
	}

	var err error
	if g.Categories, err = DecodeStringList(r.categories.String); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	if g.PurposeTags, err = DecodeStringList(r.purposeTags.String); err != nil {
		return nil, fmt.Errorf("purpose_tags: %w", err)
	}
	if g.Eligibility, err = DecodeEligibility(r.eligibility.String); err != nil {
		return nil, fmt.Errorf("eligibility: %w", err)
	}
	if g.Locations, err = DecodeLocations(r.locations.String); err != nil {
		return nil, fmt.Errorf("locations: %w", err)
	}

	g.Normalize()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

type profileRow struct {
	userID         string
	entityType     sql.NullString
	country        sql.NullString
	state          sql.NullString
	industryTags   sql.NullString
	sizeBand       sql.NullString
	stage          sql.NullString
	annualBudget   sql.NullString
	preferences    sql.NullString
	profileVersion sql.NullInt64
}

func (r *profileRow) dest() []interface{} {
	return []interface{}{
		&r.userID, &r.entityType, &r.country, &r.state, &r.industryTags,
		&r.sizeBand, &r.stage, &r.annualBudget, &r.preferences, &r.profileVersion,
	}
}

func (r *profileRow) toProfile() (*models.UserProfile, error) {
	tags, err := DecodeStringList(r.industryTags.String)
	if err != nil {
		return nil, fmt.Errorf("industry_tags: %w", err)
	}

	p := &models.UserProfile{
		UserID:         r.userID,
		EntityType:     taxonomy.EntityType(r.entityType.String),
		Country:        r.country.String,
		State:          r.state.String,
		SizeBand:       taxonomy.SizeBand(r.sizeBand.String),
		Stage:          taxonomy.Stage(r.stage.String),
		AnnualBudget:   taxonomy.BudgetBand(r.annualBudget.String),
		ProfileVersion: r.profileVersion.Int64,
	}
	for _, t := range tags {
		p.IndustryTags = append(p.IndustryTags, taxonomy.IndustryTag(t))
	}
	if strings.TrimSpace(r.preferences.String) != "" && r.preferences.String != "null" {
		var prefs models.GrantPreferences
		if err := json.Unmarshal([]byte(r.preferences.String), &prefs); err != nil {
			return nil, fmt.Errorf("grant_preferences: %w", err)
		}
		p.GrantPreferences = &prefs
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// DecodeStringList accepts a JSON array of strings, a bare comma separated
// list, or an empty value.
func DecodeStringList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	if !strings.HasPrefix(raw, "[") {
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeEligibility accepts {"tags": [...], "rawText": "..."} or a plain
// array of tags.
func DecodeEligibility(raw string) (models.GrantEligibility, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return models.GrantEligibility{}, nil
	}
	if strings.HasPrefix(raw, "{") {
		var e models.GrantEligibility
		err := json.Unmarshal([]byte(raw), &e)
		return e, err
	}
	tags, err := DecodeStringList(raw)
	return models.GrantEligibility{Tags: tags}, err
}

// DecodeLocations accepts an array of {"type","value"} objects or an array
// of strings, where "national"/"US" means nationwide, a state name or code
// means that state and anything else is treated as a region.
func DecodeLocations(raw string) ([]models.Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "[]" {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}

	locations := make([]models.Location, 0, len(items))
	for _, item := range items {
		var loc models.Location
		if err := json.Unmarshal(item, &loc); err == nil {
			locations = append(locations, loc)
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, fmt.Errorf("unsupported location %s", item)
		}
		locations = append(locations, models.ParseLocation(s))
	}
	return locations, nil
}

// grantDocument is the Elasticsearch representation of a grant.
type grantDocument struct {
	ID           string                  `json:"id"`
	Title        string                  `json:"title"`
	Sponsor      string                  `json:"sponsor"`
	Summary      string                  `json:"summary"`
	Description  string                  `json:"description"`
	Categories   []string                `json:"categories"`
	Eligibility  models.GrantEligibility `json:"eligibility"`
	Locations    json.RawMessage         `json:"locations"`
	AmountMin    *float64                `json:"amount_min"`
	AmountMax    *float64                `json:"amount_max"`
	AmountText   string                  `json:"amount_text"`
	FundingType  string                  `json:"funding_type"`
	PurposeTags  []string                `json:"purpose_tags"`
	DeadlineDate *time.Time              `json:"deadline_date"`
	Status       string                  `json:"status"`
	QualityScore int                     `json:"quality_score"`
	URL          string                  `json:"url"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

func (d *grantDocument) toGrant() (*models.Grant, error) {
	locations, err := DecodeLocations(string(d.Locations))
	if err != nil {
		return nil, fmt.Errorf("locations: %w", err)
	}
	g := &models.Grant{
		ID:           d.ID,
		Title:        d.Title,
		Sponsor:      d.Sponsor,
		Summary:      d.Summary,
		Description:  d.Description,
		Categories:   d.Categories,
		Eligibility:  d.Eligibility,
		Locations:    locations,
		AmountMin:    d.AmountMin,
		AmountMax:    d.AmountMax,
		AmountText:   d.AmountText,
		FundingType:  d.FundingType,
		PurposeTags:  d.PurposeTags,
		DeadlineDate: d.DeadlineDate,
		Status:       taxonomy.GrantStatus(d.Status),
		QualityScore: d.QualityScore,
		URL:          d.URL,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	g.Normalize()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
