// Package regression runs literal ranking assertions against the discovery
// pipeline's debug trace. Suites are YAML documents holding a grant pool, a
// reference clock and a list of scenarios.
package regression

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"grant-workers/internal/matching/eligibility"
	"grant-workers/internal/matching/pipeline"
	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

var ErrInvalidSuite = errors.New("INVALID_REGRESSION_SUITE")

//go:embed scenarios/default.yaml
var defaultSuite []byte

type AssertionKind string

const (
	AssertInTop      AssertionKind = "in_top"
	AssertNotInTop   AssertionKind = "not_in_top"
	AssertEligible   AssertionKind = "eligible"
	AssertIneligible AssertionKind = "ineligible"
)

type Suite struct {
	Now       time.Time   `yaml:"now"`
	Grants    []GrantSpec `yaml:"grants"`
	Scenarios []Scenario  `yaml:"scenarios"`
	pool      []*models.Grant
}

type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Profile     ProfileSpec `yaml:"profile"`
	Options     OptionsSpec `yaml:"options"`
	Assertions  []Assertion `yaml:"assertions"`
}

// Assertion targets one grant by ID or exact title. N bounds the rank for
// in_top and not_in_top; Filter optionally names the filter an ineligible
// verdict must have failed.
type Assertion struct {
	Kind    AssertionKind          `yaml:"kind"`
	GrantID string                 `yaml:"grantId"`
	Title   string                 `yaml:"title"`
	N       int                    `yaml:"n"`
	Filter  eligibility.FilterName `yaml:"filter"`
}

func (a Assertion) target() string {
	if a.GrantID != "" {
		return a.GrantID
	}
	return fmt.Sprintf("%q", a.Title)
}

func (a Assertion) String() string {
	switch a.Kind {
	case AssertInTop, AssertNotInTop:
		return fmt.Sprintf("%s %s %d", a.target(), a.Kind, a.N)
	case AssertIneligible:
		if a.Filter != "" {
			return fmt.Sprintf("%s ineligible by %s", a.target(), a.Filter)
		}
	}
	return fmt.Sprintf("%s %s", a.target(), a.Kind)
}

type ProfileSpec struct {
	UserID       string   `yaml:"userId"`
	EntityType   string   `yaml:"entityType"`
	State        string   `yaml:"state"`
	IndustryTags []string `yaml:"industryTags"`
	SizeBand     string   `yaml:"sizeBand"`
	Stage        string   `yaml:"stage"`
	AnnualBudget string   `yaml:"annualBudget"`
	Preferences  *struct {
		PreferredSize string `yaml:"preferredSize"`
		Timeline      string `yaml:"timeline"`
		Complexity    string `yaml:"complexity"`
	} `yaml:"preferences"`
}

func (p ProfileSpec) toProfile() *models.UserProfile {
	profile := &models.UserProfile{
		UserID:       p.UserID,
		EntityType:   taxonomy.EntityType(p.EntityType),
		State:        p.State,
		SizeBand:     taxonomy.SizeBand(p.SizeBand),
		Stage:        taxonomy.Stage(p.Stage),
		AnnualBudget: taxonomy.BudgetBand(p.AnnualBudget),
	}
	for _, t := range p.IndustryTags {
		profile.IndustryTags = append(profile.IndustryTags, taxonomy.IndustryTag(t))
	}
	if p.Preferences != nil {
		profile.GrantPreferences = &models.GrantPreferences{
			PreferredSize: taxonomy.GrantSize(p.Preferences.PreferredSize),
			Timeline:      taxonomy.Timeline(p.Preferences.Timeline),
			Complexity:    taxonomy.Complexity(p.Preferences.Complexity),
		}
	}
	return profile
}

type OptionsSpec struct {
	Limit    int    `yaml:"limit"`
	MinScore int    `yaml:"minScore"`
	SortBy   string `yaml:"sortBy"`
}

func (o OptionsSpec) toOptions() pipeline.Options {
	return pipeline.Options{
		Limit:        o.Limit,
		MinScore:     o.MinScore,
		SortBy:       pipeline.SortBy(o.SortBy),
		IncludeDebug: true,
	}
}

// GrantSpec is the fixture form of a grant. Locations use the free-text form
// accepted by models.ParseLocation; DeadlineDays is relative to Suite.Now
// and a missing value means a rolling deadline.
type GrantSpec struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	Sponsor      string   `yaml:"sponsor"`
	Summary      string   `yaml:"summary"`
	URL          string   `yaml:"url"`
	Status       string   `yaml:"status"`
	Categories   []string `yaml:"categories"`
	PurposeTags  []string `yaml:"purposeTags"`
	Eligibility  []string `yaml:"eligibility"`
	Locations    []string `yaml:"locations"`
	AmountMin    *float64 `yaml:"amountMin"`
	AmountMax    *float64 `yaml:"amountMax"`
	DeadlineDays *int     `yaml:"deadlineDays"`
	QualityScore int      `yaml:"qualityScore"`
}

func (g GrantSpec) toGrant(now time.Time) *models.Grant {
	grant := &models.Grant{
		ID:           g.ID,
		Title:        g.Title,
		Sponsor:      g.Sponsor,
		Summary:      g.Summary,
		URL:          g.URL,
		Status:       taxonomy.GrantStatus(g.Status),
		Categories:   g.Categories,
		PurposeTags:  g.PurposeTags,
		Eligibility:  models.GrantEligibility{Tags: g.Eligibility},
		AmountMin:    g.AmountMin,
		AmountMax:    g.AmountMax,
		QualityScore: g.QualityScore,
		CreatedAt:    now.AddDate(0, -1, 0),
		UpdatedAt:    now.AddDate(0, 0, -1),
	}
	if grant.Status == "" {
		grant.Status = taxonomy.StatusOpen
	}
	for _, loc := range g.Locations {
		grant.Locations = append(grant.Locations, models.ParseLocation(loc))
	}
	if g.DeadlineDays != nil {
		d := now.AddDate(0, 0, *g.DeadlineDays)
		grant.DeadlineDate = &d
	}
	return grant
}

// Pool returns the grants the scenarios run against: either the fixture
// grants or the pool set with WithPool.
func (s *Suite) Pool() []*models.Grant {
	if s.pool != nil {
		return s.pool
	}
	pool := make([]*models.Grant, 0, len(s.Grants))
	for _, g := range s.Grants {
		pool = append(pool, g.toGrant(s.Now))
	}
	return pool
}

// WithPool replaces the fixture grants, e.g. with an exported production pool.
func (s *Suite) WithPool(grants []*models.Grant) *Suite {
	s.pool = grants
	return s
}

func Parse(r io.Reader) (*Suite, error) {
	var suite Suite
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuite, err)
	}
	if err := suite.validate(); err != nil {
		return nil, err
	}
	return &suite, nil
}

func LoadFile(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// DefaultSuite returns the built-in scenarios.
func DefaultSuite() *Suite {
	suite, err := Parse(strings.NewReader(string(defaultSuite)))
	if err != nil {
		panic(fmt.Sprintf("built-in regression suite: %v", err))
	}
	return suite
}

func (s *Suite) validate() error {
	if s.Now.IsZero() {
		s.Now = time.Now().UTC()
	}
	if len(s.Scenarios) == 0 {
		return fmt.Errorf("%w: no scenarios", ErrInvalidSuite)
	}
	names := make(map[string]bool, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		if sc.Name == "" {
			return fmt.Errorf("%w: scenario without a name", ErrInvalidSuite)
		}
		if names[sc.Name] {
			return fmt.Errorf("%w: duplicate scenario %q", ErrInvalidSuite, sc.Name)
		}
		names[sc.Name] = true
		for _, a := range sc.Assertions {
			if a.GrantID == "" && a.Title == "" {
				return fmt.Errorf("%w: scenario %s: assertion needs grantId or title", ErrInvalidSuite, sc.Name)
			}
			switch a.Kind {
			case AssertInTop, AssertNotInTop:
				if a.N <= 0 {
					return fmt.Errorf("%w: scenario %s: %s needs n > 0", ErrInvalidSuite, sc.Name, a.Kind)
				}
			case AssertEligible, AssertIneligible:
			default:
				return fmt.Errorf("%w: scenario %s: unknown assertion kind %q", ErrInvalidSuite, sc.Name, a.Kind)
			}
		}
	}
	return nil
}
