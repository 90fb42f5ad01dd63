package eligibility

import (
	"fmt"
	"strings"

	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

type FilterName string

const (
	FilterURLExists         FilterName = "URL_EXISTS"
	FilterGrantStatus       FilterName = "GRANT_STATUS"
	FilterEntityType        FilterName = "ENTITY_TYPE"
	FilterGeography         FilterName = "GEOGRAPHY"
	FilterIndustryRelevance FilterName = "INDUSTRY_RELEVANCE"
)

type Outcome string

const (
	OutcomePass          Outcome = "pass"
	OutcomeFail          Outcome = "fail"
	OutcomeNotApplicable Outcome = "not_applicable"
)

// FilterResult is the outcome of one filter for one (profile, grant) pair.
type FilterResult struct {
	Name       FilterName `json:"name"`
	Outcome    Outcome    `json:"outcome"`
	Reason     string     `json:"reason,omitempty"`
	Warning    string     `json:"warning,omitempty"`
	Suggestion string     `json:"suggestion,omitempty"`
	Matched    []string   `json:"matched,omitempty"`
}

type filter struct {
	name FilterName
	// hard filters decide the verdict; the rest only shape confidence.
	hard  bool
	check func(p *models.UserProfile, g *models.Grant) FilterResult
}

// filters run in this order on every evaluation.
var filters = []filter{
	{name: FilterURLExists, hard: true, check: checkURL},
	{name: FilterGrantStatus, hard: true, check: checkStatus},
	{name: FilterEntityType, hard: true, check: checkEntity},
	{name: FilterGeography, hard: true, check: checkGeography},
	{name: FilterIndustryRelevance, hard: false, check: checkIndustry},
}

// FilterOrder returns the filter names in evaluation order.
func FilterOrder() []FilterName {
	out := make([]FilterName, len(filters))
	for i, f := range filters {
		out[i] = f.name
	}
	return out
}

func pass(reason string) FilterResult {
	return FilterResult{Outcome: OutcomePass, Reason: reason}
}

func fail(reason, suggestion string) FilterResult {
	return FilterResult{Outcome: OutcomeFail, Reason: reason, Suggestion: suggestion}
}

func checkURL(_ *models.UserProfile, g *models.Grant) FilterResult {
	if strings.TrimSpace(g.URL) == "" {
		return fail("Listing has no application link", "")
	}
	return pass("Application link available")
}

func checkStatus(_ *models.UserProfile, g *models.Grant) FilterResult {
	if g.Status != taxonomy.StatusOpen {
		status := string(g.Status)
		if status == "" {
			status = "unknown"
		}
		return fail(fmt.Sprintf("Grant is not accepting applications (status: %s)", status), "")
	}
	return pass("Accepting applications")
}

func checkEntity(p *models.UserProfile, g *models.Grant) FilterResult {
	if p.EntityType == "" {
		return FilterResult{
			Outcome:    OutcomeNotApplicable,
			Reason:     "Organization type not set",
			Suggestion: "Add your organization type to your profile",
		}
	}

	r := taxonomy.ResolveEntityRestriction(g.Eligibility.Tags)
	if len(g.Eligibility.Tags) == 0 || r.Unrestricted {
		return pass("Open to all applicant types")
	}
	if !r.Restricted() {
		res := pass("Eligibility tags could not be interpreted")
		if taxonomy.PassUnrecognizedEntityTags {
			res.Warning = "Eligibility tags could not be interpreted; check the listing's requirements"
			return res
		}
		return fail(res.Reason, "")
	}

	names := make([]string, 0, len(r.Allowed))
	for _, allowed := range r.Allowed {
		if p.EntityType.Satisfies(allowed) {
			res := pass("Open to " + allowed.DisplayName())
			res.Matched = []string{string(allowed)}
			return res
		}
		names = append(names, allowed.DisplayName())
	}
	return fail(
		fmt.Sprintf("Limited to %s; you are registered as %s", strings.Join(names, ", "), p.EntityType.DisplayName()),
		"",
	)
}

func checkGeography(p *models.UserProfile, g *models.Grant) FilterResult {
	if len(g.Locations) == 0 {
		if taxonomy.DefaultScopeWhenUnspecified == taxonomy.ScopeNational {
			return pass("No location restriction")
		}
		return fail("Listing does not state where it is available", "")
	}

	var local []string
	for _, loc := range g.Locations {
		switch loc.Type {
		case taxonomy.LocationNational:
			return pass("Available nationwide")
		case taxonomy.LocationState:
			if p.State != "" && loc.Value == p.State {
				res := pass("Available in " + taxonomy.StateName(p.State))
				res.Matched = []string{loc.Value}
				return res
			}
			local = append(local, loc.Value)
		case taxonomy.LocationRegion:
			if p.State != "" && taxonomy.RegionContains(loc.Value, p.State) {
				res := pass(fmt.Sprintf("%s is within the %s region", taxonomy.StateName(p.State), loc.Value))
				res.Matched = []string{loc.Value}
				return res
			}
			local = append(local, loc.Value)
		}
	}

	if p.State == "" && taxonomy.RequireStateForLocalGrants {
		return fail(
			"Limited to "+strings.Join(local, ", "),
			"Add your state to your profile to match location-restricted grants",
		)
	}
	return fail(fmt.Sprintf("Only available in %s", strings.Join(local, ", ")), "")
}

func checkIndustry(p *models.UserProfile, g *models.Grant) FilterResult {
	if len(p.IndustryTags) == 0 {
		res := pass("No focus areas to compare")
		if !taxonomy.AutoPassEmptyIndustryTags {
			res.Outcome = OutcomeFail
		}
		res.Suggestion = "Add focus areas to your profile for more relevant matches"
		return res
	}

	text := g.TopicText()
	var matched, labels []string
	for _, tag := range p.IndustryTags {
		hits := taxonomy.ContainsAny(text, append([]string{tag.Label()}, tag.Keywords()...))
		if len(hits) == 0 {
			continue
		}
		labels = append(labels, tag.DisplayName())
		for _, h := range hits {
			matched = append(matched, string(tag)+":"+h)
		}
	}
	if len(matched) == 0 {
		res := fail("No overlap with your focus areas", "")
		res.Warning = "This grant may not match your focus areas"
		return res
	}
	res := pass("Relevant to " + strings.Join(labels, ", "))
	res.Matched = matched
	return res
}
