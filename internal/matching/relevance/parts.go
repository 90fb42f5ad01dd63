package relevance

import (
	"strings"

	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

type part struct {
	fraction float64
	reason   string
	warning  string
	blocked  string
}

// searchPart applies the topical gate. A term naming a known category must
// hit that category's allow-list; any other term must appear literally in
// the title, sponsor or categories.
func (e *Engine) searchPart(g *models.Grant, term string) (part, string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return part{fraction: 1}, ""
	}

	if cat, ok := taxonomy.LookupSearchCategory(term); ok {
		title := taxonomy.NormalizeText(g.Title)
		rest := taxonomy.NormalizeText(strings.Join(append([]string{g.Sponsor, g.Summary}, g.Categories...), " | "))
		if hits := taxonomy.ContainsAny(title, cat.Keywords); len(hits) > 0 {
			return part{fraction: 1, reason: "Title matches " + cat.Name}, ""
		}
		if hits := taxonomy.ContainsAny(rest, cat.Keywords); len(hits) > 0 {
			return part{fraction: 0.75, reason: "Related to " + cat.Name}, ""
		}
		return part{}, BlockedOffTopic
	}

	needle := strings.ToLower(term)
	if strings.Contains(strings.ToLower(g.Title), needle) {
		return part{fraction: 1, reason: "Title mentions \"" + term + "\""}, ""
	}
	if strings.Contains(strings.ToLower(g.Sponsor), needle) {
		return part{fraction: 0.7, reason: "Sponsor matches \"" + term + "\""}, ""
	}
	for _, c := range g.Categories {
		if strings.Contains(strings.ToLower(c), needle) {
			return part{fraction: 0.7, reason: "Category matches \"" + term + "\""}, ""
		}
	}
	return part{}, BlockedNoTermMatch
}

func (e *Engine) entityPart(g *models.Grant, p *models.UserProfile) part {
	if p == nil || p.EntityType == "" {
		return part{fraction: 0.5}
	}
	r := taxonomy.ResolveEntityRestriction(g.Eligibility.Tags)
	if !r.Restricted() {
		return part{fraction: 0.8}
	}
	best := 0.0
	for _, allowed := range r.Allowed {
		if p.EntityType.Satisfies(allowed) {
			return part{fraction: 1, reason: "Open to " + strings.ToLower(allowed.DisplayName()) + " applicants"}
		}
		if w := e.cfg.Adjacency.Weight(p.EntityType, allowed); w > best {
			best = w
		}
	}
	if best > 0 {
		return part{fraction: best, warning: "Check that your organization type qualifies"}
	}
	return part{blocked: BlockedEntity, warning: "Not open to " + strings.ToLower(p.EntityType.DisplayName()) + " applicants"}
}

func (e *Engine) industryPart(g *models.Grant, p *models.UserProfile) part {
	if p == nil || len(p.IndustryTags) == 0 {
		return part{fraction: 0.5}
	}
	text := g.TopicText()
	hits := 0
	var matched []string
	for _, tag := range p.IndustryTags {
		n := len(taxonomy.ContainsAny(text, tag.Keywords()))
		if taxonomy.ContainsKeyword(text, tag.Label()) {
			n++
		}
		if n > 0 {
			matched = append(matched, tag.DisplayName())
			hits += n
		}
	}
	if hits == 0 {
		return part{warning: "Outside your focus areas"}
	}
	// first hit is worth 20 of 35 points, each further hit 5
	fraction := (20 + 5*float64(hits-1)) / 35
	return part{fraction: fraction, reason: "Matches " + strings.Join(matched, ", ")}
}

func (e *Engine) geographyPart(g *models.Grant, p *models.UserProfile) part {
	if len(g.Locations) == 0 || g.IsNational() {
		return part{fraction: 0.7}
	}
	if p == nil || p.State == "" {
		return part{fraction: 0.5, warning: "Limited to specific locations"}
	}
	for _, loc := range g.Locations {
		if loc.Type == taxonomy.LocationState && loc.Value == p.State {
			return part{fraction: 1, reason: "Available in " + taxonomy.StateName(p.State)}
		}
	}
	for _, loc := range g.Locations {
		if loc.Type == taxonomy.LocationRegion && taxonomy.RegionContains(loc.Value, p.State) {
			return part{fraction: 0.8, reason: "Available in your region"}
		}
	}
	return part{blocked: BlockedGeography, warning: "Not available in " + taxonomy.StateName(p.State)}
}
