package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

// factor is one component score as a fraction of its weight.
type factor struct {
	fraction float64
	reason   string
	warnings []string
}

// Industry points before scaling to the industry weight.
const (
	industryLabelHit   = 20
	industryTitleHit   = 7
	industryKeywordHit = 5
	industryCap        = 50
	industryNeutral    = 15
)

func (e *Engine) entityFactor(p *models.UserProfile, g *models.Grant) factor {
	if p.EntityType == "" {
		return factor{fraction: 0.4}
	}
	r := taxonomy.ResolveEntityRestriction(g.Eligibility.Tags)
	if !r.Restricted() {
		return factor{fraction: 0.75, reason: "Open to all applicant types"}
	}

	best := 0.0
	for _, allowed := range r.Allowed {
		if p.EntityType.Satisfies(allowed) {
			return factor{fraction: 1, reason: fmt.Sprintf("Open to %s applicants", strings.ToLower(allowed.DisplayName()))}
		}
		best = math.Max(best, e.cfg.Adjacency.Weight(p.EntityType, allowed))
	}
	if best > 0 {
		return factor{fraction: best, reason: "Your organization type is closely related to an eligible type"}
	}
	return factor{warnings: []string{"Your organization type may not be eligible"}}
}

func industryFactor(p *models.UserProfile, g *models.Grant) factor {
	if len(p.IndustryTags) == 0 {
		return factor{
			fraction: float64(industryNeutral) / industryCap,
			warnings: []string{"Add focus areas to your profile to improve match accuracy"},
		}
	}

	title := taxonomy.NormalizeText(g.Title)
	labels := g.LabelText()
	body := taxonomy.NormalizeText(strings.Join([]string{g.Summary, g.Description, labels}, " | "))

	points := 0
	var matched []string
	for _, tag := range p.IndustryTags {
		tagPoints := 0
		if taxonomy.ContainsKeyword(labels, tag.Label()) || taxonomy.ContainsKeyword(labels, taxonomy.NormalizeText(tag.DisplayName())) {
			tagPoints += industryLabelHit
		}
		for _, kw := range tag.Keywords() {
			switch {
			case taxonomy.ContainsKeyword(title, kw):
				tagPoints += industryTitleHit
			case taxonomy.ContainsKeyword(body, kw):
				tagPoints += industryKeywordHit
			}
		}
		if tagPoints > 0 {
			matched = append(matched, tag.DisplayName())
		}
		points += tagPoints
	}
	if points > industryCap {
		points = industryCap
	}
	if points == 0 {
		return factor{warnings: []string{"Limited overlap with your focus areas"}}
	}
	return factor{
		fraction: float64(points) / industryCap,
		reason:   "Matches your focus areas: " + strings.Join(matched, ", "),
	}
}

func geographyFactor(p *models.UserProfile, g *models.Grant) factor {
	if len(g.Locations) == 0 {
		return factor{fraction: 0.6, reason: "Available nationwide"}
	}
	best := factor{}
	for _, loc := range g.Locations {
		var f factor
		switch loc.Type {
		case taxonomy.LocationState:
			if p.State != "" && loc.Value == p.State {
				f = factor{fraction: 1, reason: "Available in " + taxonomy.StateName(p.State)}
			}
		case taxonomy.LocationRegion:
			if p.State != "" && taxonomy.RegionContains(loc.Value, p.State) {
				f = factor{fraction: 0.8, reason: "Available in your region"}
			}
		case taxonomy.LocationNational:
			f = factor{fraction: 0.6, reason: "Available nationwide"}
		}
		if f.fraction > best.fraction {
			best = f
		}
	}
	if best.fraction == 0 {
		best.warnings = []string{"Location restrictions may exclude you"}
	}
	return best
}

func budgetFactor(p *models.UserProfile, g *models.Grant) factor {
	var size taxonomy.GrantSize
	if p.GrantPreferences != nil {
		size = p.GrantPreferences.PreferredSize
	}

	lo, hi, ok := g.AmountRange()
	if !ok {
		f := factor{fraction: 0.3, warnings: []string{"This grant has no stated funding amount"}}
		if size == taxonomy.GrantSizeAny {
			f.fraction = 0.5
		}
		return f
	}

	amount := "Funding: " + taxonomy.FormatAmountRange(g.AmountMin, g.AmountMax, g.AmountText)
	var f factor
	switch {
	case size == "" || size == taxonomy.GrantSizeAny:
		f = factor{fraction: 1, reason: amount}
	case size.Range().Overlaps(lo, hi):
		f = factor{fraction: 1, reason: "Award size fits your preferred range (" + taxonomy.FormatAmountRange(g.AmountMin, g.AmountMax, "") + ")"}
	default:
		for _, adj := range size.Adjacent() {
			if adj.Range().Overlaps(lo, hi) {
				f = factor{fraction: 0.5, reason: amount}
				break
			}
		}
		if f.fraction == 0 {
			f.warnings = append(f.warnings, "Award size is outside your preferred range")
		}
	}

	if p.AnnualBudget != "" {
		band := p.AnnualBudget.Range()
		if !band.Unbounded() && lo > 2*band.Max {
			f.warnings = append(f.warnings, "The award is large relative to your annual budget")
		}
	}
	return f
}

func deadlineFactor(p *models.UserProfile, g *models.Grant, now time.Time) factor {
	if g.DeadlineDate == nil {
		return factor{fraction: 0.7, reason: "Rolling deadline"}
	}
	days := taxonomy.DaysUntil(*g.DeadlineDate, now)
	label := taxonomy.FormatDeadline(g.DeadlineDate, now)
	switch {
	case days < 0:
		return factor{warnings: []string{"The deadline has passed"}}
	case days < 7:
		return factor{fraction: 0.3, warnings: []string{fmt.Sprintf("Deadline is very close (%s)", strings.ToLower(label))}}
	}

	var timeline taxonomy.Timeline
	if p.GrantPreferences != nil {
		timeline = p.GrantPreferences.Timeline
	}
	if timeline != "" {
		if limit := timeline.MaxDays(); limit == 0 || days <= limit {
			return factor{fraction: 1, reason: label + ", fits your timeline"}
		}
		return factor{fraction: 0.6, reason: label}
	}
	if days >= 14 {
		return factor{fraction: 0.8, reason: label}
	}
	return factor{fraction: 0.5, reason: label}
}
