// Package eligibility decides whether a grant is open to an applicant. The
// engine is a pure function of its inputs.
package eligibility

import "grant-workers/internal/models"

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// AppliesToUser is the caller-facing summary of a verdict.
type AppliesToUser string

const (
	AppliesYes       AppliesToUser = "yes"
	AppliesLikely    AppliesToUser = "likely"
	AppliesUncertain AppliesToUser = "uncertain"
	AppliesNo        AppliesToUser = "no"
)

type Result struct {
	IsEligible      bool           `json:"isEligible"`
	ConfidenceLevel Confidence     `json:"confidenceLevel"`
	AppliesToUser   AppliesToUser  `json:"appliesToUser"`
	PassedFilters   []FilterName   `json:"passedFilters"`
	FailedFilters   []FilterName   `json:"failedFilters"`
	SkippedFilters  []FilterName   `json:"skippedFilters,omitempty"`
	PrimaryReason   string         `json:"primaryReason"`
	Warnings        []string       `json:"warnings,omitempty"`
	Suggestions     []string       `json:"suggestions,omitempty"`
	Filters         []FilterResult `json:"filters"`
}

// Failed reports whether the named filter failed.
func (r *Result) Failed(name FilterName) bool {
	for _, f := range r.FailedFilters {
		if f == name {
			return true
		}
	}
	return false
}

// RunEligibilityEngine evaluates every filter in order and aggregates the
// verdict. Only URL_EXISTS, GRANT_STATUS, ENTITY_TYPE and GEOGRAPHY decide
// eligibility; INDUSTRY_RELEVANCE affects confidence only.
func RunEligibilityEngine(profile *models.UserProfile, grant *models.Grant) Result {
	res := Result{
		PassedFilters: []FilterName{},
		FailedFilters: []FilterName{},
		Filters:       make([]FilterResult, 0, len(filters)),
	}

	hardFailure, advisoryFailure := -1, -1
	for _, f := range filters {
		fr := f.check(profile, grant)
		fr.Name = f.name
		res.Filters = append(res.Filters, fr)

		switch fr.Outcome {
		case OutcomePass:
			res.PassedFilters = append(res.PassedFilters, f.name)
		case OutcomeFail:
			res.FailedFilters = append(res.FailedFilters, f.name)
			switch {
			case f.hard && hardFailure < 0:
				hardFailure = len(res.Filters) - 1
			case !f.hard && advisoryFailure < 0:
				advisoryFailure = len(res.Filters) - 1
			}
		default:
			res.SkippedFilters = append(res.SkippedFilters, f.name)
		}
		if fr.Warning != "" {
			res.Warnings = append(res.Warnings, fr.Warning)
		}
		if fr.Suggestion != "" {
			res.Suggestions = append(res.Suggestions, fr.Suggestion)
		}
	}

	res.IsEligible = hardFailure < 0
	res.ConfidenceLevel = confidence(profile, &res, !res.IsEligible)
	res.AppliesToUser = appliesToUser(res.IsEligible, res.ConfidenceLevel)

	switch {
	case hardFailure >= 0:
		res.PrimaryReason = res.Filters[hardFailure].Reason
	case advisoryFailure >= 0:
		res.PrimaryReason = "Eligible, but " + lowerFirst(res.Filters[advisoryFailure].Reason)
	default:
		res.PrimaryReason = "Meets all eligibility criteria"
		for _, fr := range res.Filters {
			if fr.Name == FilterEntityType && fr.Outcome == OutcomePass {
				res.PrimaryReason = "Eligible: " + lowerFirst(fr.Reason)
			}
		}
	}
	return res
}

func confidence(p *models.UserProfile, res *Result, hardFailed bool) Confidence {
	switch {
	case p.IsSparse():
		return ConfidenceLow
	case hardFailed:
		return ConfidenceHigh
	case len(res.PassedFilters) == len(filters):
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func appliesToUser(eligible bool, c Confidence) AppliesToUser {
	if !eligible {
		return AppliesNo
	}
	switch c {
	case ConfidenceHigh:
		return AppliesYes
	case ConfidenceMedium:
		return AppliesLikely
	}
	return AppliesUncertain
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// Verdict pairs a grant with its eligibility result.
type Verdict struct {
	Grant  *models.Grant `json:"grant"`
	Result Result        `json:"eligibility"`
}

type Partition struct {
	Eligible   []Verdict `json:"eligible"`
	Ineligible []Verdict `json:"ineligible"`
}

// FilterEligibleGrants partitions grants by verdict, keeping input order.
func FilterEligibleGrants(profile *models.UserProfile, grants []*models.Grant) Partition {
	p := Partition{Eligible: []Verdict{}, Ineligible: []Verdict{}}
	for _, g := range grants {
		if g == nil {
			continue
		}
		v := Verdict{Grant: g, Result: RunEligibilityEngine(profile, g)}
		if v.Result.IsEligible {
			p.Eligible = append(p.Eligible, v)
		} else {
			p.Ineligible = append(p.Ineligible, v)
		}
	}
	return p
}
