// Package analysis produces AI explanations of how a grant fits a profile.
// Callers treat every error as soft: a failed analysis leaves the
// eligibility and score results untouched.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/matching/eligibility"
	"grant-workers/internal/matching/scoring"
	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

var (
	ErrAnalysisTimeout = errors.New("AI_ANALYSIS_TIMEOUT")
	ErrAnalysisFailed  = errors.New("AI_ANALYSIS_FAILED")
)

const (
	ProviderGemini  = "gemini"
	ProviderGateway = "gateway"
	ProviderNone    = "none"
)

// Request carries the deterministic results the analysis should explain.
type Request struct {
	Profile     *models.UserProfile
	Grant       *models.Grant
	Eligibility eligibility.Result
	Score       scoring.Result
	Now         time.Time
}

type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*models.MatchAnalysis, error)
	Name() string
}

type Options struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
}

// New returns the analyzer for opts.Provider, or nil when analysis is
// disabled.
func New(ctx context.Context, opts Options, log logger.Logger) (Analyzer, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderNone:
		return nil, nil
	case ProviderGemini:
		a, err := NewGeminiAnalyzer(ctx, opts.APIKey, opts.Model, log)
		if err != nil {
			return nil, err
		}
		return a, nil
	case ProviderGateway:
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("genai gateway requires base_url")
		}
		return NewHTTPAnalyzer(opts.BaseURL, opts.MaxRetries, log), nil
	default:
		return nil, fmt.Errorf("unknown genai provider %q", opts.Provider)
	}
}

// classify maps a transport error onto the package sentinels.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrAnalysisTimeout) || errors.Is(err, ErrAnalysisFailed) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrAnalysisTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
}

const systemInstruction = `You are a grant advisor helping an applicant decide whether to apply.
Explain how the grant fits the applicant using ONLY the data provided.
Respect the eligibility verdict you are given; never call an ineligible grant eligible.
Keep fitSummary to two sentences. whyMatch, nextSteps and concerns hold at most 4 short items each.
matchScore is 0-100. eligibilityStatus is one of eligible, likely, uncertain, ineligible.
confidence is one of high, medium, low.`

type promptGrant struct {
	Title       string   `json:"title"`
	Sponsor     string   `json:"sponsor,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Eligibility []string `json:"eligibility,omitempty"`
	Locations   []string `json:"locations,omitempty"`
	Amount      string   `json:"amount"`
	Deadline    string   `json:"deadline"`
}

type promptProfile struct {
	EntityType   string   `json:"entityType,omitempty"`
	State        string   `json:"state,omitempty"`
	Focus        []string `json:"focusAreas,omitempty"`
	Stage        string   `json:"stage,omitempty"`
	AnnualBudget string   `json:"annualBudget,omitempty"`
}

type promptVerdict struct {
	Eligible      bool     `json:"eligible"`
	AppliesToUser string   `json:"appliesToUser"`
	Reason        string   `json:"reason"`
	Score         int      `json:"score"`
	Tier          string   `json:"tier"`
	Reasons       []string `json:"reasons,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// BuildPrompt renders the user portion of the analysis request.
func BuildPrompt(req Request) string {
	g, p := req.Grant, req.Profile
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	grant := promptGrant{
		Title:       g.Title,
		Sponsor:     g.Sponsor,
		Summary:     g.Summary,
		Categories:  g.Categories,
		Eligibility: g.Eligibility.Tags,
		Amount:      taxonomy.FormatAmountRange(g.AmountMin, g.AmountMax, g.AmountText),
		Deadline:    taxonomy.FormatDeadline(g.DeadlineDate, now),
	}
	for _, loc := range g.Locations {
		grant.Locations = append(grant.Locations, strings.TrimSpace(string(loc.Type)+" "+loc.Value))
	}

	var profile promptProfile
	if p != nil {
		profile = promptProfile{
			EntityType:   p.EntityType.DisplayName(),
			State:        p.State,
			Stage:        string(p.Stage),
			AnnualBudget: string(p.AnnualBudget),
		}
		for _, tag := range p.IndustryTags {
			profile.Focus = append(profile.Focus, tag.DisplayName())
		}
	}

	verdict := promptVerdict{
		Eligible:      req.Eligibility.IsEligible,
		AppliesToUser: string(req.Eligibility.AppliesToUser),
		Reason:        req.Eligibility.PrimaryReason,
		Score:         req.Score.TotalScore,
		Tier:          string(req.Score.Tier),
		Reasons:       req.Score.MatchReasons,
		Warnings:      append(append([]string{}, req.Eligibility.Warnings...), req.Score.Warnings...),
	}

	var b strings.Builder
	writeSection(&b, "Grant", grant)
	writeSection(&b, "Applicant", profile)
	writeSection(&b, "Deterministic assessment", verdict)
	b.WriteString("\nReturn the analysis as JSON.")
	return b.String()
}

func writeSection(b *strings.Builder, title string, v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintf(b, "%s:\n%s\n", title, data)
}

var (
	validStatus     = map[string]bool{"eligible": true, "likely": true, "uncertain": true, "ineligible": true}
	validConfidence = map[string]bool{"high": true, "medium": true, "low": true}
)

// sanitize clamps model output into the stored shape and keeps it consistent
// with the deterministic verdict.
func sanitize(a *models.MatchAnalysis, req Request) *models.MatchAnalysis {
	a.FitSummary = strings.TrimSpace(a.FitSummary)
	if a.FitSummary == "" {
		a.FitSummary = req.Eligibility.PrimaryReason
	}
	if a.MatchScore < 0 {
		a.MatchScore = 0
	}
	if a.MatchScore > 100 {
		a.MatchScore = 100
	}

	a.EligibilityStatus = strings.ToLower(strings.TrimSpace(a.EligibilityStatus))
	if !validStatus[a.EligibilityStatus] {
		a.EligibilityStatus = "uncertain"
	}
	if !req.Eligibility.IsEligible {
		a.EligibilityStatus = "ineligible"
	}
	a.Confidence = strings.ToLower(strings.TrimSpace(a.Confidence))
	if !validConfidence[a.Confidence] {
		a.Confidence = "low"
	}

	a.WhyMatch = trimList(a.WhyMatch)
	a.NextSteps = trimList(a.NextSteps)
	a.Concerns = trimList(a.Concerns)
	return a
}

func trimList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if len(out) == 4 {
			break
		}
	}
	return out
}
