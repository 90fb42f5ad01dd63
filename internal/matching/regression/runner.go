package regression

import (
	"context"
	"fmt"
	"time"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/matching/pipeline"
	"grant-workers/internal/matching/taxonomy"
)

type ScenarioReport struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Passed      bool     `json:"passed"`
	Checks      int      `json:"checks"`
	Returned    int      `json:"returned"`
	TopGrants   []string `json:"topGrants"`
	Failures    []string `json:"failures,omitempty"`
}

type Report struct {
	Scenarios []ScenarioReport `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
}

func (r *Report) OK() bool {
	return r.Failed == 0
}

type Runner struct {
	logger logger.Logger
}

func NewRunner(log logger.Logger) *Runner {
	return &Runner{logger: log.WithFields(map[string]interface{}{"component": "regression"})}
}

// Run evaluates every scenario against the suite's pool. The debug trace is
// sized to the whole pool so assertions can see every verdict. An error is
// returned only when a scenario cannot run at all.
func (r *Runner) Run(ctx context.Context, suite *Suite) (*Report, error) {
	pool := suite.Pool()

	cfg := pipeline.DefaultConfig()
	cfg.DebugTraceSize = len(pool) + 1
	cfg.MaxLimit = len(pool) + 1
	p := pipeline.New(cfg, r.logger).WithClock(func() time.Time { return suite.Now })

	report := &Report{}
	for _, sc := range suite.Scenarios {
		opts := sc.Options.toOptions()
		if opts.Limit == 0 {
			opts.Limit = cfg.MaxLimit
		}
		res, err := p.Run(ctx, pool, sc.Profile.toProfile(), opts)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
		}

		sr := evaluate(sc, res)
		if sr.Passed {
			report.Passed++
		} else {
			report.Failed++
			r.logger.Warn("Regression scenario failed", map[string]interface{}{
				"scenario": sc.Name,
				"failures": sr.Failures,
			})
		}
		report.Scenarios = append(report.Scenarios, sr)
	}
	return report, nil
}

func evaluate(sc Scenario, res *pipeline.Result) ScenarioReport {
	sr := ScenarioReport{
		Name:        sc.Name,
		Description: sc.Description,
		Returned:    len(res.Grants),
		TopGrants:   []string{},
	}
	trace := res.Debug
	for i, e := range trace.Ranked {
		if i == 5 {
			break
		}
		sr.TopGrants = append(sr.TopGrants, e.Title)
	}

	// every surfaced grant must be open and linkable, whatever the profile
	for _, e := range trace.Ranked {
		sr.Checks++
		if e.URL == "" || e.Status != string(taxonomy.StatusOpen) {
			sr.Failures = append(sr.Failures, fmt.Sprintf("%s surfaced with url %q and status %q", e.GrantID, e.URL, e.Status))
		}
	}

	for _, a := range sc.Assertions {
		sr.Checks++
		if msg := check(a, trace); msg != "" {
			sr.Failures = append(sr.Failures, msg)
		}
	}
	sr.Passed = len(sr.Failures) == 0
	return sr
}

// check returns a failure message, or "" when a holds.
func check(a Assertion, trace *pipeline.Debug) string {
	matches := func(e pipeline.TraceEntry) bool {
		if a.GrantID != "" {
			return e.GrantID == a.GrantID
		}
		return e.Title == a.Title
	}

	var ranked, excluded *pipeline.TraceEntry
	for i := range trace.Ranked {
		if matches(trace.Ranked[i]) {
			ranked = &trace.Ranked[i]
			break
		}
	}
	for i := range trace.Excluded {
		if matches(trace.Excluded[i]) {
			excluded = &trace.Excluded[i]
			break
		}
	}

	switch a.Kind {
	case AssertInTop:
		if ranked == nil {
			return fmt.Sprintf("%s: not ranked%s", a, exclusionNote(excluded))
		}
		if ranked.Rank > a.N {
			return fmt.Sprintf("%s: ranked #%d with score %d", a, ranked.Rank, ranked.Score)
		}
	case AssertNotInTop:
		if ranked != nil && ranked.Rank <= a.N {
			return fmt.Sprintf("%s: ranked #%d with score %d", a, ranked.Rank, ranked.Score)
		}
	case AssertEligible:
		if ranked == nil && (excluded == nil || excluded.ExcludedBy != pipeline.ExcludedBelowMinScore) {
			return fmt.Sprintf("%s: not eligible%s", a, exclusionNote(excluded))
		}
	case AssertIneligible:
		if ranked != nil {
			return fmt.Sprintf("%s: ranked #%d", a, ranked.Rank)
		}
		if excluded == nil {
			return fmt.Sprintf("%s: grant not in pool", a)
		}
		if excluded.ExcludedBy != pipeline.ExcludedIneligible {
			return fmt.Sprintf("%s: excluded as %s", a, excluded.ExcludedBy)
		}
		if a.Filter != "" && !failed(excluded, a) {
			return fmt.Sprintf("%s: failed %v instead", a, excluded.FailedFilters)
		}
	}
	return ""
}

func failed(e *pipeline.TraceEntry, a Assertion) bool {
	for _, f := range e.FailedFilters {
		if f == a.Filter {
			return true
		}
	}
	return false
}

func exclusionNote(e *pipeline.TraceEntry) string {
	if e == nil {
		return ""
	}
	if e.PrimaryReason != "" {
		return fmt.Sprintf(" (%s: %s)", e.ExcludedBy, e.PrimaryReason)
	}
	return fmt.Sprintf(" (%s)", e.ExcludedBy)
}
