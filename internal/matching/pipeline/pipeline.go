// Package pipeline runs the discovery flow for one profile over a candidate
// grant pool: eligibility, scoring, cached or fresh AI analysis, filtering,
// ordering and truncation. Per-grant failures exclude that grant only.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/common/metrics"
	"grant-workers/internal/matching/analysis"
	"grant-workers/internal/matching/cache"
	"grant-workers/internal/matching/eligibility"
	"grant-workers/internal/matching/scoring"
	"grant-workers/internal/models"
)

var (
	ErrProfileRequired = errors.New("PROFILE_REQUIRED")
	ErrInvalidProfile  = errors.New("INVALID_PROFILE")
)

// Recorder receives per-tier counts; observability.Observability satisfies it.
type Recorder interface {
	RecordGrantsScored(ctx context.Context, tier string, count int)
}

type Pipeline struct {
	cfg      Config
	scorer   *scoring.Engine
	cache    cache.Store
	analyzer analysis.Analyzer
	recorder Recorder
	tracer   trace.Tracer
	logger   logger.Logger
	now      func() time.Time
}

func New(cfg Config, log logger.Logger) *Pipeline {
	if cfg.CacheConcurrency <= 0 {
		cfg.CacheConcurrency = 1
	}
	return &Pipeline{
		cfg:    cfg,
		scorer: scoring.NewEngine(scoring.DefaultConfig()),
		tracer: otel.Tracer("grant-workers/pipeline"),
		logger: log.WithFields(map[string]interface{}{"component": "discovery-pipeline"}),
		now:    time.Now,
	}
}

func (p *Pipeline) WithCache(store cache.Store) *Pipeline {
	p.cache = store
	return p
}

func (p *Pipeline) WithAnalyzer(a analysis.Analyzer) *Pipeline {
	p.analyzer = a
	return p
}

func (p *Pipeline) WithScoring(e *scoring.Engine) *Pipeline {
	p.scorer = e
	return p
}

func (p *Pipeline) WithRecorder(r Recorder) *Pipeline {
	p.recorder = r
	return p
}

func (p *Pipeline) WithTracer(t trace.Tracer) *Pipeline {
	p.tracer = t
	return p
}

func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// RankedGrant is one entry of the pipeline output.
type RankedGrant struct {
	Grant         *models.Grant             `json:"grant"`
	AppliesToUser eligibility.AppliesToUser `json:"appliesToUser"`
	Eligibility   eligibility.Result        `json:"eligibilityAssessment"`
	MatchScore    int                       `json:"matchScore"`
	Tier          scoring.Tier              `json:"tier"`
	Score         scoring.Result            `json:"score"`
	AIAnalysis    *cache.MatchResult        `json:"aiAnalysis,omitempty"`
}

type Result struct {
	Grants []RankedGrant `json:"grants"`
	Stats  Stats         `json:"stats"`
	Debug  *Debug        `json:"debug,omitempty"`
}

// candidate carries one grant through the run.
type candidate struct {
	grant   *models.Grant
	verdict eligibility.Result
	score   scoring.Result
	cache   cache.Status
	ai      *cache.MatchResult
}

// RunDiscoveryPipeline runs with default limits and no cache or analyzer.
func RunDiscoveryPipeline(ctx context.Context, grants []*models.Grant, profile *models.UserProfile, opts Options) (*Result, error) {
	return New(DefaultConfig(), logger.NewNoOpLogger()).Run(ctx, grants, profile, opts)
}

// Run evaluates grants for profile. It fails only when the profile or the
// options are unusable.
func (p *Pipeline) Run(ctx context.Context, grants []*models.Grant, profile *models.UserProfile, opts Options) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		metrics.PipelineRuns.WithLabelValues(status).Inc()
		metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	}()

	if profile == nil {
		return nil, ErrProfileRequired
	}
	opts, err = opts.Resolve(p.cfg)
	if err != nil {
		return nil, err
	}
	user := *profile
	user.Normalize()
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	runID := uuid.NewString()
	now := p.now()
	log := p.logger.WithFields(map[string]interface{}{"runId": runID, "userId": user.UserID})

	ctx, span := p.tracer.Start(ctx, "discovery_pipeline", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("grants.input", len(grants)),
	))
	defer span.End()

	stats := newStats(len(grants))
	run := &runState{log: log, stats: &stats}

	pool := p.dedupe(grants, run)
	eligible := p.evaluateEligibility(ctx, &user, pool, run)
	eligible = p.score(ctx, &user, eligible, now, run)

	if opts.UseCache && p.cache != nil && user.UserID != "" {
		p.lookupCache(ctx, &user, eligible, now, run)
	}

	survivors := make([]*candidate, 0, len(eligible))
	for _, c := range eligible {
		if c.score.TotalScore < opts.MinScore {
			stats.BelowMinScore++
			run.exclude(c, ExcludedBelowMinScore)
			continue
		}
		survivors = append(survivors, c)
	}
	sortCandidates(survivors, opts.SortBy)
	if len(survivors) > opts.Limit {
		survivors = survivors[:opts.Limit]
	}

	if opts.UseAI && p.analyzer != nil {
		p.analyze(ctx, &user, survivors, now, run)
	}

	res = &Result{Grants: make([]RankedGrant, 0, len(survivors))}
	for _, c := range survivors {
		res.Grants = append(res.Grants, c.ranked())
		stats.ByTier[string(c.score.Tier)]++
	}
	stats.Returned = len(res.Grants)
	stats.DurationMs = time.Since(start).Milliseconds()
	res.Stats = stats

	if p.recorder != nil {
		for tier, n := range stats.ByTier {
			p.recorder.RecordGrantsScored(ctx, tier, n)
		}
	}
	if opts.IncludeDebug {
		res.Debug = buildDebug(runID, opts, now, survivors, run.excluded, p.cfg.DebugTraceSize)
	}

	span.SetAttributes(
		attribute.Int("grants.eligible", stats.Eligible),
		attribute.Int("grants.returned", stats.Returned),
		attribute.Int("cache.hits", stats.CacheHits),
	)
	log.Info("Discovery pipeline completed", map[string]interface{}{
		"total":       stats.Total,
		"eligible":    stats.Eligible,
		"returned":    stats.Returned,
		"malformed":   stats.Malformed,
		"cacheHits":   stats.CacheHits,
		"aiAnalyzed":  stats.AIAnalyzed,
		"aiFallbacks": stats.AIFallbacks,
		"durationMs":  stats.DurationMs,
	})
	return res, nil
}

type runState struct {
	log      logger.Logger
	stats    *Stats
	excluded []excludedGrant
}

func (r *runState) exclude(c *candidate, reason string) {
	r.excluded = append(r.excluded, excludedGrant{candidate: c, reason: reason})
}

func (r *runState) malformed(grant *models.Grant, cause interface{}) {
	r.stats.Malformed++
	metrics.EligibilityVerdicts.WithLabelValues("malformed").Inc()
	id := ""
	if grant != nil {
		id = grant.ID
	}
	r.log.Warn("Excluding malformed grant", map[string]interface{}{
		"grantId": id,
		"error":   fmt.Sprint(cause),
	})
	if grant != nil {
		r.exclude(&candidate{grant: grant}, ExcludedMalformed)
	}
}

// dedupe normalizes a copy of every grant, reports the ones that fail
// validation as malformed and drops repeated IDs among the rest (first valid
// one wins).
func (p *Pipeline) dedupe(grants []*models.Grant, run *runState) []*candidate {
	seen := make(map[string]bool, len(grants))
	pool := make([]*candidate, 0, len(grants))
	for _, g := range grants {
		if g == nil {
			run.malformed(nil, "nil grant")
			continue
		}
		cp := *g
		cp.Normalize()
		if err := cp.Validate(); err != nil {
			run.malformed(&cp, err)
			continue
		}
		if seen[cp.ID] {
			run.stats.Duplicates++
			continue
		}
		seen[cp.ID] = true
		pool = append(pool, &candidate{grant: &cp})
	}
	return pool
}

func (p *Pipeline) evaluateEligibility(ctx context.Context, user *models.UserProfile, pool []*candidate, run *runState) []*candidate {
	_, span := p.tracer.Start(ctx, "eligibility")
	defer span.End()

	eligible := make([]*candidate, 0, len(pool))
	for _, c := range pool {
		if err := guard(func() { c.verdict = eligibility.RunEligibilityEngine(user, c.grant) }); err != nil {
			run.malformed(c.grant, err)
			continue
		}
		run.stats.Evaluated++
		for _, f := range c.verdict.FailedFilters {
			run.stats.FailedFilters[string(f)]++
		}
		run.stats.ByConfidence[string(c.verdict.ConfidenceLevel)]++
		run.stats.ByAppliesToUser[string(c.verdict.AppliesToUser)]++

		if !c.verdict.IsEligible {
			run.stats.Ineligible++
			metrics.EligibilityVerdicts.WithLabelValues("ineligible").Inc()
			run.exclude(c, ExcludedIneligible)
			continue
		}
		run.stats.Eligible++
		metrics.EligibilityVerdicts.WithLabelValues("eligible").Inc()
		eligible = append(eligible, c)
	}
	span.SetAttributes(attribute.Int("grants.eligible", len(eligible)))
	return eligible
}

// score fills c.score for every eligible candidate and drops those whose
// scoring panics.
func (p *Pipeline) score(ctx context.Context, user *models.UserProfile, eligible []*candidate, now time.Time, run *runState) []*candidate {
	_, span := p.tracer.Start(ctx, "scoring")
	defer span.End()

	scored := eligible[:0]
	for _, c := range eligible {
		if err := guard(func() { c.score = p.scorer.CalculateScore(user, c.grant, now) }); err != nil {
			run.stats.Eligible--
			run.malformed(c.grant, err)
			continue
		}
		scored = append(scored, c)
	}
	return scored
}

func (p *Pipeline) lookupCache(ctx context.Context, user *models.UserProfile, eligible []*candidate, now time.Time, run *runState) {
	ctx, span := p.tracer.Start(ctx, "cache_lookup")
	defer span.End()

	statuses := make([]cache.Status, len(eligible))
	entries := make([]*models.MatchCacheEntry, len(eligible))
	errs := make([]error, len(eligible))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.CacheConcurrency)
	for i, c := range eligible {
		g.Go(func() error {
			key := cache.MatchKey{
				UserID:         user.UserID,
				GrantID:        c.grant.ID,
				ProfileVersion: user.ProfileVersion,
				GrantUpdatedAt: c.grant.UpdatedAt,
			}
			entries[i], statuses[i], errs[i] = cache.GetCachedMatch(gctx, p.cache, key, now)
			return nil
		})
	}
	_ = g.Wait()

	// merged in candidate order
	for i, c := range eligible {
		c.cache = statuses[i]
		switch {
		case statuses[i].IsHit():
			run.stats.CacheHits++
			c.ai = cache.CacheDataToMatchResult(entries[i], cache.SourceCache)
			metrics.CacheLookups.WithLabelValues("hit").Inc()
		case errs[i] != nil:
			run.stats.CacheErrors++
			metrics.CacheLookups.WithLabelValues("error").Inc()
			run.log.Warn("Match cache lookup failed", map[string]interface{}{
				"grantId": c.grant.ID,
				"error":   errs[i].Error(),
			})
		default:
			run.stats.CacheMisses++
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}
	span.SetAttributes(attribute.Int("cache.hits", run.stats.CacheHits))
}

// analyze requests fresh analyses for the best uncached results. Everything
// runs under one budget; whatever is unfinished falls back to score-only.
func (p *Pipeline) analyze(ctx context.Context, user *models.UserProfile, ranked []*candidate, now time.Time, run *runState) {
	var todo []*candidate
	for _, c := range ranked {
		if c.ai == nil && len(todo) < p.cfg.MaxAIAnalyses {
			todo = append(todo, c)
		}
	}
	if len(todo) == 0 {
		return
	}

	ctx, span := p.tracer.Start(ctx, "ai_analysis", trace.WithAttributes(attribute.Int("ai.requested", len(todo))))
	defer span.End()

	budget := p.cfg.AIBudget
	if budget <= 0 {
		budget = DefaultConfig().AIBudget
	}
	actx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	// Analyzers that ignore ctx may outlive the budget. Their late writes land
	// in slots that are no longer read once collected is set.
	var (
		mu        sync.Mutex
		collected bool
		results = make([]*models.MatchAnalysis, len(todo))
		errs    = make([]error, len(todo))
	)
	for i := range errs {
		errs[i] = analysis.ErrAnalysisTimeout
	}
	var g errgroup.Group
	for i, c := range todo {
		g.Go(func() error {
			req := analysis.Request{Profile: user, Grant: c.grant, Eligibility: c.verdict, Score: c.score, Now: now}
			var (
				res *models.MatchAnalysis
				err error
			)
			if perr := guard(func() { res, err = p.analyzer.Analyze(actx, req) }); perr != nil {
				err = fmt.Errorf("%w: %v", analysis.ErrAnalysisFailed, perr)
			}
			mu.Lock()
			if !collected {
				results[i], errs[i] = res, err
			}
			mu.Unlock()
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-actx.Done():
	}

	mu.Lock()
	collected = true
	mu.Unlock()

	for i, c := range todo {
		if errs[i] != nil || results[i] == nil {
			outcome := "failed"
			if errors.Is(errs[i], analysis.ErrAnalysisTimeout) || errors.Is(errs[i], context.DeadlineExceeded) || actx.Err() != nil {
				outcome = "timeout"
			}
			run.stats.AIFallbacks++
			metrics.AIAnalyses.WithLabelValues(outcome).Inc()
			run.log.Warn("AI analysis unavailable, using score only", map[string]interface{}{
				"grantId": c.grant.ID,
				"outcome": outcome,
				"error":   fmt.Sprint(errs[i]),
			})
			continue
		}

		run.stats.AIAnalyzed++
		metrics.AIAnalyses.WithLabelValues("ok").Inc()
		entry := cache.NewEntry(user.UserID, c.grant, user.ProfileVersion, *results[i], now, p.cfg.CacheTTL)
		c.ai = cache.CacheDataToMatchResult(entry, cache.SourceFresh)
		if p.cache != nil && user.UserID != "" {
			if err := p.cache.Put(ctx, entry); err != nil {
				run.stats.CacheErrors++
				run.log.Warn("Match cache write failed", map[string]interface{}{
					"grantId": c.grant.ID,
					"error":   err.Error(),
				})
			}
		}
	}
	if run.stats.AIFallbacks > 0 {
		span.SetStatus(codes.Error, "ai analysis degraded")
	}
}

func (c *candidate) ranked() RankedGrant {
	return RankedGrant{
		Grant:         c.grant,
		AppliesToUser: c.verdict.AppliesToUser,
		Eligibility:   c.verdict,
		MatchScore:    c.score.TotalScore,
		Tier:          c.score.Tier,
		Score:         c.score,
		AIAnalysis:    c.ai,
	}
}

// guard converts a panic in fn into an error.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}
