package analyzegrantmatch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"grant-workers/internal/common/errors"
	"grant-workers/internal/common/logger"
	"grant-workers/internal/common/metrics"
	"grant-workers/internal/common/validation"
	"grant-workers/internal/matching/analysis"
	"grant-workers/internal/matching/cache"
	"grant-workers/internal/matching/eligibility"
	"grant-workers/internal/matching/scoring"
)

const TaskType = "analyze-grant-match"

// Handler explains a single match. A valid cached analysis is reused;
// otherwise the analyzer is called and the result written back.
type Handler struct {
	config     *Config
	analyzer   analysis.Analyzer
	store      cache.Store
	scoring    *scoring.Engine
	now        func() time.Time
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

// NewHandler accepts a nil analyzer or store; the worker then degrades to
// score-only results or uncached analyses.
func NewHandler(config *Config, analyzer analysis.Analyzer, store cache.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		analyzer:   analyzer,
		store:      store,
		scoring:    scoring.NewEngine(scoring.DefaultConfig()),
		now:        time.Now,
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing match analysis request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, &errors.StandardError{
			Code:      "INPUT_PARSING_FAILED",
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
		}
	}
	if result := validation.AnalyzeInput.Validate(variables); !result.Valid {
		return nil, &errors.StandardError{
			Code:      "VALIDATION_FAILED",
			Message:   "Input validation failed",
			Details:   fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()),
			Timestamp: time.Now().UTC(),
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, &errors.StandardError{
			Code:      "INPUT_PARSING_FAILED",
			Message:   "Failed to decode job variables",
			Details:   err.Error(),
			Timestamp: time.Now().UTC(),
		}
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Profile == nil {
		return nil, errors.NewInvalidProfileError("profile is required")
	}
	if input.Grant == nil {
		return nil, errors.NewInvalidGrantError("", "grant is required")
	}

	profile := *input.Profile
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nil, errors.NewInvalidProfileError(err.Error())
	}
	grant := *input.Grant
	grant.Normalize()
	if err := grant.Validate(); err != nil {
		return nil, errors.NewInvalidGrantError(grant.ID, err.Error())
	}

	now := h.now()
	output := &Output{
		UserID:      profile.UserID,
		GrantID:     grant.ID,
		Eligibility: eligibility.RunEligibilityEngine(&profile, &grant),
		Score:       h.scoring.CalculateScore(&profile, &grant, now),
	}
	log := h.logger.WithFields(map[string]interface{}{"userId": profile.UserID, "grantId": grant.ID})

	cacheable := h.store != nil && profile.UserID != ""
	if cacheable && !input.ForceFresh {
		entry, status, err := cache.GetCachedMatch(ctx, h.store, cache.MatchKey{
			UserID:         profile.UserID,
			GrantID:        grant.ID,
			ProfileVersion: profile.ProfileVersion,
			GrantUpdatedAt: grant.UpdatedAt,
		}, now)
		output.CacheStatus = status
		metrics.CacheLookups.WithLabelValues(lookupLabel(status)).Inc()
		if err != nil {
			log.Warn("Match cache lookup failed", map[string]interface{}{"error": err.Error()})
		}
		if status.IsHit() {
			output.Analysis = cache.CacheDataToMatchResult(entry, cache.SourceCache)
			return output, nil
		}
	}

	if h.analyzer == nil {
		if input.Required {
			return nil, errors.NewAIAnalysisFailedError(stderrors.New("no analyzer configured"))
		}
		output.Fallback = true
		output.FallbackReason = FallbackDisabled
		return output, nil
	}
	output.Analyzer = h.analyzer.Name()

	actx, cancel := context.WithTimeout(ctx, h.config.AIBudget)
	defer cancel()
	result, err := h.analyzer.Analyze(actx, analysis.Request{
		Profile:     &profile,
		Grant:       &grant,
		Eligibility: output.Eligibility,
		Score:       output.Score,
		Now:         now,
	})
	if err == nil && result == nil {
		err = fmt.Errorf("%w: empty response", analysis.ErrAnalysisFailed)
	}
	if err != nil {
		timedOut := stderrors.Is(err, analysis.ErrAnalysisTimeout) || actx.Err() == context.DeadlineExceeded
		reason := FallbackFailed
		if timedOut {
			reason = FallbackTimeout
		}
		metrics.AIAnalyses.WithLabelValues(reason).Inc()
		if input.Required {
			if timedOut {
				return nil, errors.NewAIAnalysisTimeoutError(h.config.AIBudget)
			}
			return nil, errors.NewAIAnalysisFailedError(err)
		}
		log.Warn("AI analysis unavailable, using score only", map[string]interface{}{
			"reason": reason,
			"error":  err.Error(),
		})
		output.Fallback = true
		output.FallbackReason = reason
		return output, nil
	}
	metrics.AIAnalyses.WithLabelValues("ok").Inc()

	entry := cache.NewEntry(profile.UserID, &grant, profile.ProfileVersion, *result, now, h.config.CacheTTL)
	output.Analysis = cache.CacheDataToMatchResult(entry, cache.SourceFresh)
	if cacheable {
		if err := h.store.Put(ctx, entry); err != nil {
			log.Warn("Match cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return output, nil
}

func lookupLabel(s cache.Status) string {
	switch s {
	case cache.StatusHit:
		return "hit"
	case cache.StatusError:
		return "error"
	}
	return "miss"
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.RecordJobFailed(TaskType, string(errors.Normalize(err).Code))
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	metrics.RecordJobCompleted(TaskType)
}
