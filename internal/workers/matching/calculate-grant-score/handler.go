package calculategrantscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/common/metrics"
	"grant-workers/internal/common/validation"
	"grant-workers/internal/matching/scoring"
)

const (
	TaskType = "calculate-grant-score"
)

var (
	ErrInvalidInput   = errors.New("INVALID_INPUT")
	ErrInvalidProfile = errors.New("INVALID_PROFILE")
)

type Handler struct {
	config *Config
	engine *scoring.Engine
	now    func() time.Time
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		engine: scoring.NewEngine(config.Scoring),
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	variables, err := job.GetVariablesAsMap()
	if err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}
	if err := validation.ProfileGrantsInput.Validate(variables).Err(); err != nil {
		h.failJob(client, job, "INVALID_INPUT", err.Error(), 0)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "INVALID_INPUT"
		if errors.Is(err, ErrInvalidProfile) {
			errorCode = "INVALID_PROFILE"
		}
		h.failJob(client, job, errorCode, err.Error(), 0)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Profile == nil {
		return nil, fmt.Errorf("%w: profile is required", ErrInvalidInput)
	}
	if input.MinScore < 0 || input.MinScore > 100 {
		return nil, fmt.Errorf("%w: minScore must be between 0 and 100", ErrInvalidInput)
	}

	profile := *input.Profile
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	now := h.now()
	if input.Now != nil {
		now = *input.Now
	}

	grants := input.Grants[:0:0]
	for _, g := range input.Grants {
		if g == nil {
			continue
		}
		grant := *g
		grant.Normalize()
		grants = append(grants, &grant)
	}

	scored := h.engine.ScoreAndSortGrants(&profile, grants, now)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output := &Output{
		ScoredGrants: make([]scoring.Scored, 0, len(scored)),
		ByTier:       make(map[scoring.Tier]int),
	}
	for _, s := range scored {
		if s.Score.TotalScore < input.MinScore {
			output.BelowMin++
			continue
		}
		output.ScoredGrants = append(output.ScoredGrants, s)
		output.ByTier[s.Score.Tier]++
	}
	output.Count = len(output.ScoredGrants)
	if output.Count > 0 {
		output.TopScore = output.ScoredGrants[0].Score.TotalScore
	}

	h.logger.Debug("grants scored", map[string]interface{}{
		"userId":   profile.UserID,
		"count":    output.Count,
		"belowMin": output.BelowMin,
		"topScore": output.TopScore,
	})
	return output, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.RecordJobCompleted(TaskType)
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
	})
	metrics.RecordJobFailed(TaskType, errorCode)

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
