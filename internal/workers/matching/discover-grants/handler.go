package discovergrants

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
	"grant-workers/internal/matching/pipeline"
	"grant-workers/internal/matching/source"
	"grant-workers/internal/matching/taxonomy"
)

const TaskType = "discover-grants"

// Handler loads a user's profile and the open grant pool, then runs the
// discovery pipeline over them.
type Handler struct {
	config     *Config
	profiles   source.ProfileStore
	grants     source.GrantSource
	pipeline   *pipeline.Pipeline
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, profiles source.ProfileStore, grants source.GrantSource, p *pipeline.Pipeline, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		profiles:   profiles,
		grants:     grants,
		pipeline:   p,
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing grant discovery request", map[string]interface{}{
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
	h.logger.Info("Grant discovery completed", map[string]interface{}{
		"jobKey":     job.GetKey(),
		"userId":     output.UserID,
		"returned":   len(output.Grants),
		"poolSize":   output.PoolSize,
		"durationMs": time.Since(startTime).Milliseconds(),
	})
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, &errors.StandardError{
			Code:      "INPUT_PARSING_FAILED",
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	if result := validation.DiscoverInput.Validate(variables); !result.Valid {
		return nil, &errors.StandardError{
			Code:      "VALIDATION_FAILED",
			Message:   "Input validation failed",
			Details:   fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, &errors.StandardError{
			Code:      "INPUT_PARSING_FAILED",
			Message:   "Failed to decode job variables",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}
	return &input, nil
}

// Execute returns StandardErrors so that the error handler can pick retries.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.NewInvalidProfileError("userId is required")
	}

	opts, err := pipeline.ParseOptions(input.Options)
	if err != nil {
		return nil, errors.NewInvalidOptionsError(err.Error())
	}

	profile, err := h.profiles.GetProfile(ctx, input.UserID)
	if err != nil {
		if stderrors.Is(err, source.ErrProfileNotFound) {
			return nil, errors.NewProfileNotFoundError(input.UserID)
		}
		return nil, errors.NewProfileLoadFailedError(input.UserID, err)
	}

	pool, err := h.grants.ListGrants(ctx, source.GrantFilter{
		Status: taxonomy.StatusOpen,
		State:  profile.State,
		Limit:  h.config.PoolSize,
	})
	if err != nil {
		return nil, errors.NewGrantPoolUnavailableError(err)
	}

	result, err := h.pipeline.Run(ctx, pool, profile, opts)
	if err != nil {
		switch {
		case stderrors.Is(err, pipeline.ErrInvalidOptions):
			return nil, errors.NewInvalidOptionsError(err.Error())
		case stderrors.Is(err, pipeline.ErrInvalidProfile), stderrors.Is(err, pipeline.ErrProfileRequired):
			return nil, errors.NewInvalidProfileError(err.Error())
		}
		return nil, errors.NewPipelineFailedError(err).WithMetadata("userId", input.UserID)
	}

	output := &Output{
		UserID:      input.UserID,
		Grants:      result.Grants,
		TotalFound:  len(result.Grants),
		PoolSize:    len(pool),
		Stats:       result.Stats,
		Debug:       result.Debug,
		TopGrantIDs: make([]string, 0, len(result.Grants)),
	}
	for _, g := range result.Grants {
		output.TopGrantIDs = append(output.TopGrantIDs, g.Grant.ID)
	}
	return output, nil
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
