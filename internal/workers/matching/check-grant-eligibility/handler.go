package checkgranteligibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/common/metrics"
	"grant-workers/internal/common/validation"
	"grant-workers/internal/matching/eligibility"
)

const (
	TaskType = "check-grant-eligibility"
)

var (
	ErrInvalidInput   = errors.New("INVALID_INPUT")
	ErrInvalidProfile = errors.New("INVALID_PROFILE")
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
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

	profile := *input.Profile
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	output := &Output{}
	grants := input.Grants[:0:0]
	for _, g := range input.Grants {
		if g == nil {
			continue
		}
		grant := *g
		grant.Normalize()
		if err := grant.Validate(); err != nil {
			h.logger.Warn("skipping malformed grant", map[string]interface{}{
				"grantId": g.ID,
				"error":   err.Error(),
			})
			output.Malformed = append(output.Malformed, g.ID)
			continue
		}
		grants = append(grants, &grant)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	partition := eligibility.FilterEligibleGrants(&profile, grants)
	output.Eligible = partition.Eligible
	output.Ineligible = partition.Ineligible
	output.EligibleCount = len(partition.Eligible)
	output.IneligibleCount = len(partition.Ineligible)

	metrics.EligibilityVerdicts.WithLabelValues("eligible").Add(float64(output.EligibleCount))
	metrics.EligibilityVerdicts.WithLabelValues("ineligible").Add(float64(output.IneligibleCount))
	metrics.EligibilityVerdicts.WithLabelValues("malformed").Add(float64(len(output.Malformed)))

	h.logger.Debug("eligibility checked", map[string]interface{}{
		"userId":     profile.UserID,
		"eligible":   output.EligibleCount,
		"ineligible": output.IneligibleCount,
		"malformed":  len(output.Malformed),
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
