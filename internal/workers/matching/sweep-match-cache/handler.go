package sweepmatchcache

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
	"grant-workers/internal/matching/cache"
)

const (
	TaskType = "sweep-match-cache"
)

var (
	ErrSweepFailed  = errors.New("CACHE_SWEEP_FAILED")
	ErrSweepTimeout = errors.New("CACHE_SWEEP_TIMEOUT")
)

type Sweeper interface {
	Sweep(ctx context.Context) (cache.SweepReport, error)
}

type Handler struct {
	config  *Config
	sweeper Sweeper
	logger  logger.Logger
}

func NewHandler(config *Config, sweeper Sweeper, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		sweeper: sweeper,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if job.Variables != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		errorCode := "CACHE_SWEEP_FAILED"
		retries := int32(1)
		if errors.Is(err, ErrSweepTimeout) {
			errorCode = "CACHE_SWEEP_TIMEOUT"
			retries = 0
		}
		h.failJob(client, job, errorCode, err.Error(), retries)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	report, err := h.sweeper.Sweep(ctx)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: deleted %d before timeout", ErrSweepTimeout, report.Deleted)
		}
		return nil, fmt.Errorf("%w: %v", ErrSweepFailed, err)
	}

	output := &Output{
		Report:     report,
		SweptAt:    start.UTC(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	h.logger.Info("match cache swept", map[string]interface{}{
		"trigger":    input.Trigger,
		"scanned":    report.Scanned,
		"deleted":    report.Deleted,
		"durationMs": output.DurationMs,
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

// failJob hands the job back for another attempt while retries remain, and
// throws once they are spent.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
	})
	metrics.RecordJobFailed(TaskType, errorCode)

	if retries > 0 && job.Retries > 1 {
		_, err := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(job.Retries - 1).
			ErrorMessage(errorMessage).
			Send(context.Background())
		if err != nil {
			h.logger.Error("failed to fail job", map[string]interface{}{
				"error": err,
			})
		}
		return
	}

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
