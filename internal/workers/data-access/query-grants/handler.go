package querygrants

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/common/metrics"
	"grant-workers/internal/matching/source"
	"grant-workers/internal/models"
	"grant-workers/internal/workers/data-access/query-grants/queries"
)

const (
	TaskType = "query-grants"
)

var (
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
	ErrInvalidQueryType     = errors.New("INVALID_QUERY_TYPE")
	ErrMissingParameter     = errors.New("MISSING_PARAMETER")
	ErrRecordNotFound       = errors.New("RECORD_NOT_FOUND")
)

type Handler struct {
	config *Config
	store  queries.Store
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return NewHandlerWithStore(config, source.NewPostgresStore(db, log), log)
}

func NewHandlerWithStore(config *Config, store queries.Store, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		store:  store,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, h.mapErrorToCode(err), err.Error(), h.getRetryCount(err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}

	queryType := models.QueryType(input.QueryType)
	if !queryType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, input.QueryType)
	}

	params := make(map[string]interface{})
	if input.GrantID != "" {
		params["grantId"] = input.GrantID
	}
	if len(input.GrantIDs) > 0 {
		params["grantIds"] = input.GrantIDs
	}
	if input.UserID != "" {
		params["userId"] = input.UserID
	}
	if len(input.UserIDs) > 0 {
		params["userIds"] = input.UserIDs
	}
	if input.Filters != nil {
		params["filters"] = input.Filters
	}

	data, rowCount, execTime, err := queries.Execute(ctx, h.store, queryType, params)
	if err != nil {
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			return nil, fmt.Errorf("%w: %s", ErrQueryTimeout, queryType)
		case errors.Is(err, queries.ErrUnknownQueryType):
			return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, queryType)
		case errors.Is(err, queries.ErrMissingParam):
			return nil, fmt.Errorf("%w: %v", ErrMissingParameter, err)
		case errors.Is(err, source.ErrGrantNotFound), errors.Is(err, source.ErrProfileNotFound):
			return nil, fmt.Errorf("%w: %v", ErrRecordNotFound, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	h.logger.Debug("query executed", map[string]interface{}{
		"queryType": queryType,
		"rowCount":  rowCount,
		"execMs":    execTime,
	})
	return &Output{
		Data:               data,
		RowCount:           rowCount,
		QueryExecutionTime: execTime,
	}, nil
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

func (h *Handler) mapErrorToCode(err error) string {
	switch {
	case errors.Is(err, ErrQueryTimeout):
		return "QUERY_TIMEOUT"
	case errors.Is(err, ErrInvalidQueryType):
		return "INVALID_QUERY_TYPE"
	case errors.Is(err, ErrMissingParameter):
		return "MISSING_PARAMETER"
	case errors.Is(err, ErrRecordNotFound):
		return "RECORD_NOT_FOUND"
	default:
		return "QUERY_EXECUTION_FAILED"
	}
}

func (h *Handler) getRetryCount(err error) int32 {
	switch {
	case errors.Is(err, ErrQueryTimeout):
		return 2
	case errors.Is(err, ErrQueryExecutionFailed):
		return 1
	default:
		return 0
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
