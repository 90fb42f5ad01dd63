package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failCommand struct {
	commands.FailJobCommandStep3
	retries int32
	sent    bool
}

func (c *failCommand) JobKey(int64) commands.FailJobCommandStep2 { return c }

func (c *failCommand) Retries(r int32) commands.FailJobCommandStep3 {
	c.retries = r
	return c
}

func (c *failCommand) ErrorMessage(string) commands.FailJobCommandStep3 { return c }

func (c *failCommand) VariablesFromString(string) (commands.DispatchFailJobCommand, error) {
	return c, nil
}

func (c *failCommand) Send(context.Context) (*pb.FailJobResponse, error) {
	c.sent = true
	return &pb.FailJobResponse{}, nil
}

type failJobClient struct {
	worker.JobClient
	cmd *failCommand
}

func (c failJobClient) NewFailJobCommand() commands.FailJobCommandStep1 { return c.cmd }

type nopLogger struct{}

func (nopLogger) Error(string, map[string]interface{}) {}

func TestHandleJobError_SpendsOneRetryPerFailure(t *testing.T) {
	tests := []struct {
		name        string
		jobRetries  int32
		wantRetries int32
	}{
		{name: "last attempt", jobRetries: 1, wantRetries: 0},
		{name: "at the configured budget", jobRetries: 3, wantRetries: 2},
		{name: "above the configured budget", jobRetries: 5, wantRetries: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &failCommand{retries: -1}
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "discover-grants", Retries: tt.jobRetries}}

			h := NewErrorHandler(nopLogger{})
			h.HandleJobError(context.Background(), failJobClient{cmd: cmd}, job,
				NewGrantPoolUnavailableError(fmt.Errorf("connection refused")))

			require.True(t, cmd.sent)
			assert.Equal(t, tt.wantRetries, cmd.retries)
		})
	}
}

func TestHandleJobError_RepeatedFailuresExhaustRetries(t *testing.T) {
	h := NewErrorHandler(nopLogger{})
	retries := int32(3)
	for attempt := 0; attempt < 3; attempt++ {
		cmd := &failCommand{retries: -1}
		job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "discover-grants", Retries: retries}}
		h.HandleJobError(context.Background(), failJobClient{cmd: cmd}, job,
			NewGrantPoolUnavailableError(fmt.Errorf("connection refused")))
		require.Less(t, cmd.retries, retries)
		retries = cmd.retries
	}
	assert.Equal(t, int32(0), retries)
}
