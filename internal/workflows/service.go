package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/Keyring-Network/keyring-scout/internal/failure"
	"github.com/Keyring-Network/keyring-scout/internal/pipeline"
)

const DefaultTaskQueue = "scout-research"

// Service runs research requests as workflows and waits for the result.
type Service struct {
	client       client.Client
	taskQueue    string
	stageTimeout time.Duration
}

func NewService(client client.Client, taskQueue string, stageTimeout time.Duration) *Service {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	if stageTimeout <= 0 {
		stageTimeout = pipeline.DefaultStageTimeout
	}
	return &Service{client: client, taskQueue: taskQueue, stageTimeout: stageTimeout}
}

func (s *Service) Run(ctx context.Context, runID string, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", pipeline.ErrEmptyInput
	}
	options := client.StartWorkflowOptions{
		ID:        workflowID(runID),
		TaskQueue: s.taskQueue,
		// a run ID in flight must not hand back another input's result.
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	run, err := s.client.ExecuteWorkflow(ctx, options, ResearchWorkflow, ResearchInput{
		RunID:        runID,
		Input:        input,
		StageTimeout: s.stageTimeout,
	})
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return "", failure.Invalid(fmt.Sprintf("run %s is already in progress", runID))
	}
	if err != nil {
		return "", err
	}
	var result ResearchResult
	if err := run.Get(ctx, &result); err != nil {
		return "", restoreError(err)
	}
	return result.Result, nil
}

// restoreError rebuilds the stage error raised by an activity so callers can
// match it against the same sentinels as a local run.
func restoreError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	restored := failure.Restore(appErr.Type(), appErr.Message())
	var stage string
	if appErr.HasDetails() && appErr.Details(&stage) == nil && stage != "" {
		return &pipeline.StageError{Stage: pipeline.Stage(stage), Err: restored}
	}
	return restored
}

func workflowID(runID string) string {
	return fmt.Sprintf("research:%s", runID)
}
