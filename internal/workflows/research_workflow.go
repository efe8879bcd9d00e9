package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Keyring-Network/keyring-scout/internal/failure"
	"github.com/Keyring-Network/keyring-scout/internal/pipeline"
)

type ResearchInput struct {
	RunID        string
	Input        string
	StageTimeout time.Duration
}

type ResearchResult struct {
	RunID  string `json:"run_id"`
	Result string `json:"result"`
}

// ResearchWorkflow runs the three research stages in order. Activities are
// attempted once; any failure ends the workflow with that stage's error.
func ResearchWorkflow(ctx workflow.Context, input ResearchInput) (ResearchResult, error) {
	timeout := input.StageTimeout
	if timeout <= 0 {
		timeout = pipeline.DefaultStageTimeout
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	logger := workflow.GetLogger(ctx)

	var synthesized SynthesizeOutput
	if err := workflow.ExecuteActivity(ctx, "SynthesizeQuery", SynthesizeInput{
		RunID: input.RunID,
		Input: input.Input,
	}).Get(ctx, &synthesized); err != nil {
		logger.Error("query synthesis failed", "run_id", input.RunID, "error", err)
		return ResearchResult{}, err
	}

	query, err := pipeline.PrepareQuery(synthesized.Query)
	if err != nil {
		logger.Error("synthesized query unusable", "run_id", input.RunID, "error", err)
		return ResearchResult{}, temporal.NewNonRetryableApplicationError(
			err.Error(),
			string(failure.UpstreamEmptyResponse),
			nil,
			string(pipeline.StageSynthesizing),
		)
	}

	var retrieved RetrieveOutput
	if err := workflow.ExecuteActivity(ctx, "RetrieveContent", RetrieveInput{
		RunID: input.RunID,
		Query: query,
	}).Get(ctx, &retrieved); err != nil {
		logger.Error("retrieval failed", "run_id", input.RunID, "error", err)
		return ResearchResult{}, err
	}

	var distilled DistillOutput
	if err := workflow.ExecuteActivity(ctx, "DistillContent", DistillInput{
		RunID:   input.RunID,
		Input:   input.Input,
		Content: retrieved.Content,
	}).Get(ctx, &distilled); err != nil {
		logger.Error("distillation failed", "run_id", input.RunID, "error", err)
		return ResearchResult{}, err
	}

	return ResearchResult{RunID: input.RunID, Result: distilled.Result}, nil
}
