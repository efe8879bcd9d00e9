package workflows

import (
	"context"
	"errors"
	"log"
	"strings"

	"go.temporal.io/sdk/temporal"

	"github.com/Keyring-Network/keyring-scout/internal/events"
	"github.com/Keyring-Network/keyring-scout/internal/failure"
	"github.com/Keyring-Network/keyring-scout/internal/llm"
	"github.com/Keyring-Network/keyring-scout/internal/pipeline"
)

type SynthesizeInput struct {
	RunID string
	Input string
}

type SynthesizeOutput struct {
	Query string `json:"query"`
}

type RetrieveInput struct {
	RunID string
	Query string
}

type RetrieveOutput struct {
	Content string `json:"content"`
}

type DistillInput struct {
	RunID   string
	Input   string
	Content string
}

type DistillOutput struct {
	Result string `json:"result"`
}

// ResearchActivities runs the pipeline stages on a worker. Each activity
// resolves the credential itself so plaintext never enters workflow history.
type ResearchActivities struct {
	credentials pipeline.CredentialSource
	providers   pipeline.ProviderFactory
	retriever   pipeline.Retriever
	notifier    events.Publisher
}

func NewResearchActivities(credentials pipeline.CredentialSource, providers pipeline.ProviderFactory, retriever pipeline.Retriever, notifier events.Publisher) *ResearchActivities {
	return &ResearchActivities{
		credentials: credentials,
		providers:   providers,
		retriever:   retriever,
		notifier:    notifier,
	}
}

func (a *ResearchActivities) SynthesizeQuery(ctx context.Context, input SynthesizeInput) (SynthesizeOutput, error) {
	if strings.TrimSpace(input.RunID) == "" {
		return SynthesizeOutput{}, runFailure(failure.Invalid("run_id required"))
	}
	provider, err := a.provider(ctx)
	if err != nil {
		return SynthesizeOutput{}, runFailure(err)
	}
	a.notify(pipeline.StageEvent(input.RunID, pipeline.StageSynthesizing, "worker"))
	query, err := pipeline.SynthesizeQuery(ctx, provider, input.Input)
	if err != nil {
		return SynthesizeOutput{}, a.fail(input.RunID, pipeline.StageSynthesizing, err)
	}
	return SynthesizeOutput{Query: query}, nil
}

func (a *ResearchActivities) RetrieveContent(ctx context.Context, input RetrieveInput) (RetrieveOutput, error) {
	a.notify(pipeline.StageEvent(input.RunID, pipeline.StageRetrieving, "worker"))
	content, err := a.retriever.Retrieve(ctx, input.Query)
	if err != nil {
		return RetrieveOutput{}, a.fail(input.RunID, pipeline.StageRetrieving, err)
	}
	return RetrieveOutput{Content: content}, nil
}

func (a *ResearchActivities) DistillContent(ctx context.Context, input DistillInput) (DistillOutput, error) {
	provider, err := a.provider(ctx)
	if err != nil {
		return DistillOutput{}, runFailure(err)
	}
	a.notify(pipeline.StageEvent(input.RunID, pipeline.StageDistilling, "worker"))
	result, err := pipeline.Distill(ctx, provider, input.Input, input.Content)
	if err != nil {
		return DistillOutput{}, a.fail(input.RunID, pipeline.StageDistilling, err)
	}
	return DistillOutput{Result: result}, nil
}

func (a *ResearchActivities) provider(ctx context.Context) (llm.Provider, error) {
	apiKey, err := a.credentials.GetCredential(ctx)
	if err != nil {
		return nil, err
	}
	return a.providers(apiKey)
}

func (a *ResearchActivities) fail(runID string, stage pipeline.Stage, err error) error {
	log.Printf("research activity failed run_id=%s stage=%s err=%v", runID, stage, err)
	return stageFailure(stage, err)
}

func (a *ResearchActivities) notify(event events.Event) {
	if a.notifier == nil {
		return
	}
	a.notifier.Publish(event)
}

// runFailure reports an error that is not tied to a stage, such as a missing credential.
func runFailure(err error) error {
	return temporal.NewNonRetryableApplicationError(err.Error(), string(failure.CodeOf(err)), err)
}

// stageFailure converts err into a non-retryable application error whose type
// is the failure code and whose detail is the stage, so the caller can restore it.
func stageFailure(stage pipeline.Stage, err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return err
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), string(failure.CodeOf(err)), err, string(stage))
}
