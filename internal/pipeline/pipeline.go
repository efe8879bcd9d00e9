package pipeline

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Keyring-Network/keyring-scout/internal/events"
	"github.com/Keyring-Network/keyring-scout/internal/llm"
)

const DefaultStageTimeout = 60 * time.Second

var ErrEmptyInput = errors.New("research input is empty")

type CredentialSource interface {
	GetCredential(ctx context.Context) (string, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// ProviderFactory builds a model client bound to a decrypted credential.
type ProviderFactory func(apiKey string) (llm.Provider, error)

// StageError aborts a run. Its message is the cause's message, unchanged.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type Config struct {
	StageTimeout time.Duration
}

type Pipeline struct {
	credentials  CredentialSource
	providers    ProviderFactory
	retriever    Retriever
	notifier     events.Publisher
	stageTimeout time.Duration
}

func New(credentials CredentialSource, providers ProviderFactory, retriever Retriever, notifier events.Publisher, cfg Config) *Pipeline {
	timeout := cfg.StageTimeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	return &Pipeline{
		credentials:  credentials,
		providers:    providers,
		retriever:    retriever,
		notifier:     notifier,
		stageTimeout: timeout,
	}
}

// Run executes synthesizing, retrieving and distilling in order and returns
// the distilled text. The first failing stage aborts the run; nothing is retried.
func (p *Pipeline) Run(ctx context.Context, runID string, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}
	apiKey, err := p.credentials.GetCredential(ctx)
	if err != nil {
		return "", err
	}
	provider, err := p.providers(apiKey)
	if err != nil {
		return "", err
	}

	m := newMachine()
	var query string
	err = p.stage(ctx, m, runID, StageSynthesizing, func(ctx context.Context) error {
		raw, err := SynthesizeQuery(ctx, provider, input)
		if err != nil {
			return err
		}
		query, err = PrepareQuery(raw)
		return err
	})
	if err != nil {
		return "", err
	}

	var content string
	err = p.stage(ctx, m, runID, StageRetrieving, func(ctx context.Context) error {
		content, err = p.retriever.Retrieve(ctx, query)
		return err
	})
	if err != nil {
		return "", err
	}

	var result string
	err = p.stage(ctx, m, runID, StageDistilling, func(ctx context.Context) error {
		result, err = Distill(ctx, provider, input, content)
		return err
	})
	if err != nil {
		return "", err
	}

	if err := m.advance(StateDone); err != nil {
		return "", err
	}
	return result, nil
}

func (p *Pipeline) stage(ctx context.Context, m *machine, runID string, stage Stage, fn func(context.Context) error) error {
	if err := m.advance(stateFor(stage)); err != nil {
		return err
	}
	p.notify(StageEvent(runID, stage, "pipeline"))

	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	if err := fn(stageCtx); err != nil {
		_ = m.advance(StateError)
		log.Printf("pipeline stage failed run_id=%s stage=%s err=%v", runID, stage, err)
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func (p *Pipeline) notify(event events.Event) {
	if p.notifier == nil {
		return
	}
	p.notifier.Publish(event)
}

func StageEvent(runID string, stage Stage, source string) events.Event {
	event := events.New(runID, events.TypeStageStarted, source, map[string]any{
		"label": stage.Label(),
	})
	event.Stage = string(stage)
	return event
}
