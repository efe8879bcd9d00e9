package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Keyring-Network/keyring-scout/internal/events"
	"github.com/Keyring-Network/keyring-scout/internal/failure"
	"github.com/Keyring-Network/keyring-scout/internal/pipeline"
	"github.com/Keyring-Network/keyring-scout/internal/secrets"
	"github.com/Keyring-Network/keyring-scout/internal/store"
	"github.com/Keyring-Network/keyring-scout/internal/vault"
)

const (
	SetCredential     = "SetCredential"
	GetCredential     = "GetCredential"
	HasCredential     = "HasCredential"
	ClearCredential   = "ClearCredential"
	RunPipeline       = "RunPipeline"
	SetIconVisibility = "SetIconVisibility"
	GetPreferences    = "GetPreferences"
)

const DefaultMinCredentialLength = 10

type Vault interface {
	SetCredential(ctx context.Context, plaintext string) error
	GetCredential(ctx context.Context) (string, error)
	HasCredential(ctx context.Context) (bool, error)
	ClearCredential(ctx context.Context) error
	Hint(ctx context.Context) (string, error)
}

// Runner executes one research request, locally or through a workflow engine.
type Runner interface {
	Run(ctx context.Context, runID string, input string) (string, error)
}

type PreferenceStore interface {
	GetPreferences(ctx context.Context) (*store.Preferences, error)
	UpsertPreferences(ctx context.Context, prefs store.Preferences) error
}

type Options struct {
	MinCredentialLength int
}

type Commands struct {
	vault     Vault
	runner    Runner
	prefs     PreferenceStore
	publisher events.Publisher
	minLength int
}

func NewCommands(v Vault, runner Runner, prefs PreferenceStore, publisher events.Publisher, opts Options) *Commands {
	minLength := opts.MinCredentialLength
	if minLength <= 0 {
		minLength = DefaultMinCredentialLength
	}
	return &Commands{
		vault:     v,
		runner:    runner,
		prefs:     prefs,
		publisher: publisher,
		minLength: minLength,
	}
}

func (c *Commands) Register(d *Dispatcher) error {
	handlers := map[string]Handler{
		SetCredential:     c.setCredential,
		GetCredential:     c.getCredential,
		HasCredential:     c.hasCredential,
		ClearCredential:   c.clearCredential,
		RunPipeline:       c.runPipeline,
		SetIconVisibility: c.setIconVisibility,
		GetPreferences:    c.getPreferences,
	}
	for name, handler := range handlers {
		if err := d.Register(name, handler); err != nil {
			return err
		}
	}
	return nil
}

type setCredentialRequest struct {
	Plaintext string `json:"plaintext"`
}

func (c *Commands) setCredential(ctx context.Context, payload json.RawMessage) (any, error) {
	var req setCredentialRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	plaintext := strings.TrimSpace(req.Plaintext)
	if len([]rune(plaintext)) < c.minLength {
		return nil, failure.Invalid(fmt.Sprintf("API key must be at least %d characters", c.minLength))
	}
	if err := c.vault.SetCredential(ctx, plaintext); err != nil {
		return nil, err
	}
	return nil, nil
}

type credentialResponse struct {
	Plaintext *string `json:"plaintext"`
}

func (c *Commands) getCredential(ctx context.Context, _ json.RawMessage) (any, error) {
	plaintext, err := c.vault.GetCredential(ctx)
	if errors.Is(err, vault.ErrCredentialNotSet) {
		return credentialResponse{Plaintext: nil}, nil
	}
	if err != nil {
		return nil, err
	}
	return credentialResponse{Plaintext: &plaintext}, nil
}

type credentialStatus struct {
	Configured bool   `json:"configured"`
	Hint       string `json:"hint,omitempty"`
}

func (c *Commands) hasCredential(ctx context.Context, _ json.RawMessage) (any, error) {
	configured, err := c.vault.HasCredential(ctx)
	if err != nil {
		return nil, err
	}
	status := credentialStatus{Configured: configured}
	if configured {
		hint, err := c.vault.Hint(ctx)
		switch {
		case errors.Is(err, secrets.ErrDecryptionFailed):
			// configured but unreadable; GetCredential reports the failure.
		case err != nil && !errors.Is(err, vault.ErrCredentialNotSet):
			return nil, err
		default:
			status.Hint = hint
		}
	}
	return status, nil
}

func (c *Commands) clearCredential(ctx context.Context, _ json.RawMessage) (any, error) {
	return nil, c.vault.ClearCredential(ctx)
}

type runPipelineRequest struct {
	Input string `json:"input"`
	RunID string `json:"run_id"`
}

type runPipelineResponse struct {
	RunID  string `json:"run_id"`
	Result string `json:"result"`
}

func (c *Commands) runPipeline(ctx context.Context, payload json.RawMessage) (any, error) {
	var req runPipelineRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	input := strings.TrimSpace(req.Input)
	if input == "" {
		return nil, failure.Invalid(pipeline.ErrEmptyInput.Error())
	}
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = uuid.New().String()
	}

	result, err := c.runner.Run(ctx, runID, input)
	if err != nil {
		failed := map[string]any{
			"error": err.Error(),
			"code":  string(failure.CodeOf(err)),
		}
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			failed["stage"] = string(stageErr.Stage)
		}
		c.publish(events.New(runID, events.TypeRunFailed, "control_plane", failed))
		return nil, err
	}
	c.publish(events.New(runID, events.TypeRunCompleted, "control_plane", map[string]any{"result": result}))
	return runPipelineResponse{RunID: runID, Result: result}, nil
}

type iconVisibilityRequest struct {
	ShowIcon *bool `json:"show_icon"`
}

type preferencesResponse struct {
	ShowIcon bool `json:"show_icon"`
}

func (c *Commands) setIconVisibility(ctx context.Context, payload json.RawMessage) (any, error) {
	var req iconVisibilityRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.ShowIcon == nil {
		return nil, failure.Invalid("show_icon is required")
	}
	if err := c.prefs.UpsertPreferences(ctx, store.Preferences{ShowIcon: *req.ShowIcon}); err != nil {
		return nil, err
	}
	c.publish(events.New(events.AllRuns, events.TypePreferencesUpdated, "control_plane", map[string]any{"show_icon": *req.ShowIcon}))
	return preferencesResponse{ShowIcon: *req.ShowIcon}, nil
}

func (c *Commands) getPreferences(ctx context.Context, _ json.RawMessage) (any, error) {
	prefs, err := c.prefs.GetPreferences(ctx)
	if err != nil {
		return nil, err
	}
	return preferencesResponse{ShowIcon: prefs.ShowIcon}, nil
}

func (c *Commands) publish(event events.Event) {
	if c.publisher == nil {
		return
	}
	c.publisher.Publish(event)
}
