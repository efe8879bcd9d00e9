package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Keyring-Network/keyring-scout/internal/api"
	"github.com/Keyring-Network/keyring-scout/internal/command"
	"github.com/Keyring-Network/keyring-scout/internal/config"
	"github.com/Keyring-Network/keyring-scout/internal/events"
	"github.com/Keyring-Network/keyring-scout/internal/keystore"
	"github.com/Keyring-Network/keyring-scout/internal/llm"
	"github.com/Keyring-Network/keyring-scout/internal/pipeline"
	"github.com/Keyring-Network/keyring-scout/internal/retrieval"
	"github.com/Keyring-Network/keyring-scout/internal/store"
	"github.com/Keyring-Network/keyring-scout/internal/store/backends"
	"github.com/Keyring-Network/keyring-scout/internal/vault"
	"github.com/Keyring-Network/keyring-scout/internal/workflows"
)

type server interface {
	Start(ctx context.Context, addr string) error
}

var (
	loadConfig   = config.Load
	newBroker    = events.NewBroker
	newBackend   = backends.Open
	dialTemporal = client.Dial
	newServer    = func(commands api.Dispatcher, broker api.Broker, st api.Pinger) server {
		return api.NewServer(commands, broker, st)
	}
	notifyContext = signal.NotifyContext
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	entries := store.New(backend)

	// Only startup generates the master key; everything later reads it.
	keys := keystore.New(entries)
	if _, err := keys.EnsureMasterKey(ctx); err != nil {
		return fmt.Errorf("provision master key: %w", err)
	}

	broker := newBroker()
	credentials := vault.New(keys, entries)

	runner, closeRunner, err := newRunner(cfg, credentials, broker)
	if err != nil {
		return err
	}
	defer closeRunner()

	dispatcher := command.NewDispatcher()
	commands := command.NewCommands(credentials, runner, entries, broker, command.Options{
		MinCredentialLength: cfg.MinCredentialLength,
	})
	if err := commands.Register(dispatcher); err != nil {
		return err
	}

	server := newServer(dispatcher, broker, entries)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("scout listening on %s store=%s pipeline=%s", addr, cfg.StoreBackend, cfg.PipelineMode)
	if err := server.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// newRunner builds the pipeline runner for cfg.PipelineMode. The returned
// close func releases any client the runner holds.
func newRunner(cfg config.Config, credentials *vault.Vault, broker *events.Broker) (command.Runner, func(), error) {
	stageTimeout := time.Duration(cfg.StageTimeoutSeconds) * time.Second
	switch cfg.PipelineMode {
	case config.PipelineTemporal:
		workflowClient, err := dialTemporal(client.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			return nil, nil, err
		}
		return workflows.NewService(workflowClient, cfg.TemporalTaskQueue, stageTimeout), workflowClient.Close, nil
	case config.PipelineLocal, "":
		providers := llm.Factory(llm.Config{
			Provider: cfg.LLMProvider,
			Model:    cfg.LLMModel,
			BaseURL:  cfg.LLMBaseURL,
		})
		retriever := retrieval.New(retrieval.Config{BaseURL: cfg.RetrievalBaseURL})
		return pipeline.New(credentials, providers, retriever, broker, pipeline.Config{StageTimeout: stageTimeout}), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported pipeline mode %q", cfg.PipelineMode)
	}
}
