package main

import (
	"log"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/Keyring-Network/keyring-scout/internal/config"
	"github.com/Keyring-Network/keyring-scout/internal/events"
	"github.com/Keyring-Network/keyring-scout/internal/keystore"
	"github.com/Keyring-Network/keyring-scout/internal/llm"
	"github.com/Keyring-Network/keyring-scout/internal/retrieval"
	"github.com/Keyring-Network/keyring-scout/internal/store"
	"github.com/Keyring-Network/keyring-scout/internal/store/backends"
	"github.com/Keyring-Network/keyring-scout/internal/vault"
	"github.com/Keyring-Network/keyring-scout/internal/workflows"
)

var (
	loadConfig    = config.Load
	dialTemporal  = client.Dial
	newBackend    = backends.Open
	newActivities = func(cfg config.Config, credentials *vault.Vault) *workflows.ResearchActivities {
		return workflows.NewResearchActivities(
			credentials,
			llm.Factory(llm.Config{
				Provider: cfg.LLMProvider,
				Model:    cfg.LLMModel,
				BaseURL:  cfg.LLMBaseURL,
			}),
			retrieval.New(retrieval.Config{BaseURL: cfg.RetrievalBaseURL}),
			events.NewRemotePublisher(cfg.ControlPlaneURL),
		)
	}
	newWorker       = worker.New
	workerInterrupt = worker.InterruptCh
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
	temporalClient, err := dialTemporal(client.Options{
		HostPort: cfg.TemporalAddress,
	})
	if err != nil {
		return err
	}
	if temporalClient != nil {
		defer temporalClient.Close()
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	entries := store.New(backend)

	// The worker never provisions the master key; credentials stay unreadable
	// until the scout service has started once against the same store.
	credentials := vault.New(keystore.New(entries), entries)
	activities := newActivities(cfg, credentials)

	stageTimeout := time.Duration(cfg.StageTimeoutSeconds) * time.Second
	w := newWorker(temporalClient, cfg.TemporalTaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 16,
		WorkerStopTimeout:                  stageTimeout,
	})
	w.RegisterWorkflow(workflows.ResearchWorkflow)
	w.RegisterActivity(activities)

	log.Printf("scout worker started task_queue=%s store=%s", cfg.TemporalTaskQueue, cfg.StoreBackend)
	if err := w.Run(workerInterrupt()); err != nil {
		return err
	}

	return nil
}
