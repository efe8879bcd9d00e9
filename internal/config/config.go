package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Port                string
	ControlPlaneURL     string
	StoreBackend        string
	SQLitePath          string
	PostgresURL         string
	PipelineMode        string
	StageTimeoutSeconds int
	TemporalAddress     string
	TemporalTaskQueue   string
	LLMProvider         string
	LLMModel            string
	LLMBaseURL          string
	RetrievalBaseURL    string
	MinCredentialLength int
}

// fileConfig mirrors Config for the optional TOML file named by SCOUT_CONFIG.
// Empty or zero fields leave the default in place.
type fileConfig struct {
	Port            string `toml:"port"`
	ControlPlaneURL string `toml:"control_plane_url"`
	Store           struct {
		Backend     string `toml:"backend"`
		SQLitePath  string `toml:"sqlite_path"`
		PostgresURL string `toml:"postgres_url"`
	} `toml:"store"`
	Pipeline struct {
		Mode                string `toml:"mode"`
		StageTimeoutSeconds int    `toml:"stage_timeout_seconds"`
	} `toml:"pipeline"`
	Temporal struct {
		Address   string `toml:"address"`
		TaskQueue string `toml:"task_queue"`
	} `toml:"temporal"`
	LLM struct {
		Provider string `toml:"provider"`
		Model    string `toml:"model"`
		BaseURL  string `toml:"base_url"`
	} `toml:"llm"`
	Retrieval struct {
		BaseURL string `toml:"base_url"`
	} `toml:"retrieval"`
	Credential struct {
		MinLength int `toml:"min_length"`
	} `toml:"credential"`
}

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	PipelineLocal    = "local"
	PipelineTemporal = "temporal"
)

// Load resolves configuration from defaults, then the SCOUT_CONFIG file when
// set, then the environment.
func Load() (Config, error) {
	var file fileConfig
	if path := os.Getenv("SCOUT_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	port := getEnv("SCOUT_PORT", orDefault(file.Port, "8080"))
	postgresURL := getEnv("POSTGRES_URL", file.Store.PostgresURL)
	if postgresURL == "" {
		postgresURL = buildPostgresURL()
	}
	cfg := Config{
		Port:                port,
		ControlPlaneURL:     getEnv("CONTROL_PLANE_URL", orDefault(file.ControlPlaneURL, "http://localhost:"+port)),
		StoreBackend:        getEnv("STORE_BACKEND", orDefault(file.Store.Backend, StoreSQLite)),
		SQLitePath:          getEnv("SQLITE_PATH", orDefault(file.Store.SQLitePath, "scout.db")),
		PostgresURL:         postgresURL,
		PipelineMode:        getEnv("PIPELINE_MODE", orDefault(file.Pipeline.Mode, PipelineLocal)),
		StageTimeoutSeconds: getEnvInt("PIPELINE_STAGE_TIMEOUT_SECONDS", orDefaultInt(file.Pipeline.StageTimeoutSeconds, 60)),
		TemporalAddress:     getEnv("TEMPORAL_ADDRESS", orDefault(file.Temporal.Address, "localhost:7233")),
		TemporalTaskQueue:   getEnv("TEMPORAL_TASK_QUEUE", orDefault(file.Temporal.TaskQueue, "scout-research")),
		LLMProvider:         getEnv("LLM_PROVIDER", orDefault(file.LLM.Provider, "openai")),
		LLMModel:            getEnv("LLM_MODEL", orDefault(file.LLM.Model, "gpt-4o-mini")),
		LLMBaseURL:          getEnv("LLM_BASE_URL", file.LLM.BaseURL),
		RetrievalBaseURL:    getEnv("RETRIEVAL_BASE_URL", orDefault(file.Retrieval.BaseURL, "https://s.jina.ai")),
		MinCredentialLength: getEnvInt("MIN_CREDENTIAL_LENGTH", orDefaultInt(file.Credential.MinLength, 10)),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("unsupported store backend %q", c.StoreBackend)
	}
	switch c.PipelineMode {
	case PipelineLocal, PipelineTemporal:
	default:
		return fmt.Errorf("unsupported pipeline mode %q", c.PipelineMode)
	}
	if c.StageTimeoutSeconds <= 0 {
		return fmt.Errorf("stage timeout must be positive, got %d", c.StageTimeoutSeconds)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orDefaultInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

func buildPostgresURL() string {
	user := getEnv("POSTGRES_USER", "scout")
	password := getEnv("POSTGRES_PASSWORD", "scout")
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	database := getEnv("POSTGRES_DB", "scout")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, database)
}
