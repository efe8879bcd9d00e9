package backends

import (
	"fmt"

	"github.com/Keyring-Network/keyring-scout/internal/config"
	"github.com/Keyring-Network/keyring-scout/internal/store"
	"github.com/Keyring-Network/keyring-scout/internal/store/memory"
	"github.com/Keyring-Network/keyring-scout/internal/store/postgres"
	"github.com/Keyring-Network/keyring-scout/internal/store/sqlite"
)

// Open returns the backend selected by cfg.StoreBackend. The caller owns Close.
func Open(cfg config.Config) (store.Backend, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreSQLite, "":
		return sqlite.New(cfg.SQLitePath)
	case config.StorePostgres:
		return postgres.New(cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
