package store

import (
	"context"
	"errors"
)

const (
	KeyMasterKey       = "masterKey"
	KeyEncryptedAPIKey = "encryptedApiKey"
	KeyShowIcon        = "showIcon"
)

var (
	ErrWriteFailed  = errors.New("storage write failed")
	ErrCorruptEntry = errors.New("stored entry is corrupt")
)

// EncryptedAPIKey is the persisted form of the credential envelope.
type EncryptedAPIKey struct {
	Salt          []byte
	IV            []byte
	EncryptedData []byte
}

type Preferences struct {
	ShowIcon bool
}

// Backend persists raw JSON values by key. Put must replace a value atomically so
// readers observe either the previous or the next complete value. PutIfAbsent
// stores value only when key is missing and returns whatever is stored afterwards.
// Get returns nil, nil for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

type Store interface {
	GetMasterKey(ctx context.Context) ([]byte, error)
	CreateMasterKey(ctx context.Context, key []byte) ([]byte, error)
	GetEncryptedAPIKey(ctx context.Context) (*EncryptedAPIKey, error)
	PutEncryptedAPIKey(ctx context.Context, envelope EncryptedAPIKey) error
	DeleteEncryptedAPIKey(ctx context.Context) error
	GetPreferences(ctx context.Context) (*Preferences, error)
	UpsertPreferences(ctx context.Context, prefs Preferences) error
	Ping(ctx context.Context) error
}
