package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// EntryStore implements Store on top of any Backend using the persisted layout
// shared by every backend.
type EntryStore struct {
	backend Backend
}

func New(backend Backend) *EntryStore {
	return &EntryStore{backend: backend}
}

func (s *EntryStore) GetMasterKey(ctx context.Context) ([]byte, error) {
	data, err := s.backend.Get(ctx, KeyMasterKey)
	if err != nil || data == nil {
		return nil, err
	}
	return UnmarshalMasterKey(data)
}

func (s *EntryStore) CreateMasterKey(ctx context.Context, key []byte) ([]byte, error) {
	encoded, err := MarshalMasterKey(key)
	if err != nil {
		return nil, err
	}
	stored, err := s.backend.PutIfAbsent(ctx, KeyMasterKey, encoded)
	if err != nil {
		return nil, writeFailed(KeyMasterKey, err)
	}
	return UnmarshalMasterKey(stored)
}

func (s *EntryStore) GetEncryptedAPIKey(ctx context.Context) (*EncryptedAPIKey, error) {
	data, err := s.backend.Get(ctx, KeyEncryptedAPIKey)
	if err != nil || data == nil {
		return nil, err
	}
	envelope, err := UnmarshalEncryptedAPIKey(data)
	if err != nil {
		return nil, err
	}
	return &envelope, nil
}

func (s *EntryStore) PutEncryptedAPIKey(ctx context.Context, envelope EncryptedAPIKey) error {
	encoded, err := MarshalEncryptedAPIKey(envelope)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, KeyEncryptedAPIKey, encoded); err != nil {
		return writeFailed(KeyEncryptedAPIKey, err)
	}
	return nil
}

func (s *EntryStore) DeleteEncryptedAPIKey(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyEncryptedAPIKey); err != nil {
		return writeFailed(KeyEncryptedAPIKey, err)
	}
	return nil
}

// GetPreferences never returns nil; showIcon defaults to true when unset.
func (s *EntryStore) GetPreferences(ctx context.Context) (*Preferences, error) {
	prefs := &Preferences{ShowIcon: true}
	data, err := s.backend.Get(ctx, KeyShowIcon)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return prefs, nil
	}
	if err := json.Unmarshal(data, &prefs.ShowIcon); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, KeyShowIcon, err)
	}
	return prefs, nil
}

func (s *EntryStore) UpsertPreferences(ctx context.Context, prefs Preferences) error {
	encoded, err := json.Marshal(prefs.ShowIcon)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, KeyShowIcon, encoded); err != nil {
		return writeFailed(KeyShowIcon, err)
	}
	return nil
}

func (s *EntryStore) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func writeFailed(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrWriteFailed, key, err)
}
