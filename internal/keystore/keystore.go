package keystore

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Keyring-Network/keyring-scout/internal/store"
)

const KeySize = 32

var ErrKeyNotFound = errors.New("master key not found")

var randReader io.Reader = rand.Reader

type KeyStore struct {
	store  store.Store
	group  singleflight.Group
	mu     sync.RWMutex
	cached []byte
}

func New(st store.Store) *KeyStore {
	return &KeyStore{store: st}
}

// EnsureMasterKey returns the persisted master key, generating and persisting
// one first if none exists. Concurrent callers in this process share a single
// generation; callers in other processes converge through the store's
// insert-if-absent write.
func (k *KeyStore) EnsureMasterKey(ctx context.Context) ([]byte, error) {
	if key := k.cachedKey(); key != nil {
		return key, nil
	}
	result, err, _ := k.group.Do("master-key", func() (any, error) {
		existing, err := k.store.GetMasterKey(ctx)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		generated := make([]byte, KeySize)
		if _, err := io.ReadFull(randReader, generated); err != nil {
			return nil, err
		}
		return k.store.CreateMasterKey(ctx, generated)
	})
	if err != nil {
		return nil, err
	}
	key := result.([]byte)
	k.remember(key)
	return clone(key), nil
}

// MasterKey returns the persisted key or ErrKeyNotFound. It never generates:
// a new key would orphan any envelope sealed under the old one.
func (k *KeyStore) MasterKey(ctx context.Context) ([]byte, error) {
	if key := k.cachedKey(); key != nil {
		return key, nil
	}
	key, err := k.store.GetMasterKey(ctx)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrKeyNotFound
	}
	k.remember(key)
	return clone(key), nil
}

func (k *KeyStore) cachedKey() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.cached == nil {
		return nil
	}
	return clone(k.cached)
}

func (k *KeyStore) remember(key []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cached == nil {
		k.cached = clone(key)
	}
}

func clone(key []byte) []byte {
	return append([]byte{}, key...)
}
