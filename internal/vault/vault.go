package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/Keyring-Network/keyring-scout/internal/secrets"
	"github.com/Keyring-Network/keyring-scout/internal/store"
)

var ErrCredentialNotSet = errors.New("no API key configured")

// MasterKeySource is satisfied by *keystore.KeyStore.
type MasterKeySource interface {
	MasterKey(ctx context.Context) ([]byte, error)
}

// Vault holds the single encrypted API credential. Decryption happens only here.
type Vault struct {
	keys  MasterKeySource
	store store.Store
}

func New(keys MasterKeySource, st store.Store) *Vault {
	return &Vault{keys: keys, store: st}
}

func (v *Vault) SetCredential(ctx context.Context, plaintext string) error {
	masterKey, err := v.keys.MasterKey(ctx)
	if err != nil {
		return err
	}
	envelope, err := secrets.Encrypt(masterKey, plaintext)
	if err != nil {
		return err
	}
	return v.store.PutEncryptedAPIKey(ctx, toStored(envelope))
}

// GetCredential decrypts the stored envelope. An envelope that cannot be
// parsed is reported as ErrDecryptionFailed, the same as one that fails
// authentication.
func (v *Vault) GetCredential(ctx context.Context) (string, error) {
	stored, err := v.store.GetEncryptedAPIKey(ctx)
	if errors.Is(err, store.ErrCorruptEntry) {
		return "", fmt.Errorf("%w: %w", secrets.ErrDecryptionFailed, err)
	}
	if err != nil {
		return "", err
	}
	if stored == nil {
		return "", ErrCredentialNotSet
	}
	masterKey, err := v.keys.MasterKey(ctx)
	if err != nil {
		return "", err
	}
	return secrets.Decrypt(masterKey, fromStored(*stored))
}

// HasCredential reports whether an envelope is stored. It does not decrypt,
// so a damaged envelope still counts as configured.
func (v *Vault) HasCredential(ctx context.Context) (bool, error) {
	stored, err := v.store.GetEncryptedAPIKey(ctx)
	if errors.Is(err, store.ErrCorruptEntry) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return stored != nil, nil
}

func (v *Vault) ClearCredential(ctx context.Context) error {
	return v.store.DeleteEncryptedAPIKey(ctx)
}

// Hint returns the last four characters of the stored credential, or "" when none is set.
func (v *Vault) Hint(ctx context.Context) (string, error) {
	plaintext, err := v.GetCredential(ctx)
	if errors.Is(err, ErrCredentialNotSet) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return hint(plaintext), nil
}

func hint(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return string(runes)
	}
	return string(runes[len(runes)-4:])
}

func toStored(envelope secrets.Envelope) store.EncryptedAPIKey {
	return store.EncryptedAPIKey{
		Salt:          envelope.Salt,
		IV:            envelope.Nonce,
		EncryptedData: envelope.Ciphertext,
	}
}

func fromStored(stored store.EncryptedAPIKey) secrets.Envelope {
	return secrets.Envelope{
		Salt:       stored.Salt,
		Nonce:      stored.IV,
		Ciphertext: stored.EncryptedData,
	}
}
