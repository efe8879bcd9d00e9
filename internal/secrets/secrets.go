package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeySize          = 32
	SaltSize         = 16
	NonceSize        = 12
	DeriveIterations = 100000
)

var (
	ErrInvalidKey       = errors.New("master key must be 32 bytes")
	ErrDecryptionFailed = errors.New("decryption failed")
)

var newGCM = cipher.NewGCM

// Envelope is a self-contained encrypted record. Ciphertext carries the GCM tag.
type Envelope struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// DeriveKey binds a per-operation AES-256 key to salt. The result is never persisted.
func DeriveKey(masterKey []byte, salt []byte) []byte {
	return pbkdf2.Key(masterKey, salt, DeriveIterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under a key derived from masterKey and a fresh salt.
// Salt and nonce are drawn from crypto/rand on every call, so a (key, nonce)
// pair is never reused.
func Encrypt(masterKey []byte, plaintext string) (Envelope, error) {
	if len(masterKey) != KeySize {
		return Envelope{}, ErrInvalidKey
	}
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return Envelope{}, err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Envelope{}, err
	}
	gcm, err := newAEAD(DeriveKey(masterKey, salt))
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, []byte(plaintext), nil),
	}, nil
}

// Decrypt re-derives the key from the envelope salt and opens the ciphertext.
// Any authentication failure is reported as ErrDecryptionFailed.
func Decrypt(masterKey []byte, envelope Envelope) (string, error) {
	if len(masterKey) != KeySize {
		return "", ErrInvalidKey
	}
	if len(envelope.Salt) != SaltSize || len(envelope.Nonce) != NonceSize {
		return "", ErrDecryptionFailed
	}
	gcm, err := newAEAD(DeriveKey(masterKey, envelope.Salt))
	if err != nil {
		return "", err
	}
	if len(envelope.Ciphertext) < gcm.Overhead() {
		return "", ErrDecryptionFailed
	}
	plain, err := gcm.Open(nil, envelope.Nonce, envelope.Ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return newGCM(block)
}
