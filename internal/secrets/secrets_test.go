package secrets

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"testing"
)

type errorReader struct{}

func (errorReader) Read(p []byte) (int, error) {
	return 0, errors.New("read error")
}

func fixedKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func withNewGCM(t *testing.T, fn func(cipher.Block) (cipher.AEAD, error)) {
	t.Helper()
	old := newGCM
	newGCM = fn
	t.Cleanup(func() {
		newGCM = old
	})
}

func TestDeriveKey_Deterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{7}, SaltSize)
	first := DeriveKey(fixedKey(), salt)
	second := DeriveKey(fixedKey(), salt)
	if len(first) != KeySize {
		t.Fatalf("expected %d byte key, got %d", KeySize, len(first))
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected same derived key for same master key and salt")
	}
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	first := DeriveKey(fixedKey(), bytes.Repeat([]byte{1}, SaltSize))
	second := DeriveKey(fixedKey(), bytes.Repeat([]byte{2}, SaltSize))
	if bytes.Equal(first, second) {
		t.Fatal("expected independent keys for different salts")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := fixedKey()
	inputs := []string{"", "short", "sk-test-0123456789", "with spaces", "line1\nline2", "ünïcødé ✓"}
	for _, input := range inputs {
		envelope, err := Encrypt(key, input)
		if err != nil {
			t.Fatalf("expected no error for %q, got %v", input, err)
		}
		result, err := Decrypt(key, envelope)
		if err != nil {
			t.Fatalf("expected no error for %q, got %v", input, err)
		}
		if result != input {
			t.Fatalf("expected %q, got %q", input, result)
		}
	}
}

func TestEncrypt_EnvelopeShape(t *testing.T) {
	envelope, err := Encrypt(fixedKey(), "secret")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(envelope.Salt) != SaltSize {
		t.Fatalf("expected %d byte salt, got %d", SaltSize, len(envelope.Salt))
	}
	if len(envelope.Nonce) != NonceSize {
		t.Fatalf("expected %d byte nonce, got %d", NonceSize, len(envelope.Nonce))
	}
	if len(envelope.Ciphertext) != len("secret")+16 {
		t.Fatalf("expected ciphertext with appended tag, got %d bytes", len(envelope.Ciphertext))
	}
}

func TestEncrypt_Randomized(t *testing.T) {
	key := fixedKey()
	first, err := Encrypt(key, "same plaintext")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := Encrypt(key, "same plaintext")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if bytes.Equal(first.Salt, second.Salt) {
		t.Fatal("expected fresh salt per encryption")
	}
	if bytes.Equal(first.Nonce, second.Nonce) {
		t.Fatal("expected fresh nonce per encryption")
	}
	if bytes.Equal(first.Ciphertext, second.Ciphertext) {
		t.Fatal("expected different ciphertexts")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	key := fixedKey()
	wrongKey := make([]byte, KeySize)
	copy(wrongKey, key)
	wrongKey[0] ^= 0xff
	envelope, err := Encrypt(key, "secret")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	_, err = Decrypt(wrongKey, envelope)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestDecrypt_FlippedCiphertextBit(t *testing.T) {
	key := fixedKey()
	envelope, err := Encrypt(key, "secret")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for i := range envelope.Ciphertext {
		tampered := Envelope{
			Salt:       envelope.Salt,
			Nonce:      envelope.Nonce,
			Ciphertext: append([]byte{}, envelope.Ciphertext...),
		}
		tampered.Ciphertext[i] ^= 0x01
		result, err := Decrypt(key, tampered)
		if !errors.Is(err, ErrDecryptionFailed) {
			t.Fatalf("byte %d: expected ErrDecryptionFailed, got %v (plaintext %q)", i, err, result)
		}
		if result != "" {
			t.Fatalf("byte %d: expected no plaintext, got %q", i, result)
		}
	}
}

func TestDecrypt_TamperedSaltOrNonce(t *testing.T) {
	key := fixedKey()
	envelope, err := Encrypt(key, "secret")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	salted := envelope
	salted.Salt = append([]byte{}, envelope.Salt...)
	salted.Salt[0] ^= 0xff
	if _, err := Decrypt(key, salted); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed for salt, got %v", err)
	}
	nonced := envelope
	nonced.Nonce = append([]byte{}, envelope.Nonce...)
	nonced.Nonce[0] ^= 0xff
	if _, err := Decrypt(key, nonced); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed for nonce, got %v", err)
	}
}

func TestDecrypt_MalformedEnvelope(t *testing.T) {
	key := fixedKey()
	cases := []Envelope{
		{Salt: make([]byte, 8), Nonce: make([]byte, NonceSize), Ciphertext: make([]byte, 32)},
		{Salt: make([]byte, SaltSize), Nonce: make([]byte, 24), Ciphertext: make([]byte, 32)},
		{Salt: make([]byte, SaltSize), Nonce: make([]byte, NonceSize), Ciphertext: []byte("short")},
	}
	for i, envelope := range cases {
		if _, err := Decrypt(key, envelope); !errors.Is(err, ErrDecryptionFailed) {
			t.Fatalf("case %d: expected ErrDecryptionFailed, got %v", i, err)
		}
	}
}

func TestEncrypt_InvalidKey(t *testing.T) {
	_, err := Encrypt([]byte("short"), "data")
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestDecrypt_InvalidKey(t *testing.T) {
	_, err := Decrypt([]byte("short"), Envelope{})
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestEncrypt_RandError(t *testing.T) {
	oldReader := rand.Reader
	rand.Reader = errorReader{}
	t.Cleanup(func() {
		rand.Reader = oldReader
	})
	_, err := Encrypt(fixedKey(), "data")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEncrypt_NewGCMError(t *testing.T) {
	withNewGCM(t, func(cipher.Block) (cipher.AEAD, error) {
		return nil, errors.New("gcm error")
	})
	_, err := Encrypt(fixedKey(), "data")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDecrypt_NewGCMError(t *testing.T) {
	envelope, err := Encrypt(fixedKey(), "data")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	withNewGCM(t, func(cipher.Block) (cipher.AEAD, error) {
		return nil, errors.New("gcm error")
	})
	_, err = Decrypt(fixedKey(), envelope)
	if err == nil || errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected gcm construction error, got %v", err)
	}
}
