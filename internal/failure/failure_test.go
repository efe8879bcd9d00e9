package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Keyring-Network/keyring-scout/internal/keystore"
	"github.com/Keyring-Network/keyring-scout/internal/secrets"
	"github.com/Keyring-Network/keyring-scout/internal/store"
	"github.com/Keyring-Network/keyring-scout/internal/upstream"
	"github.com/Keyring-Network/keyring-scout/internal/vault"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "key not found", err: keystore.ErrKeyNotFound, want: KeyNotFound},
		{name: "credential not set", err: fmt.Errorf("stage: %w", vault.ErrCredentialNotSet), want: CredentialNotSet},
		{name: "decryption", err: secrets.ErrDecryptionFailed, want: DecryptionFailed},
		{name: "status", err: &upstream.StatusError{Service: "LLM", StatusCode: 401}, want: UpstreamRequestFailed},
		{name: "empty", err: upstream.Empty("LLM"), want: UpstreamEmptyResponse},
		{name: "write", err: fmt.Errorf("%w: masterKey: %w", store.ErrWriteFailed, upstream.ErrRequestFailed), want: StorageWriteFailed},
		{name: "invalid", err: Invalid("bad"), want: InvalidRequest},
		{name: "unknown command", err: fmt.Errorf("%w: Nope", ErrUnknownCommand), want: UnknownCommand},
		{name: "other", err: errors.New("boom"), want: Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRemediesAreDistinct(t *testing.T) {
	seen := map[string]Code{}
	for _, code := range []Code{CredentialNotSet, UpstreamRequestFailed, DecryptionFailed} {
		remedy := Remedy(code)
		if remedy == "" {
			t.Fatalf("missing remedy for %s", code)
		}
		if other, ok := seen[remedy]; ok {
			t.Fatalf("%s shares a remedy with %s", code, other)
		}
		seen[remedy] = code
	}
	if Remedy("made-up") != Remedy(Internal) {
		t.Fatal("expected unknown codes to fall back to the internal remedy")
	}
}

func TestRestore(t *testing.T) {
	err := Restore(string(CredentialNotSet), "no API key configured")
	if !errors.Is(err, vault.ErrCredentialNotSet) {
		t.Fatalf("expected restored error to match sentinel, got %v", err)
	}
	if err.Error() != "no API key configured" {
		t.Fatalf("expected message kept verbatim, got %q", err.Error())
	}
	if CodeOf(err) != CredentialNotSet {
		t.Fatalf("expected code to survive, got %s", CodeOf(err))
	}

	err = Restore(string(UpstreamRequestFailed), "LLM request failed: 401 Unauthorized")
	if !errors.Is(err, upstream.ErrRequestFailed) || errors.Is(err, upstream.ErrEmptyResponse) {
		t.Fatalf("unexpected match for %v", err)
	}

	err = Restore("SomethingElse", "")
	if CodeOf(err) != Internal || err.Error() != "SomethingElse" {
		t.Fatalf("expected internal fallback, got %s %q", CodeOf(err), err.Error())
	}
}
