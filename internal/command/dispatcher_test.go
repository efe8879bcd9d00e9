package command

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Keyring-Network/keyring-scout/internal/failure"
	"github.com/Keyring-Network/keyring-scout/internal/vault"
)

func TestRegister_Duplicate(t *testing.T) {
	d := NewDispatcher()
	handler := func(ctx context.Context, payload json.RawMessage) (any, error) { return nil, nil }

	require.NoError(t, d.Register("Ping", handler))
	err := d.Register("Ping", handler)
	require.ErrorIs(t, err, ErrDuplicateCommand)
	require.Error(t, d.Register("", handler))
	require.Error(t, d.Register("Nil", nil))
	require.Equal(t, []string{"Ping"}, d.Names())
}

func TestDispatch_UnknownCommand(t *testing.T) {
	resp := NewDispatcher().Dispatch(context.Background(), "Nope", nil)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, failure.UnknownCommand, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "Nope")
}

func TestDispatch_Success(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("Echo", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return string(payload), nil
	}))

	resp := d.Dispatch(context.Background(), "Echo", json.RawMessage(`{"a":1}`))
	require.True(t, resp.Success)
	require.Nil(t, resp.Error)
	require.Equal(t, `{"a":1}`, resp.Data)
}

func TestDispatch_ErrorBecomesStructuredResponse(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("Fail", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return nil, vault.ErrCredentialNotSet
	}))

	resp := d.Dispatch(context.Background(), "Fail", nil)
	require.False(t, resp.Success)
	require.Equal(t, failure.CredentialNotSet, resp.Error.Code)
	require.Equal(t, vault.ErrCredentialNotSet.Error(), resp.Error.Message)
	require.Equal(t, failure.Remedy(failure.CredentialNotSet), resp.Error.Remedy)

	encoded, err := json.Marshal(resp)
	require.NoError(t, err)
	require.JSONEq(t, `{"success":false,"error":{"code":"credential_not_set","message":"no API key configured","remedy":"Enter an API key in settings."}}`, string(encoded))
}

func TestDispatch_RecoversPanic(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.Register("Panic", func(ctx context.Context, payload json.RawMessage) (any, error) {
		panic("boom")
	}))

	resp := d.Dispatch(context.Background(), "Panic", nil)
	require.False(t, resp.Success)
	require.Equal(t, failure.Internal, resp.Error.Code)
}

func TestDecode(t *testing.T) {
	var target struct {
		Value string `json:"value"`
	}
	require.NoError(t, decode(nil, &target))
	require.NoError(t, decode(json.RawMessage(`{"value":"x"}`), &target))
	require.Equal(t, "x", target.Value)

	err := decode(json.RawMessage(`{`), &target)
	require.True(t, errors.Is(err, failure.ErrInvalidRequest))
}
