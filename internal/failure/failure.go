package failure

import (
	"errors"

	"github.com/Keyring-Network/keyring-scout/internal/keystore"
	"github.com/Keyring-Network/keyring-scout/internal/secrets"
	"github.com/Keyring-Network/keyring-scout/internal/store"
	"github.com/Keyring-Network/keyring-scout/internal/upstream"
	"github.com/Keyring-Network/keyring-scout/internal/vault"
)

type Code string

const (
	KeyNotFound           Code = "key_not_found"
	CredentialNotSet      Code = "credential_not_set"
	DecryptionFailed      Code = "decryption_failed"
	UpstreamRequestFailed Code = "upstream_request_failed"
	UpstreamEmptyResponse Code = "upstream_empty_response"
	StorageWriteFailed    Code = "storage_write_failed"
	InvalidRequest        Code = "invalid_request"
	UnknownCommand        Code = "unknown_command"
	Internal              Code = "internal"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownCommand = errors.New("unknown command")
)

var sentinels = map[Code]error{
	KeyNotFound:           keystore.ErrKeyNotFound,
	CredentialNotSet:      vault.ErrCredentialNotSet,
	DecryptionFailed:      secrets.ErrDecryptionFailed,
	UpstreamRequestFailed: upstream.ErrRequestFailed,
	UpstreamEmptyResponse: upstream.ErrEmptyResponse,
	StorageWriteFailed:    store.ErrWriteFailed,
	InvalidRequest:        ErrInvalidRequest,
	UnknownCommand:        ErrUnknownCommand,
}

// order matters: a write failure wrapping a transport error is still a write failure.
var precedence = []Code{
	InvalidRequest,
	UnknownCommand,
	KeyNotFound,
	CredentialNotSet,
	DecryptionFailed,
	StorageWriteFailed,
	UpstreamEmptyResponse,
	UpstreamRequestFailed,
}

var remedies = map[Code]string{
	KeyNotFound:           "The installation has no master key. Restart the service to provision one.",
	CredentialNotSet:      "Enter an API key in settings.",
	DecryptionFailed:      "The stored API key could not be decrypted. Reset it and enter it again.",
	UpstreamRequestFailed: "The request failed. Check the API key and retry.",
	UpstreamEmptyResponse: "The service returned no content. Retry the request.",
	StorageWriteFailed:    "Settings could not be saved. Retry.",
	InvalidRequest:        "Check the request and try again.",
	UnknownCommand:        "Check the command name.",
	Internal:              "Retry the request.",
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	for _, code := range precedence {
		if errors.Is(err, sentinels[code]) {
			return code
		}
	}
	return Internal
}

func Remedy(code Code) string {
	if remedy, ok := remedies[code]; ok {
		return remedy
	}
	return remedies[Internal]
}

// Error is an error rebuilt from a code and message, typically after crossing
// a process boundary. It still matches the code's sentinel with errors.Is.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	sentinel, ok := sentinels[e.Code]
	return ok && target == sentinel
}

func Restore(code string, message string) error {
	if message == "" {
		message = string(code)
	}
	known := Code(code)
	if _, ok := remedies[known]; !ok {
		known = Internal
	}
	return &Error{Code: known, Message: message}
}

func Invalid(message string) error {
	return &Error{Code: InvalidRequest, Message: message}
}
