package store

import (
	"encoding/json"
	"fmt"
)

const (
	masterKeySize = 32
	saltSize      = 16
	ivSize        = 12
)

// byteValues encodes bytes as a JSON array of numbers rather than base64.
type byteValues []byte

func (b byteValues) MarshalJSON() ([]byte, error) {
	values := make([]int, len(b))
	for i, v := range b {
		values[i] = int(v)
	}
	return json.Marshal(values)
}

func (b *byteValues) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value out of range: %d", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

type encryptedAPIKeyEntry struct {
	Salt          byteValues `json:"salt"`
	IV            byteValues `json:"iv"`
	EncryptedData byteValues `json:"encryptedData"`
}

func MarshalMasterKey(key []byte) ([]byte, error) {
	if len(key) != masterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", masterKeySize, len(key))
	}
	return json.Marshal(byteValues(key))
}

func UnmarshalMasterKey(data []byte) ([]byte, error) {
	var key byteValues
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, KeyMasterKey, err)
	}
	if len(key) != masterKeySize {
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrCorruptEntry, KeyMasterKey, len(key))
	}
	return []byte(key), nil
}

func MarshalEncryptedAPIKey(envelope EncryptedAPIKey) ([]byte, error) {
	return json.Marshal(encryptedAPIKeyEntry{
		Salt:          envelope.Salt,
		IV:            envelope.IV,
		EncryptedData: envelope.EncryptedData,
	})
}

func UnmarshalEncryptedAPIKey(data []byte) (EncryptedAPIKey, error) {
	var entry encryptedAPIKeyEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return EncryptedAPIKey{}, fmt.Errorf("%w: %s: %v", ErrCorruptEntry, KeyEncryptedAPIKey, err)
	}
	if len(entry.Salt) != saltSize || len(entry.IV) != ivSize || len(entry.EncryptedData) == 0 {
		return EncryptedAPIKey{}, fmt.Errorf("%w: %s has unexpected field sizes", ErrCorruptEntry, KeyEncryptedAPIKey)
	}
	return EncryptedAPIKey{
		Salt:          []byte(entry.Salt),
		IV:            []byte(entry.IV),
		EncryptedData: []byte(entry.EncryptedData),
	}, nil
}
