package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed covers non-2xx responses and transport failures from an external service.
	ErrRequestFailed = errors.New("upstream request failed")
	ErrEmptyResponse = errors.New("upstream returned an empty response")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Service    string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: %s", e.Service, status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRequestFailed
}

func CheckStatus(service string, statusCode int, status string) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return &StatusError{Service: service, StatusCode: statusCode, Status: status}
}

// Transport wraps a network-level failure so it matches ErrRequestFailed.
func Transport(service string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrRequestFailed, service, err)
}

func Empty(service string) error {
	return fmt.Errorf("%w: %s", ErrEmptyResponse, service)
}
