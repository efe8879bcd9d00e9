package upstream

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestCheckStatus(t *testing.T) {
	for _, code := range []int{200, 201, 204, 299} {
		if err := CheckStatus("llm", code, ""); err != nil {
			t.Fatalf("expected %d to pass, got %v", code, err)
		}
	}
	for _, code := range []int{199, 301, 401, 429, 500} {
		err := CheckStatus("llm", code, http.StatusText(code))
		if !errors.Is(err, ErrRequestFailed) {
			t.Fatalf("expected %d to fail with ErrRequestFailed, got %v", code, err)
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != code {
			t.Fatalf("expected StatusError with code %d, got %#v", code, err)
		}
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Service: "retrieval", StatusCode: 401, Status: "401 Unauthorized"}
	if err.Error() != "retrieval request failed: 401 Unauthorized" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	err = &StatusError{Service: "llm", StatusCode: 502}
	if err.Error() != "llm request failed: 502" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if errors.Is(err, ErrEmptyResponse) {
		t.Fatal("status error must not match ErrEmptyResponse")
	}
}

func TestTransport(t *testing.T) {
	if Transport("llm", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	err := Transport("llm", context.DeadlineExceeded)
	if !errors.Is(err, ErrRequestFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestEmpty(t *testing.T) {
	err := Empty("llm")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if !strings.Contains(err.Error(), "llm") {
		t.Fatalf("expected service in message, got %q", err.Error())
	}
}
