package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/Keyring-Network/keyring-scout/internal/command"
	"github.com/Keyring-Network/keyring-scout/internal/events"
)

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Publish(event events.Event) {
	m.Called(event)
}

func (m *MockBroker) Subscribe(ctx context.Context, runID string) <-chan events.Event {
	args := m.Called(ctx, runID)
	if value := args.Get(0); value != nil {
		if ch, ok := value.(chan events.Event); ok {
			return ch
		}
		if ch, ok := value.(<-chan events.Event); ok {
			return ch
		}
	}
	return nil
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, name string, payload json.RawMessage) command.Response {
	args := m.Called(ctx, name, payload)
	return args.Get(0).(command.Response)
}

func newTestServer(t *testing.T, commands Dispatcher, broker Broker, store Pinger) *httptest.Server {
	t.Helper()
	server := NewServer(commands, broker, store)
	return httptest.NewServer(server.Router())
}
