package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/Keyring-Network/keyring-scout/internal/failure"
)

var ErrDuplicateCommand = errors.New("command already registered")

// Handler serves one command. payload is the raw JSON request body and may be empty.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

type ErrorBody struct {
	Code    failure.Code `json:"code"`
	Message string       `json:"message"`
	Remedy  string       `json:"remedy"`
}

type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Dispatcher maps each command name to exactly one handler.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[string]Handler{}}
}

func (d *Dispatcher) Register(name string, handler Handler) error {
	if name == "" || handler == nil {
		return errors.New("command name and handler are required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	d.handlers[name] = handler
	return nil
}

func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the named command and always returns a structured response.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, payload json.RawMessage) (resp Response) {
	d.mu.RLock()
	handler, ok := d.handlers[name]
	d.mu.RUnlock()
	if !ok {
		return Failure(fmt.Errorf("%w: %s", failure.ErrUnknownCommand, name))
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			log.Printf("command panicked name=%s panic=%v", name, recovered)
			resp = Failure(fmt.Errorf("command %s failed unexpectedly", name))
		}
	}()

	data, err := handler(ctx, payload)
	if err != nil {
		log.Printf("command failed name=%s code=%s err=%v", name, failure.CodeOf(err), err)
		return Failure(err)
	}
	return Response{Success: true, Data: data}
}

func Failure(err error) Response {
	code := failure.CodeOf(err)
	return Response{
		Success: false,
		Error: &ErrorBody{
			Code:    code,
			Message: err.Error(),
			Remedy:  failure.Remedy(code),
		},
	}
}

func decode(payload json.RawMessage, target any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return failure.Invalid(fmt.Sprintf("invalid payload: %v", err))
	}
	return nil
}
