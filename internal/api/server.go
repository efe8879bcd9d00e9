package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Keyring-Network/keyring-scout/internal/command"
	"github.com/Keyring-Network/keyring-scout/internal/events"
	"github.com/Keyring-Network/keyring-scout/internal/failure"
)

const maxCommandBytes = 1 << 20

type Server struct {
	commands  Dispatcher
	broker    Broker
	store     Pinger
	heartbeat time.Duration
}

type Dispatcher interface {
	Dispatch(ctx context.Context, name string, payload json.RawMessage) command.Response
}

type Broker interface {
	Publish(event events.Event)
	Subscribe(ctx context.Context, runID string) <-chan events.Event
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewServer(commands Dispatcher, broker Broker, store Pinger) *Server {
	return &Server{
		commands:  commands,
		broker:    broker,
		store:     store,
		heartbeat: 15 * time.Second,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(quietRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Post("/commands/{name}", s.dispatchCommand)
	r.Get("/events", s.streamAllEvents)
	r.Get("/runs/{id}/events", s.streamRunEvents)
	r.Post("/runs/{id}/events", s.ingestEvent)
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)

	return r
}

func quietRequestLogger(next http.Handler) http.Handler {
	logged := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSuppressRequestLog(r.Method, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		logged.ServeHTTP(w, r)
	})
}

func shouldSuppressRequestLog(method string, path string) bool {
	cleanPath := strings.TrimSpace(path)
	if (method == http.MethodPost || method == http.MethodGet) && strings.HasSuffix(cleanPath, "/events") {
		return true
	}
	if method == http.MethodGet && (cleanPath == "/health" || cleanPath == "/ready") {
		return true
	}
	return method == http.MethodOptions
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type subsystemStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status     string                     `json:"status"`
	Subsystems map[string]subsystemStatus `json:"subsystems"`
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	subsystems := map[string]subsystemStatus{}
	overall := http.StatusOK

	if s.store == nil {
		subsystems["store"] = subsystemStatus{Status: "skipped"}
	} else if err := s.store.Ping(ctx); err != nil {
		subsystems["store"] = subsystemStatus{Status: "error", Error: err.Error()}
		overall = http.StatusServiceUnavailable
	} else {
		subsystems["store"] = subsystemStatus{Status: "ok"}
	}

	status := "ok"
	if overall != http.StatusOK {
		status = "degraded"
	}
	writeJSONStatus(w, readinessResponse{Status: status, Subsystems: subsystems}, overall)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

// dispatchCommand forwards the raw request body to the named command. The
// response body is always a command.Response; the status mirrors its error code.
func (s *Server) dispatchCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var payload []byte
	if r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes+1))
		if err != nil {
			writeJSONStatus(w, command.Failure(failure.Invalid("could not read request body")), http.StatusBadRequest)
			return
		}
		if len(body) > maxCommandBytes {
			writeJSONStatus(w, command.Failure(failure.Invalid("request body too large")), http.StatusRequestEntityTooLarge)
			return
		}
		payload = body
	}

	resp := s.commands.Dispatch(r.Context(), name, json.RawMessage(payload))
	writeJSONStatus(w, resp, statusFor(resp))
}

func statusFor(resp command.Response) int {
	if resp.Success || resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Code {
	case failure.InvalidRequest:
		return http.StatusBadRequest
	case failure.UnknownCommand:
		return http.StatusNotFound
	case failure.CredentialNotSet:
		return http.StatusPreconditionFailed
	case failure.DecryptionFailed:
		return http.StatusUnprocessableEntity
	case failure.UpstreamRequestFailed, failure.UpstreamEmptyResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type ingestEventRequest struct {
	Type    string         `json:"type"`
	Source  string         `json:"source"`
	Ts      string         `json:"ts"`
	Stage   string         `json:"stage"`
	TraceID string         `json:"trace_id"`
	Payload map[string]any `json:"payload"`
}

// ingestEvent accepts progress from workers and rebroadcasts it. Sequence
// numbers are assigned by the broker; nothing is persisted.
func (s *Server) ingestEvent(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	var req ingestEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		http.Error(w, "event type required", http.StatusBadRequest)
		return
	}
	if strings.Contains(req.Type, "_") {
		http.Error(w, "event type must use dot notation", http.StatusBadRequest)
		return
	}

	event := events.Event{
		RunID:   runID,
		Type:    events.NormalizeType(req.Type),
		Ts:      req.Ts,
		Source:  req.Source,
		Stage:   req.Stage,
		TraceID: strings.TrimSpace(req.TraceID),
		Payload: req.Payload,
	}
	if event.Ts == "" {
		event.Ts = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Source == "" {
		event.Source = "worker"
	}
	if event.TraceID == "" {
		event.TraceID = uuid.New().String()
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	s.broker.Publish(event)

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) streamRunEvents(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, chi.URLParam(r, "id"))
}

func (s *Server) streamAllEvents(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, events.AllRuns)
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, runID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	eventsChan := s.broker.Subscribe(ctx, runID)
	// Flush headers so clients can start listening before the first event.
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case event, ok := <-eventsChan:
			if !ok {
				return
			}
			sendSSE(w, event)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("sse marshal failed run_id=%s type=%s err=%v", event.RunID, event.Type, err)
		return
	}
	fmt.Fprintf(w, "id: %s:%d\n", event.RunID, event.Seq)
	fmt.Fprint(w, "event: run_event\n")
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	return server.ListenAndServe()
}
