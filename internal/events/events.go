package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TypeStageStarted       = "stage.started"
	TypeRunCompleted       = "run.completed"
	TypeRunFailed          = "run.failed"
	TypePreferencesUpdated = "preferences.updated"
)

// AllRuns subscribes to every event regardless of run.
const AllRuns = ""

type Event struct {
	RunID   string         `json:"run_id"`
	Seq     int64          `json:"seq"`
	Type    string         `json:"type"`
	Ts      string         `json:"ts"`
	Source  string         `json:"source"`
	Stage   string         `json:"stage,omitempty"`
	TraceID string         `json:"trace_id,omitempty"`
	Payload map[string]any `json:"payload"`
}

// Publisher delivers progress events. Publish must not block and must not fail
// the caller when nobody is listening.
type Publisher interface {
	Publish(event Event)
}

func NormalizeType(eventType string) string {
	return strings.TrimSpace(strings.ToLower(eventType))
}

func IsTerminal(eventType string) bool {
	return eventType == TypeRunCompleted || eventType == TypeRunFailed
}

func New(runID string, eventType string, source string, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		RunID:   runID,
		Type:    eventType,
		Ts:      time.Now().UTC().Format(time.RFC3339Nano),
		Source:  source,
		TraceID: uuid.New().String(),
		Payload: payload,
	}
}

type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	seqMu       sync.Mutex
	seq         map[string]int64
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: map[string]map[chan Event]struct{}{},
		seq:         map[string]int64{},
	}
}

// Subscribe returns a channel that receives events for runID, or for every run
// when runID is AllRuns. The channel is closed once ctx is done.
func (b *Broker) Subscribe(ctx context.Context, runID string) <-chan Event {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subscribers[runID] == nil {
		b.subscribers[runID] = map[chan Event]struct{}{}
	}
	b.subscribers[runID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if b.subscribers[runID] != nil {
			delete(b.subscribers[runID], ch)
			if len(b.subscribers[runID]) == 0 {
				delete(b.subscribers, runID)
			}
		}
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish fans event out to run and all-runs subscribers, dropping it for any
// subscriber whose buffer is full. Events without a sequence number get the
// next one for their run.
func (b *Broker) Publish(event Event) {
	event.Type = NormalizeType(event.Type)
	if event.Seq == 0 && event.RunID != "" {
		event.Seq = b.nextSeq(event.RunID, IsTerminal(event.Type))
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	b.deliver(b.subscribers[event.RunID], event)
	if event.RunID != AllRuns {
		b.deliver(b.subscribers[AllRuns], event)
	}
}

func (b *Broker) deliver(subscribers map[chan Event]struct{}, event Event) {
	for ch := range subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Broker) nextSeq(runID string, terminal bool) int64 {
	b.seqMu.Lock()
	defer b.seqMu.Unlock()
	next := b.seq[runID] + 1
	if terminal {
		delete(b.seq, runID)
	} else {
		b.seq[runID] = next
	}
	return next
}
