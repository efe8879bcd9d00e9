package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const remoteQueueSize = 256

// RemotePublisher forwards events to a control plane's /runs/{id}/events
// endpoint. Publish only enqueues; a single sender goroutine posts events in
// order. Delivery is best effort: failures are logged and a full queue drops
// the event.
type RemotePublisher struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	queue          chan Event
	start          sync.Once
}

func NewRemotePublisher(baseURL string) *RemotePublisher {
	return &RemotePublisher{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		requestTimeout: 5 * time.Second,
		queue:          make(chan Event, remoteQueueSize),
	}
}

func (p *RemotePublisher) Publish(event Event) {
	p.start.Do(func() {
		go p.send()
	})
	select {
	case p.queue <- event:
	default:
		log.Printf("event dropped run_id=%s type=%s reason=queue_full", event.RunID, event.Type)
	}
}

func (p *RemotePublisher) send() {
	for event := range p.queue {
		if err := p.Post(context.Background(), event); err != nil {
			log.Printf("event publish failed run_id=%s type=%s err=%v", event.RunID, event.Type, err)
		}
	}
}

func (p *RemotePublisher) Post(ctx context.Context, event Event) error {
	endpoint := fmt.Sprintf("%s/runs/%s/events", p.baseURL, url.PathEscape(event.RunID))
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	requestCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("control plane event failed: %s", resp.Status)
	}
	return nil
}
