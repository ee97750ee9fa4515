package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds one event delivery to one subscriber.
const writeTimeout = 5 * time.Second

// Event is one broadcast message on the event feed.
type Event struct {
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventBus broadcasts tool activity to WebSocket subscribers. It satisfies
// audit.Bus, so the audit recorder publishes through it. A slow subscriber
// only loses its own events; delivery to the rest is unaffected.
type EventBus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes to conn
}

// NewEventBus creates an EventBus with no subscribers.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Emit broadcasts an event to all current subscribers. It never blocks the
// caller beyond the per-subscriber write timeout and never returns an error:
// event delivery is best effort.
func (b *EventBus) Emit(event string, payload map[string]any) {
	msg := Event{Event: event, Payload: payload, Timestamp: time.Now().UTC()}
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}

	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		go func(s *subscriber) {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()

			s.mu.Lock()
			err := s.conn.Write(ctx, websocket.MessageText, data)
			s.mu.Unlock()
			if err != nil {
				b.drop(s)
			}
		}(s)
	}
}

// ServeHTTP upgrades the request to a WebSocket and subscribes it to the
// feed. The connection is held open until the client goes away or the bus
// closes; inbound messages are read and discarded to service control frames.
func (b *EventBus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket accept failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	s := &subscriber{conn: conn}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	b.subs[s] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()

	b.logger.Info("event subscriber connected", "remote_addr", r.RemoteAddr, "subscribers", count)

	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}
	b.drop(s)
}

// Subscribers returns the current subscriber count.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close disconnects all subscribers and rejects new ones.
func (b *EventBus) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*subscriber, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.subs = make(map[*subscriber]struct{})
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.conn.Close(websocket.StatusGoingAway, "shutting down")
	}
}

func (b *EventBus) drop(s *subscriber) {
	b.mu.Lock()
	_, present := b.subs[s]
	delete(b.subs, s)
	b.mu.Unlock()

	if present {
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
		b.logger.Info("event subscriber disconnected")
	}
}
