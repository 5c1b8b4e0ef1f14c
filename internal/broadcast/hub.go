// Package broadcast fans analysis updates out to push subscribers. The
// hub itself is transport-agnostic; the daemon bridges subscriptions
// onto WebSocket connections.
package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"examsight/internal/logging"
)

// Message is one published update.
type Message struct {
	Stream   string    `json:"stream"`
	Modality string    `json:"modality"`
	Payload  any       `json:"payload"`
	SentAt   time.Time `json:"sent_at"`
}

// Subscriber receives messages on a buffered channel. A subscriber that
// stops draining loses messages rather than stalling publishers.
type Subscriber struct {
	stream string
	ch     chan Message

	mu      sync.Mutex
	dropped int
}

// C is the receive side of the subscription.
func (s *Subscriber) C() <-chan Message {
	return s.ch
}

// Dropped reports how many messages were discarded because the buffer
// was full.
func (s *Subscriber) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Hub routes published messages to subscribers.
type Hub struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// NewHub constructs an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		logger: logging.NewComponentLogger(logger, "broadcast"),
		subs:   make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a subscriber. An empty stream name receives every
// stream's updates.
func (h *Hub) Subscribe(stream string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscriber{stream: stream, ch: make(chan Message, buffer)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

// Publish delivers an update to every matching subscriber without
// blocking; full buffers drop the message.
func (h *Hub) Publish(stream, modality string, payload any) {
	msg := Message{Stream: stream, Modality: modality, Payload: payload, SentAt: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.stream != "" && sub.stream != stream {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			sub.mu.Lock()
			sub.dropped++
			dropped := sub.dropped
			sub.mu.Unlock()
			if dropped == 1 || dropped%100 == 0 {
				h.logger.Warn("slow subscriber dropping messages",
					logging.String(logging.FieldStream, stream),
					logging.Int("dropped", dropped))
			}
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
