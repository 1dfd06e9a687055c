package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/ports"
)

const defaultSubscriberBuffer = 32

// Hub fans committed decisions out to in-process subscribers such as live
// HTTP streams. A subscriber that falls behind loses messages instead of
// blocking the publisher.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan ports.DecisionMessage
}

var _ ports.DecisionPublisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subscribers: make(map[uuid.UUID]chan ports.DecisionMessage)}
}

// Subscribe registers a subscriber. cancel closes the channel and must be
// called once the caller stops reading.
func (h *Hub) Subscribe(buffer int) (<-chan ports.DecisionMessage, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	id := uuid.New()
	ch := make(chan ports.DecisionMessage, buffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) PublishDecision(ctx context.Context, msg ports.DecisionMessage) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for _, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		logging.Warn(ctx, "decision dropped for slow subscribers", slog.Int("dropped", dropped), slog.Uint64("fault_event_id", msg.TicketID))
	}
	return nil
}

// Fanout publishes one decision to every target with a shared decision id.
// All targets are attempted; their errors are joined.
type Fanout []ports.DecisionPublisher

var _ ports.DecisionPublisher = Fanout(nil)

func (f Fanout) PublishDecision(ctx context.Context, msg ports.DecisionMessage) error {
	if msg.DecisionID == "" {
		msg.DecisionID = uuid.NewString()
	}
	var errList []error
	for _, target := range f {
		if target == nil {
			continue
		}
		if err := target.PublishDecision(ctx, msg); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
