package progress

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/futig/design-agent/internal/entity"
)

const subscriberBuffer = 16

// Hub fans session events out to live subscribers. Slow subscribers lose their oldest events.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan entity.SessionEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan entity.SessionEvent]struct{})}
}

// Subscribe emits events of one session until ctx is canceled, then closes the channel.
func (h *Hub) Subscribe(ctx context.Context, sessionID string) (<-chan entity.SessionEvent, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", entity.ErrInvalidParameter)
	}

	ch := make(chan entity.SessionEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan entity.SessionEvent]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()

		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[sessionID], ch)
		if len(h.subs[sessionID]) == 0 {
			delete(h.subs, sessionID)
		}
		close(ch)
	}()

	return ch, nil
}

func (h *Hub) Publish(event entity.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[event.SessionID] {
		push(ch, event)
	}
}

// Subscribers returns the number of live subscribers of a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}

func push(ch chan entity.SessionEvent, event entity.SessionEvent) {
	select {
	case ch <- event:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- event:
	default:
	}
}
