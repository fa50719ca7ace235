package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/HendryAvila/aluconfig/internal/logging"
)

// Notifier fans session snapshots out to watchers.
type Notifier interface {
	// Publish delivers snap to every current subscriber of snap.ID.
	Publish(ctx context.Context, snap Session) error
	// Subscribe returns a channel of snapshots for id. The channel is
	// closed once ctx is done.
	Subscribe(ctx context.Context, id string) (<-chan Session, error)
}

// subscriberBuffer is how many snapshots a slow watcher may lag behind
// before newer ones are dropped for it.
const subscriberBuffer = 8

// Hub is the in-process Notifier.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan Session]struct{}
	logger *slog.Logger
}

// NewHub creates an empty Hub. logger may be nil.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[chan Session]struct{}),
		logger: logging.Or(logger),
	}
}

// Publish never blocks: a subscriber with a full buffer misses snap.
func (h *Hub) Publish(_ context.Context, snap Session) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[snap.ID] {
		select {
		case ch <- snap:
		default:
			h.logger.Warn("session hub: dropping snapshot for slow watcher", "session_id", snap.ID)
		}
	}
	return nil
}

// Subscribe registers a watcher for id until ctx is done.
func (h *Hub) Subscribe(ctx context.Context, id string) (<-chan Session, error) {
	ch := make(chan Session, subscriberBuffer)

	h.mu.Lock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[chan Session]struct{})
	}
	h.subs[id][ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[id], ch)
		if len(h.subs[id]) == 0 {
			delete(h.subs, id)
		}
		h.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

// Watchers returns the number of active subscriptions for id.
func (h *Hub) Watchers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}
