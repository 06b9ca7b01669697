package push

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

const defaultBuffer = 16

// Subscription is one live listener on a screen's event stream. Events is
// closed when the subscription ends, either by Close or because the hub
// dropped a subscriber that fell too far behind.
type Subscription struct {
	ID       string
	ScreenID string

	events chan model.PushEvent
	hub    *Hub
}

// Events returns the receive side of the subscription.
func (s *Subscription) Events() <-chan model.PushEvent {
	return s.events
}

// Close detaches the subscription from the hub. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub fans screen events out to subscribers grouped by screen ID.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int

	mirrors  []Mirror
	mirrorCh chan model.PushEvent
	stopOnce sync.Once
	done     chan struct{}
}

// NewHub creates a hub whose subscribers buffer up to buffer events. Every
// broadcast is also handed to the mirrors from a background goroutine.
func NewHub(buffer int, mirrors ...Mirror) *Hub {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	h := &Hub{
		subs:    make(map[string]map[*Subscription]struct{}),
		buffer:  buffer,
		mirrors: mirrors,
		done:    make(chan struct{}),
	}
	if len(mirrors) > 0 {
		h.mirrorCh = make(chan model.PushEvent, 256)
		go h.runMirrors()
	}
	return h
}

// Subscribe registers a listener for screenID. The connected event built from
// snapshot is queued before the subscription can receive any broadcast, so a
// caller holding the screen state lock gets a gap-free stream.
func (h *Hub) Subscribe(connected model.PushEvent) *Subscription {
	sub := &Subscription{
		ID:       uuid.New().String(),
		ScreenID: connected.ScreenID,
		events:   make(chan model.PushEvent, h.buffer+1),
	}
	sub.hub = h
	sub.events <- connected

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[sub.ScreenID] == nil {
		h.subs[sub.ScreenID] = make(map[*Subscription]struct{})
	}
	h.subs[sub.ScreenID][sub] = struct{}{}

	log.Debug().
		Str("subscription_id", sub.ID).
		Str("screen_id", sub.ScreenID).
		Int("total_subscribers", len(h.subs[sub.ScreenID])).
		Msg("subscriber registered")
	return sub
}

// Broadcast delivers evt to the subscribers of evt.ScreenID without blocking.
// A subscriber whose buffer is full is dropped and its stream closed.
func (h *Hub) Broadcast(evt model.PushEvent) {
	h.mu.Lock()
	for sub := range h.subs[evt.ScreenID] {
		select {
		case sub.events <- evt:
		default:
			log.Warn().
				Str("subscription_id", sub.ID).
				Str("screen_id", sub.ScreenID).
				Msg("subscriber buffer full, dropping subscriber")
			h.removeLocked(sub)
		}
	}
	h.mu.Unlock()

	if h.mirrorCh == nil {
		return
	}
	select {
	case h.mirrorCh <- evt:
	default:
		log.Warn().Str("screen_id", evt.ScreenID).Msg("mirror queue full, dropping event")
	}
}

// Subscribers returns the number of live subscriptions for screenID.
func (h *Hub) Subscribers(screenID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[screenID])
}

// Close ends every subscription and stops the mirrors.
func (h *Hub) Close() {
	h.mu.Lock()
	for _, subs := range h.subs {
		for sub := range subs {
			h.removeLocked(sub)
		}
	}
	h.mu.Unlock()

	h.stopOnce.Do(func() {
		close(h.done)
	})
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// removeLocked closes the stream only when the subscription is still
// registered, which makes removal idempotent.
func (h *Hub) removeLocked(sub *Subscription) {
	subs, ok := h.subs[sub.ScreenID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.events)
	if len(subs) == 0 {
		delete(h.subs, sub.ScreenID)
	}
	log.Debug().Str("subscription_id", sub.ID).Str("screen_id", sub.ScreenID).Msg("subscriber removed")
}

func (h *Hub) runMirrors() {
	defer func() {
		for _, m := range h.mirrors {
			m.Close()
		}
	}()
	for {
		select {
		case <-h.done:
			return
		case evt := <-h.mirrorCh:
			for _, m := range h.mirrors {
				if err := m.Publish(context.Background(), evt); err != nil {
					log.Error().Err(err).Str("screen_id", evt.ScreenID).Msg("failed to mirror event")
				}
			}
		}
	}
}
