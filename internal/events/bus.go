// Package events provides a simple publish-subscribe event bus used to fan
// out player-state snapshots from the Controller Façade to its adapters.
package events

import (
	"sync"

	"github.com/mehroj-r/ym-bridge/internal/models"
)

const subBufferSize = 8

// Bus is a non-blocking publish-subscribe event bus. Subscribers that are
// slow to consume updates have updates dropped rather than blocking the
// façade's poll loop.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan models.PlayerState
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan models.PlayerState),
	}
}

// Subscribe creates a new subscription with the given id. The returned
// channel receives player-state snapshots after every façade poll tick.
// Call Unsubscribe when done to clean up. Subscribe is additive: no
// unsubscribe is required for the intended process lifetime.
func (b *Bus) Subscribe(id string) <-chan models.PlayerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan models.PlayerState, subBufferSize)
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends a state snapshot to all subscribers. If a subscriber's
// channel is full, the update is dropped for that subscriber rather than
// blocking the publisher.
func (b *Bus) Publish(state models.PlayerState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- state:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
