package cache

import (
	"sync"
	"time"

	"github.com/cuemby/holontx/pkg/holon"
)

// EventType names a cache-invalidation event.
type EventType string

const (
	HolonCommitted         EventType = "holon.committed"
	HolonInvalidated       EventType = "holon.invalidated"
	RelationshipInvalidated EventType = "relationship.invalidated"
)

// Event is a cache-coherence notification: some mutation affected a
// saved holon (or one of its relationship collections) and any
// subscriber holding a cached copy must drop it (§4.5 coherence).
type Event struct {
	ID           string
	Type         EventType
	Timestamp    time.Time
	HolonID      holon.HolonId
	Relationship holon.RelationshipName
}

// Subscriber is a channel that receives invalidation events.
type Subscriber chan *Event

// Invalidator fans out cache-invalidation events to subscribers —
// metrics exporters, downstream caches in other processes sharing the
// same persistence adapter, etc.
type Invalidator struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

func NewInvalidator() *Invalidator {
	return &Invalidator{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

func (b *Invalidator) Start() { go b.run() }

func (b *Invalidator) Stop() { close(b.stopCh) }

func (b *Invalidator) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

func (b *Invalidator) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, sub)
	close(sub)
}

func (b *Invalidator) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- &event:
	case <-b.stopCh:
	}
}

func (b *Invalidator) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Invalidator) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

func (b *Invalidator) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
