// Package notify provides push-style notifications about dialogue
// sessions for host systems that react to conversations starting,
// progressing and ending (audio cues, camera changes, quest triggers).
//
// Notifications are a side channel: the authoritative event stream is
// the slice returned by each session call. The bus dispatches
// synchronously, on the goroutine driving the session.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind tags a notification.
type Kind string

// Notification kinds published by sessions.
const (
	// KindStarted fires when a session starts.
	KindStarted Kind = "session.started"
	// KindNodeActivated fires when the session suspends at a text or
	// choice node.
	KindNodeActivated Kind = "node.activated"
	// KindChoiceMade fires when a player selection is accepted.
	KindChoiceMade Kind = "choice.made"
	// KindEnded fires when a session reaches its end.
	KindEnded Kind = "session.ended"
)

// Notification is one session occurrence.
type Notification struct {
	Kind      Kind
	SessionID string
	// NodeID is set for KindNodeActivated and KindChoiceMade.
	NodeID string
	// EdgeID is set for KindChoiceMade.
	EdgeID int
	// Timestamp is when the notification was published.
	Timestamp time.Time
}

// Handler receives notifications. Handlers run synchronously on the
// publishing goroutine and should return quickly.
type Handler func(Notification)

// Subscription is a handle to an active subscription.
type Subscription struct {
	id  string
	bus *Bus
}

// Unsubscribe removes the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s.bus != nil {
		s.bus.remove(s.id)
	}
}

// Bus fans notifications out to subscribers. Safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

type subscriber struct {
	kinds   map[Kind]bool // nil means all kinds
	handler Handler
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe registers a handler for the given kinds.
// With no kinds, the handler receives every notification.
func (b *Bus) Subscribe(handler Handler, kinds ...Kind) *Subscription {
	if handler == nil {
		panic("notify: handler cannot be nil")
	}
	sub := &subscriber{handler: handler}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = true
		}
	}

	id := uuid.New().String()
	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()
	return &Subscription{id: id, bus: b}
}

// Publish delivers a notification to every matching subscriber.
// The timestamp is filled in if unset.
func (b *Bus) Publish(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.kinds == nil || sub.kinds[n.Kind] {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(n)
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}
