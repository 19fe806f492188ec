// Package bus carries best-effort server-push notifications from the
// dispatcher to streaming subscribers (SSE, WebSocket). Delivery is
// fire-and-forget: producers never block, and overflow is dropped rather
// than backpressured. Notifications are telemetry, not part of the
// request/response correctness path.
package bus

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Notification is a one-way JSON-RPC message. It carries no id and expects
// no response.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Subscriber drains notifications for one streaming connection.
type Subscriber struct {
	id string
	ch chan Notification
}

// C is the subscriber's receive channel. It is closed on Unsubscribe or
// when the bus shuts down.
func (s *Subscriber) C() <-chan Notification { return s.ch }

// NotificationBus fans notifications out to subscribers over bounded
// per-subscriber buffers. Safe for concurrent producers.
type NotificationBus struct {
	mu      sync.RWMutex
	subs    map[string]*Subscriber
	buffer  int
	closed  bool
	dropped atomic.Int64
}

// NewNotificationBus creates a bus whose subscribers each get a buffer of
// the given size (default 100 when non-positive).
func NewNotificationBus(buffer int) *NotificationBus {
	if buffer <= 0 {
		buffer = 100
	}
	return &NotificationBus{
		subs:   make(map[string]*Subscriber),
		buffer: buffer,
	}
}

// Publish delivers n to every subscriber whose buffer has room and reports
// how many received it. It never blocks: a full buffer or an empty
// subscriber set counts as a drop.
func (b *NotificationBus) Publish(n Notification) int {
	if n.JSONRPC == "" {
		n.JSONRPC = "2.0"
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}
	if len(b.subs) == 0 {
		b.dropped.Add(1)
		return 0
	}

	delivered := 0
	for _, sub := range b.subs {
		select {
		case sub.ch <- n:
			delivered++
		default:
			b.dropped.Add(1)
		}
	}
	return delivered
}

// Subscribe attaches a new streaming consumer. The caller must Unsubscribe
// when its connection ends.
func (b *NotificationBus) Subscribe() *Subscriber {
	sub := &Subscriber{
		id: uuid.NewString(),
		ch: make(chan Notification, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe detaches a subscriber and closes its channel.
func (b *NotificationBus) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
}

// SubscriberCount returns the number of attached subscribers.
func (b *NotificationBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns the total number of notifications discarded because no
// subscriber was attached or a buffer was full.
func (b *NotificationBus) Dropped() int64 {
	return b.dropped.Load()
}

// Close shuts the bus down and closes all subscriber channels.
func (b *NotificationBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
