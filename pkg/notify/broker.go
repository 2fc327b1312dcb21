package notify

import (
	"sync"

	"github.com/cuemby/strata/pkg/types"
)

// Notification is one fan-out message: a persisted Event plus the subject it
// was published under. Subject is computed once at publish time so every
// subscriber's filter match is a cheap string comparison.
type Notification struct {
	Event   *types.Event
	Subject string
}

// Subscription is a channel-backed live feed, scoped to a subject filter by
// prefix (see Matches). The channel is buffered; a slow consumer misses live
// notifications rather than stalling the publisher, and recovers them on
// reconnect via Replay.
type Subscription struct {
	ch     chan *Notification
	filter string
}

// C returns the channel notifications arrive on.
func (s *Subscription) C() <-chan *Notification { return s.ch }

// Broker distributes committed events to live subscribers. It never touches
// storage itself — Emit is called after a transaction commits, and Replay
// reads missed events back out of the store for a reconnecting subscriber.
type Broker struct {
	mu            sync.RWMutex
	subscriptions map[*Subscription]bool
	notifyCh      chan *Notification
	stopCh        chan struct{}
}

// NewBroker constructs a stopped Broker. Call Start before Publish.
func NewBroker() *Broker {
	return &Broker{
		subscriptions: make(map[*Subscription]bool),
		notifyCh:      make(chan *Notification, 256),
		stopCh:        make(chan struct{}),
	}
}

// Start begins the broker's distribution loop in its own goroutine.
func (b *Broker) Start() {
	go b.run()
}

// Stop halts the distribution loop. Subsequent Publish calls are dropped.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe registers a live feed scoped to filter (empty matches
// everything) and returns it. The caller must Unsubscribe when done to
// release the channel.
func (b *Broker) Subscribe(filter string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{ch: make(chan *Notification, 64), filter: filter}
	b.subscriptions[sub] = true
	return sub
}

// Unsubscribe removes and closes a live feed.
func (b *Broker) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscriptions[sub]; !ok {
		return
	}
	delete(b.subscriptions, sub)
	close(sub.ch)
}

// Publish hands a notification to the distribution loop. It blocks while the
// queue is full, until the loop makes room or Stop is called; once Stop has
// been called the notification is dropped.
func (b *Broker) Publish(n *Notification) {
	select {
	case b.notifyCh <- n:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case n := <-b.notifyCh:
			b.broadcast(n)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(n *Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscriptions {
		if !Matches(sub.filter, n.Subject) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			// subscriber buffer full; it will recover via Replay on
			// reconnect using its durable watermark.
		}
	}
}

// SubscriberCount returns the number of live (not necessarily durable)
// subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
