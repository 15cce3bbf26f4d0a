package realtime

import (
	"context"
	"sync"

	"github.com/saeid-a/CoachSync/internal/observability"
)

// Topic selects the events of one table, optionally narrowed by a filter.
type Topic struct {
	Table  string
	Filter Filter
}

// Subscription receives the events of its topics, in publish order, through a
// single queue.
type Subscription struct {
	broker *Broker
	topics []Topic
	queue  *Queue
}

// Next blocks until the next event arrives.
func (s *Subscription) Next(ctx context.Context) (ChangeEvent, error) {
	return s.queue.Pop(ctx)
}

func (s *Subscription) Close() {
	s.broker.unsubscribe(s)
	s.queue.Close()
}

func (s *Subscription) accepts(event ChangeEvent) bool {
	if event.Operation == OperationResync {
		return true
	}
	for _, topic := range s.topics {
		if topic.Table != event.Table {
			continue
		}
		if topic.Filter == nil || topic.Filter(event) {
			return true
		}
	}
	return false
}

// Feed hands out subscriptions to table change events.
type Feed interface {
	Subscribe(topics ...Topic) *Subscription
}

// Broker fans change events out to in-process subscribers. Delivery never
// blocks the publisher; each subscription buffers into its own bounded queue.
type Broker struct {
	mu        sync.RWMutex
	subs      map[*Subscription]struct{}
	queueSize int
}

func NewBroker(queueSize int) *Broker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Broker{
		subs:      make(map[*Subscription]struct{}),
		queueSize: queueSize,
	}
}

func (b *Broker) Subscribe(topics ...Topic) *Subscription {
	sub := &Subscription{
		broker: b,
		topics: topics,
		queue:  NewQueue(b.queueSize),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Broker) Publish(_ context.Context, event ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if !sub.accepts(event) {
			continue
		}
		if sub.queue.Push(event) {
			observability.IncLiveQueueDropped()
		}
	}
	return nil
}

// Resync tells every subscriber to reload its state from the store.
func (b *Broker) Resync(ctx context.Context) {
	_ = b.Publish(ctx, ChangeEvent{Operation: OperationResync})
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}
