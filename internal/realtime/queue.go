package realtime

import (
	"context"
	"errors"
	"sync"
)

var ErrQueueClosed = errors.New("queue closed")

// Queue is a bounded FIFO of change events. When full, Push discards the
// oldest queued event to make room and flags a resync, which Pop hands out
// ahead of the remaining events so the consumer reloads what it lost.
type Queue struct {
	mu     sync.Mutex
	items  []ChangeEvent
	head   int
	size   int
	resync bool
	closed bool
	ready  chan struct{}
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		items: make([]ChangeEvent, capacity),
		ready: make(chan struct{}, 1),
	}
}

// Push enqueues event and reports whether an older event was dropped.
// Pushing to a closed queue is a no-op.
func (q *Queue) Push(event ChangeEvent) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	dropped := false
	if q.size == len(q.items) {
		q.items[q.head] = ChangeEvent{}
		q.head = (q.head + 1) % len(q.items)
		q.size--
		q.resync = true
		dropped = true
	}
	q.items[(q.head+q.size)%len(q.items)] = event
	q.size++
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return dropped
}

// Pop blocks until an event is available, the queue is closed and drained,
// or ctx is done.
func (q *Queue) Pop(ctx context.Context) (ChangeEvent, error) {
	for {
		q.mu.Lock()
		if q.resync {
			q.resync = false
			q.mu.Unlock()
			return ChangeEvent{Operation: OperationResync}, nil
		}
		if q.size > 0 {
			event := q.items[q.head]
			q.items[q.head] = ChangeEvent{}
			q.head = (q.head + 1) % len(q.items)
			q.size--
			q.mu.Unlock()
			return event, nil
		}
		if q.closed {
			q.mu.Unlock()
			return ChangeEvent{}, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return ChangeEvent{}, ctx.Err()
		}
	}
}

// Len counts the events Pop would return, including a pending resync.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.resync {
		return q.size + 1
	}
	return q.size
}

func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}
