// Package eventqueue implements the per-context pub/sub broker that SSE
// streaming and push-notification delivery both subscribe to. It plays the
// role the teacher's pkg/service/sse broker plays for raw SSE clients, but
// speaks a2a.Event instead of pre-framed bytes, and keeps a replay ring so a
// reconnecting subscriber can resume from a Last-Event-ID.
package eventqueue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/a2a-go/pkg/a2a"
)

const (
	DefaultBufferSize = 256
	DefaultRingSize   = 1024
)

// ErrClosed is returned by Publish once the queue has been closed.
var ErrClosed = &closedError{}

type closedError struct{}

func (*closedError) Error() string { return "eventqueue: closed" }

// Subscription is a live handle onto a Queue. Events reports ChannelClosed
// by closing its channel; callers should check Lagging after a gap is
// suspected (events were dropped under backpressure).
type Subscription struct {
	id     uint64
	ch     chan a2a.Event
	filter a2a.Filter
	queue  *Queue

	mu      sync.Mutex
	lagging bool
}

// Events returns the channel subscribers should range over. It is closed
// when the subscription is unsubscribed or the queue is closed.
func (s *Subscription) Events() <-chan a2a.Event { return s.ch }

// Lagging reports whether this subscriber has missed at least one event
// because its buffer filled (drop-oldest kicked in).
func (s *Subscription) Lagging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lagging
}

func (s *Subscription) setLagging() {
	s.mu.Lock()
	s.lagging = true
	s.mu.Unlock()
}

// Unsubscribe removes the subscription from its queue and closes its
// channel. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.queue.unsubscribe(s.id)
}

// Queue is a single context's (or task's) event bus: one Publish fans out to
// every live Subscription whose filter matches, each over its own bounded
// buffer so one slow subscriber cannot stall another.
type Queue struct {
	mu          sync.RWMutex
	subscribers map[uint64]*Subscription
	nextSubID   uint64

	nextEventID uint64
	ring        []a2a.Event
	ringSize    int

	bufferSize int
	closed     bool
}

func New(bufferSize, ringSize int) *Queue {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if ringSize <= 0 {
		ringSize = DefaultRingSize
	}
	return &Queue{
		subscribers: make(map[uint64]*Subscription),
		bufferSize:  bufferSize,
		ringSize:    ringSize,
	}
}

// Subscribe registers a new subscription matching only events for which
// filter returns true. a2a.Any subscribes to everything on the queue.
func (q *Queue) Subscribe(filter a2a.Filter) *Subscription {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := atomic.AddUint64(&q.nextSubID, 1)
	sub := &Subscription{
		id:     id,
		ch:     make(chan a2a.Event, q.bufferSize),
		filter: filter,
		queue:  q,
	}
	if q.closed {
		close(sub.ch)
		return sub
	}
	q.subscribers[id] = sub
	return sub
}

// Replay returns the buffered events with ID strictly greater than afterID,
// for a subscriber resuming via Last-Event-ID.
func (q *Queue) Replay(afterID uint64) []a2a.Event {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]a2a.Event, 0, len(q.ring))
	for _, e := range q.ring {
		if e.ID > afterID {
			out = append(out, e)
		}
	}
	return out
}

// Publish assigns the next monotonic ID to e, appends it to the replay
// ring, and delivers it to every matching subscriber, dropping the oldest
// buffered event (and marking the subscriber lagging) on overflow.
func (q *Queue) Publish(e a2a.Event) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}

	e.ID = atomic.AddUint64(&q.nextEventID, 1)
	q.ring = append(q.ring, e)
	if len(q.ring) > q.ringSize {
		q.ring = q.ring[len(q.ring)-q.ringSize:]
	}

	subs := make([]*Subscription, 0, len(q.subscribers))
	for _, sub := range q.subscribers {
		if sub.filter == nil || sub.filter(e) {
			subs = append(subs, sub)
		}
	}
	q.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- e:
		default:
			select {
			case <-sub.ch:
			default:
			}
			sub.setLagging()
			select {
			case sub.ch <- e:
			default:
				log.Warn("eventqueue: subscriber buffer full after drop-oldest", "subscriber", sub.id)
			}
		}
	}

	return nil
}

// PublishContext is Publish with a context deadline: publishing itself is
// non-blocking (bounded channels, drop-oldest), so ctx is only checked up
// front, matching the cooperative-cancellation contract used elsewhere.
func (q *Queue) PublishContext(ctx context.Context, e a2a.Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return q.Publish(e)
}

func (q *Queue) unsubscribe(id uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	sub, ok := q.subscribers[id]
	if !ok {
		return
	}
	delete(q.subscribers, id)
	close(sub.ch)
}

// Close publishes a final connection_closed event to every subscriber, then
// closes every subscription channel. Further Publish calls return
// ErrClosed; further Subscribe calls return a subscription whose channel is
// already closed.
func (q *Queue) Close() {
	_ = q.Publish(a2a.Event{Type: a2a.EventConnectionClosed})

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for id, sub := range q.subscribers {
		close(sub.ch)
		delete(q.subscribers, id)
	}
}
