// Package bus provides a bounded, lossy broadcast channel for live
// sensor readings.
//
// Every subscriber sees entries in publish order from the moment it
// subscribes. The buffer is a fixed-size ring: a subscriber that falls
// more than the capacity behind loses the oldest entries and is told
// how many it missed. Publishing never blocks, whatever the consumers
// are doing.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aeris-iot/aeris-core/internal/sensor"
)

// DefaultCapacity is the ring size used by the supervisor.
const DefaultCapacity = 100

// ErrClosed is returned by Recv after the bus has been closed and the
// subscriber has drained everything buffered before the close.
var ErrClosed = errors.New("bus: closed")

// LagError reports that a slow subscriber missed entries. Receiving
// resumes from the oldest entry still buffered; the error is delivered
// once per overrun.
type LagError struct {
	// Skipped is the number of entries discarded for this subscriber.
	Skipped uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("bus: subscriber lagged, skipped %d entries", e.Skipped)
}

// Bus is a broadcast channel carrying sensor entries from the broker
// listener to live HTTP streams.
//
// All methods are safe for concurrent use.
type Bus struct {
	mu     sync.Mutex
	ring   []sensor.SensorEntry
	cap    uint64
	next   uint64 // sequence number of the next published entry
	closed bool

	subs map[*Subscriber]struct{}
}

// Subscriber is a single consumer's view of the bus. Not safe for
// concurrent use; each consumer owns its subscriber.
type Subscriber struct {
	bus    *Bus
	cursor uint64
	gone   bool // set by Unsubscribe
	// notify carries a wakeup when new entries arrive or the bus closes.
	// Capacity 1: repeated publishes coalesce into one pending wakeup.
	notify chan struct{}
}

// New creates a bus whose ring holds capacity entries.
// Panics if capacity is not positive.
func New(capacity int) *Bus {
	if capacity <= 0 {
		panic("bus: capacity must be positive")
	}
	return &Bus{
		ring: make([]sensor.SensorEntry, capacity),
		cap:  uint64(capacity),
		subs: make(map[*Subscriber]struct{}),
	}
}

// Publish appends an entry to the ring and wakes subscribers.
//
// It returns the number of subscribers at the time of publishing; zero
// means the entry went nowhere, which is normal when no live stream is
// open. Publish never blocks on slow subscribers: if one has not kept
// up, its oldest entries are overwritten and it observes a LagError on
// its next Recv.
func (b *Bus) Publish(entry sensor.SensorEntry) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}

	b.ring[b.next%b.cap] = entry
	b.next++

	for sub := range b.subs {
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
	return len(b.subs)
}

// Subscribe returns a subscriber positioned at the current head: it
// receives only entries published after this call.
// Returns nil if the bus is already closed.
func (b *Bus) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		bus:    b,
		cursor: b.next,
		notify: make(chan struct{}, 1),
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Close shuts the bus down. Subscribers drain what is still buffered,
// then their Recv returns ErrClosed. Publish after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for sub := range b.subs {
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Recv returns the next entry for this subscriber.
//
// It blocks until an entry is available, the context is cancelled, or
// the bus closes. If the subscriber fell more than the ring capacity
// behind, Recv returns a *LagError naming how many entries were
// skipped; the next call resumes from the oldest buffered entry.
func (s *Subscriber) Recv(ctx context.Context) (sensor.SensorEntry, error) {
	for {
		entry, ready, err := s.tryRecv()
		if ready {
			return entry, err
		}

		select {
		case <-ctx.Done():
			return sensor.SensorEntry{}, ctx.Err()
		case <-s.notify:
		}
	}
}

// tryRecv attempts a non-blocking read of the next entry.
// ready reports whether an entry or terminal error is available.
func (s *Subscriber) tryRecv() (entry sensor.SensorEntry, ready bool, err error) {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.gone {
		return sensor.SensorEntry{}, true, ErrClosed
	}

	// Overwritten before this subscriber got there.
	if b.next > s.cursor+b.cap {
		skipped := b.next - b.cap - s.cursor
		s.cursor = b.next - b.cap
		return sensor.SensorEntry{}, true, &LagError{Skipped: skipped}
	}

	if s.cursor < b.next {
		entry = b.ring[s.cursor%b.cap]
		s.cursor++
		return entry, true, nil
	}

	if b.closed {
		return sensor.SensorEntry{}, true, ErrClosed
	}
	return sensor.SensorEntry{}, false, nil
}

// Unsubscribe removes the subscriber from the bus. Safe to call more
// than once. A Recv in flight wakes and returns ErrClosed.
func (s *Subscriber) Unsubscribe() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, s)
	s.gone = true
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
