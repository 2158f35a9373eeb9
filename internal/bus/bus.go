package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultHistorySize is the number of recent events retained for replay.
	DefaultHistorySize = 1000

	// DefaultChannelBuffer is the buffer size for subscriber channels. A
	// slow subscriber drops events rather than blocking publishers.
	DefaultChannelBuffer = 100
)

// SubscriptionID identifies one subscription.
type SubscriptionID string

// Wildcard subscribes to every event type.
const Wildcard EventType = ""

type subscription struct {
	id        SubscriptionID
	eventType EventType
	handler   func(Event)
	ch        chan Event
	done      chan struct{}
}

// Bus is a thread-safe pub/sub hub with bounded event history. Each
// subscriber runs its handler on a dedicated goroutine; publishing never
// blocks on a subscriber.
type Bus struct {
	mu         sync.RWMutex
	subs       map[SubscriptionID]*subscription
	typed      map[EventType]map[SubscriptionID]*subscription
	wildcard   map[SubscriptionID]*subscription
	subCounter uint64

	historyMu   sync.RWMutex
	history     []Event
	historySize int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates a bus with the default history size.
func New() *Bus {
	return NewWithHistory(DefaultHistorySize)
}

// NewWithHistory creates a bus retaining up to historySize recent events.
func NewWithHistory(historySize int) *Bus {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		subs:        make(map[SubscriptionID]*subscription),
		typed:       make(map[EventType]map[SubscriptionID]*subscription),
		wildcard:    make(map[SubscriptionID]*subscription),
		history:     make([]Event, 0, historySize),
		historySize: historySize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Subscribe registers a handler for one event type, or every event when
// eventType is Wildcard. The returned ID unsubscribes later.
func (b *Bus) Subscribe(eventType EventType, handler func(Event)) SubscriptionID {
	if b.closed.Load() {
		return ""
	}

	b.mu.Lock()
	b.subCounter++
	id := SubscriptionID(fmt.Sprintf("sub_%d", b.subCounter))
	sub := &subscription{
		id:        id,
		eventType: eventType,
		handler:   handler,
		ch:        make(chan Event, DefaultChannelBuffer),
		done:      make(chan struct{}),
	}
	b.subs[id] = sub
	if eventType == Wildcard {
		b.wildcard[id] = sub
	} else {
		if b.typed[eventType] == nil {
			b.typed[eventType] = make(map[SubscriptionID]*subscription)
		}
		b.typed[eventType][id] = sub
	}
	b.mu.Unlock()

	b.wg.Add(1)
	go b.run(sub)
	return id
}

// run delivers events to one subscriber until it is removed or the bus
// closes.
func (b *Bus) run(sub *subscription) {
	defer b.wg.Done()
	for {
		select {
		case event := <-sub.ch:
			sub.handler(event)
		case <-sub.done:
			return
		case <-b.ctx.Done():
			return
		}
	}
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(id SubscriptionID) error {
	if b.closed.Load() {
		return fmt.Errorf("bus closed")
	}

	b.mu.Lock()
	sub, ok := b.subs[id]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("subscription %s not found", id)
	}
	delete(b.subs, id)
	if sub.eventType == Wildcard {
		delete(b.wildcard, id)
	} else if typed, ok := b.typed[sub.eventType]; ok {
		delete(typed, id)
		if len(typed) == 0 {
			delete(b.typed, sub.eventType)
		}
	}
	b.mu.Unlock()

	close(sub.done)
	return nil
}

// Publish records the event in history and fans it out. Missing ID or
// timestamp are filled in. A subscriber whose buffer is full misses the
// event; history keeps it for replay.
func (b *Bus) Publish(event Event) error {
	if b.closed.Load() {
		return fmt.Errorf("bus closed")
	}
	if event.ID == "" {
		event.ID = NewEvent(event.Type).ID
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.appendHistory(event)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.wildcard {
		select {
		case sub.ch <- event:
		default:
		}
	}
	for _, sub := range b.typed[event.Type] {
		select {
		case sub.ch <- event:
		default:
		}
	}
	return nil
}

func (b *Bus) appendHistory(event Event) {
	b.historyMu.Lock()
	defer b.historyMu.Unlock()
	b.history = append(b.history, event)
	if len(b.history) > b.historySize {
		b.history = b.history[len(b.history)-b.historySize:]
	}
}

// History returns a copy of the retained events, oldest first.
func (b *Bus) History() []Event {
	b.historyMu.RLock()
	defer b.historyMu.RUnlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// RecentHistory returns the last n retained events, oldest first.
func (b *Bus) RecentHistory(n int) []Event {
	b.historyMu.RLock()
	defer b.historyMu.RUnlock()
	if n > len(b.history) {
		n = len(b.history)
	}
	out := make([]Event, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close shuts the bus down and waits for subscriber goroutines to exit.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("bus already closed")
	}
	b.cancel()
	b.wg.Wait()

	b.mu.Lock()
	b.subs = make(map[SubscriptionID]*subscription)
	b.typed = make(map[EventType]map[SubscriptionID]*subscription)
	b.wildcard = make(map[SubscriptionID]*subscription)
	b.mu.Unlock()
	return nil
}
