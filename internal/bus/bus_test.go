package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPublishToTypedSubscriber(t *testing.T) {
	b := New()
	defer b.Close()

	var got atomic.Value
	b.Subscribe(EventThoughtCreated, func(e Event) { got.Store(e) })

	ev := NewEvent(EventThoughtCreated)
	ev.AgentID = "agent-1"
	ev.ThoughtID = "t-1"
	require.NoError(t, b.Publish(ev))

	waitFor(t, func() bool { return got.Load() != nil })
	received := got.Load().(Event)
	assert.Equal(t, "agent-1", received.AgentID)
	assert.Equal(t, "t-1", received.ThoughtID)
}

func TestTypedSubscriberIgnoresOtherTypes(t *testing.T) {
	b := New()
	defer b.Close()

	var count atomic.Int64
	b.Subscribe(EventBudgetAlert, func(Event) { count.Add(1) })

	require.NoError(t, b.Publish(NewEvent(EventThoughtCreated)))
	require.NoError(t, b.Publish(NewEvent(EventBudgetAlert)))

	waitFor(t, func() bool { return count.Load() == 1 })
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int64(1), count.Load())
}

func TestWildcardSubscriberSeesEverything(t *testing.T) {
	b := New()
	defer b.Close()

	var count atomic.Int64
	b.Subscribe(Wildcard, func(Event) { count.Add(1) })

	for _, typ := range []EventType{EventThoughtCreated, EventBudgetAlert, EventSpeechDecision} {
		require.NoError(t, b.Publish(NewEvent(typ)))
	}

	waitFor(t, func() bool { return count.Load() == 3 })
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	defer b.Close()

	var count atomic.Int64
	id := b.Subscribe(EventThoughtCreated, func(Event) { count.Add(1) })

	require.NoError(t, b.Publish(NewEvent(EventThoughtCreated)))
	waitFor(t, func() bool { return count.Load() == 1 })

	require.NoError(t, b.Unsubscribe(id))
	require.NoError(t, b.Publish(NewEvent(EventThoughtCreated)))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int64(1), count.Load())

	assert.Error(t, b.Unsubscribe(id), "second unsubscribe fails")
}

func TestPublishFillsIdentity(t *testing.T) {
	b := New()
	defer b.Close()

	require.NoError(t, b.Publish(Event{Type: EventCleanupCompleted}))

	history := b.History()
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestHistoryRetainsAndTrims(t *testing.T) {
	b := NewWithHistory(5)
	defer b.Close()

	for i := 0; i < 8; i++ {
		ev := NewEvent(EventRoutingDecision)
		ev.Count = i
		require.NoError(t, b.Publish(ev))
	}

	history := b.History()
	require.Len(t, history, 5)
	assert.Equal(t, 3, history[0].Count, "oldest retained is event 3")
	assert.Equal(t, 7, history[4].Count)

	recent := b.RecentHistory(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 6, recent[0].Count)
	assert.Equal(t, 7, recent[1].Count)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := New()
	defer b.Close()

	block := make(chan struct{})
	b.Subscribe(EventThoughtCreated, func(Event) { <-block })

	done := make(chan struct{})
	go func() {
		defer close(done)
		// More events than the channel buffer; extra ones drop.
		for i := 0; i < DefaultChannelBuffer+10; i++ {
			_ = b.Publish(NewEvent(EventThoughtCreated))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	close(block)
}

func TestCloseRejectsFurtherUse(t *testing.T) {
	b := New()
	b.Subscribe(EventThoughtCreated, func(Event) {})
	require.NoError(t, b.Close())

	assert.Error(t, b.Publish(NewEvent(EventThoughtCreated)))
	assert.Equal(t, SubscriptionID(""), b.Subscribe(EventThoughtCreated, func(Event) {}))
	assert.Error(t, b.Close())
	assert.Zero(t, b.SubscriberCount())
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	var received atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Subscribe(Wildcard, func(Event) { received.Add(1) })
			for j := 0; j < 20; j++ {
				_ = b.Publish(NewEvent(EventProcessCompleted))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, b.SubscriberCount())
	assert.Len(t, b.History(), 200)
	waitFor(t, func() bool { return received.Load() > 0 })
}
