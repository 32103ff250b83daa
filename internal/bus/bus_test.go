package bus

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gillepool/interactivity/internal/events"
)

type recorder struct {
	mu       sync.Mutex
	messages []events.MessageCreatedEvent
	reaction []events.ReactionEvent
}

func (r *recorder) onMessage(evt events.MessageCreatedEvent) {
	r.mu.Lock()
	r.messages = append(r.messages, evt)
	r.mu.Unlock()
}

func (r *recorder) onReaction(evt events.ReactionEvent) {
	r.mu.Lock()
	r.reaction = append(r.reaction, evt)
	r.mu.Unlock()
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages), len(r.reaction)
}

func TestBusDeliversInArrivalOrder(t *testing.T) {
	b := New(nil)
	defer func() { _ = b.Close() }()

	rec := &recorder{}
	b.SubscribeMessages(rec.onMessage)
	b.SubscribeReactions(rec.onReaction)

	for i := 0; i < 10; i++ {
		b.Publish(events.MessageCreatedEvent{ID: fmt.Sprintf("m%d", i)})
	}
	b.Publish(events.ReactionEvent{Emoji: "👍", MessageID: "m0"})

	require.Eventually(t, func() bool {
		msgs, reactions := rec.counts()
		return msgs == 10 && reactions == 1
	}, time.Second, time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, evt := range rec.messages {
		assert.Equal(t, fmt.Sprintf("m%d", i), evt.ID)
	}
	assert.Equal(t, "👍", rec.reaction[0].Emoji)
}

func TestBusCloseDrainsQueuedEvents(t *testing.T) {
	b := New(nil)

	rec := &recorder{}
	b.SubscribeMessages(rec.onMessage)

	for i := 0; i < 100; i++ {
		b.Publish(events.MessageCreatedEvent{ID: fmt.Sprintf("m%d", i)})
	}

	require.NoError(t, b.Close())

	msgs, _ := rec.counts()
	assert.Equal(t, 100, msgs, "Close must deliver everything already queued")
}

func TestBusPublishAfterCloseIsNoop(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Close())

	assert.NotPanics(t, func() {
		b.Publish(events.MessageCreatedEvent{ID: "late"})
	})
}

func TestBusCloseTwice(t *testing.T) {
	b := New(nil)
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Close(), ErrClosed)
}

func TestBusPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := New(nil)
	defer func() { _ = b.Close() }()

	release := make(chan struct{})
	b.SubscribeMessages(func(events.MessageCreatedEvent) {
		<-release
	})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(events.MessageCreatedEvent{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publishing blocked behind a slow subscriber")
	}
	close(release)
}
