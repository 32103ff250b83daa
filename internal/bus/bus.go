package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gillepool/interactivity/internal/events"
)

// ErrClosed is returned by Close when the bus was already shut down.
var ErrClosed = errors.New("bus already closed")

// The Bus decouples the Adapter's event callbacks from waiter evaluation.
// Publishers never block: events are appended to an in-memory queue by one
// goroutine and handed to a single dispatcher goroutine that delivers them
// to subscribers in arrival order. Ordering matters because collection
// waiters must observe events exactly as they arrived.
type Bus struct {
	input chan interface{} // input for any new events, the Bus ensures that callers never block when writing to it
	loop  chan interface{} // used by the dispatcher goroutine to actually process the events

	mu           sync.RWMutex // mu protects concurrent access to the subscriber lists
	msgSubs      []func(events.MessageCreatedEvent)
	reactionSubs []func(events.ReactionEvent)

	logger *zap.Logger
	closed int32 // accessed atomically (non-zero means the bus was shut down already)
	done   chan struct{}
}

func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Bus{
		input:  make(chan interface{}),
		loop:   make(chan interface{}),
		logger: logger,
		done:   make(chan struct{}),
	}

	b.consumeEvents()
	go b.dispatchEvents()

	return b
}

// SubscribeMessages registers fn to be called for every message-created
// event, in arrival order. Subscribers are expected to return quickly; any
// long-running work triggered by an event must happen elsewhere.
func (b *Bus) SubscribeMessages(fn func(events.MessageCreatedEvent)) {
	b.mu.Lock()
	b.msgSubs = append(b.msgSubs, fn)
	b.mu.Unlock()
}

// SubscribeReactions registers fn to be called for every reaction add or
// remove event, in arrival order.
func (b *Bus) SubscribeReactions(fn func(events.ReactionEvent)) {
	b.mu.Lock()
	b.reactionSubs = append(b.reactionSubs, fn)
	b.mu.Unlock()
}

// Publish enqueues an event for dispatch. It never blocks on slow
// subscribers. Publishing after Close is a no-op.
func (b *Bus) Publish(event interface{}) {
	if b.isClosed() {
		return
	}

	defer func() {
		// Close may have won the race and closed the input channel under us.
		if recover() != nil {
			b.logger.Debug("Dropped event published after close")
		}
	}()

	b.input <- event
}

// consumeEvents queues events so emitting callers never block, regardless of
// how fast the dispatcher drains them.
func (b *Bus) consumeEvents() {
	var queue []interface{}

	outChan := func() chan interface{} {
		if len(queue) == 0 {
			return nil
		}
		return b.loop
	}

	nextEvt := func() interface{} {
		if len(queue) == 0 {
			// Prevent index out of bounds if there is no next event. Note that
			// this event is actually never received because the outChan()
			// function above will return "nil" in this case which disables the
			// corresponding select case.
			return nil
		}

		return queue[0]
	}

	go func() {
		for {
			select {
			case event, ok := <-b.input:
				if !ok {
					for _, event := range queue {
						b.loop <- event
					}
					close(b.loop)
					return
				}
				queue = append(queue, event)
			case outChan() <- nextEvt():
				queue = queue[1:]
			}
		}
	}()
}

func (b *Bus) dispatchEvents() {
	for event := range b.loop {
		b.mu.RLock()
		msgSubs := b.msgSubs
		reactionSubs := b.reactionSubs
		b.mu.RUnlock()

		switch evt := event.(type) {
		case events.MessageCreatedEvent:
			for _, fn := range msgSubs {
				fn(evt)
			}
		case events.ReactionEvent:
			for _, fn := range reactionSubs {
				fn(evt)
			}
		default:
			b.logger.Warn("Received event of unknown type", zap.Any("event", event))
		}
	}

	close(b.done)
}

func (b *Bus) isClosed() bool {
	return atomic.LoadInt32(&b.closed) == 1
}

// Close stops accepting new events, delivers everything already queued and
// then returns. Calling Close more than once returns an error.
func (b *Bus) Close() error {
	if !atomic.CompareAndSwapInt32(&b.closed, 0, 1) {
		return ErrClosed
	}

	close(b.input)
	<-b.done
	return nil
}
