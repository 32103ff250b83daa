// Package interactivity extends a chat-bot client with synchronous waits on
// future chat events: the next matching message, the next matching reaction,
// every reaction over a window, reaction-tally polls and reaction-driven
// paginated messages. Waiters are predicate-based subscriptions raced
// against a deadline; polls and pagination are protocols built on top.
package interactivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gammazero/workerpool"
	"go.uber.org/zap"

	"github.com/gillepool/interactivity/internal/adapter"
	"github.com/gillepool/interactivity/internal/bus"
	"github.com/gillepool/interactivity/internal/events"
	"github.com/gillepool/interactivity/internal/registry"
	"github.com/gillepool/interactivity/internal/storage"
)

var (
	// ErrClosed is returned when a wait is issued against a closed extension.
	ErrClosed = errors.New("interactivity extension is closed")
	// ErrNoOptions is returned by DoPoll when no option emojis were given.
	ErrNoOptions = errors.New("poll needs at least one option emoji")
	// ErrNoPages is returned by SendPaginatedMessage when no pages were given.
	ErrNoPages = errors.New("pagination needs at least one page")
)

// sideEffectWorkers bounds the goroutines running best-effort cleanup and
// archival so they never pile up behind a slow chat API.
const sideEffectWorkers = 4

// The Extension is the entry point of the package. It subscribes once to the
// adapter's event stream and multiplexes it onto any number of concurrently
// registered waiters.
type Extension struct {
	cfg     Config
	adapter adapter.Adapter
	bus     *bus.Bus

	messages  *registry.Set[events.MessageCreatedEvent]
	reactions *registry.Set[events.ReactionEvent]

	// pool runs best-effort side effects. poolMu serializes Submit against
	// the StopWait in Close so a session outliving Close never submits to a
	// stopped pool.
	pool   *workerpool.WorkerPool
	poolMu sync.RWMutex

	archive *storage.Storage // optional, records finished poll tallies
	clock   clock.Clock
	logger  *zap.Logger
	closed  int32
}

// An Option customizes the extension at construction time.
type Option func(*Extension)

// WithLogger sets the logger used by the extension and its internals.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithClock replaces the wall clock driving all deadline timers. Tests use
// this with a mock clock.
func WithClock(clk clock.Clock) Option {
	return func(e *Extension) { e.clock = clk }
}

// WithArchive records every finished poll tally in the given storage,
// best-effort, under the key "poll:<messageID>".
func WithArchive(store *storage.Storage) Option {
	return func(e *Extension) { e.archive = store }
}

// New builds the extension around the given adapter and defaults, and hooks
// the adapter's event stream into the waiter registries. cfg is copied;
// later mutation of the caller's value has no effect.
func New(ad adapter.Adapter, cfg Config, opts ...Option) *Extension {
	e := &Extension{
		cfg:     cfg.withDefaults(),
		adapter: ad,
		clock:   clock.New(),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.bus = bus.New(e.logger.Named("Bus"))
	e.messages = registry.NewSet[events.MessageCreatedEvent](e.clock, e.logger.Named("Messages"))
	e.reactions = registry.NewSet[events.ReactionEvent](e.clock, e.logger.Named("Reactions"))
	e.pool = workerpool.New(sideEffectWorkers)

	e.bus.SubscribeMessages(e.messages.Dispatch)
	e.bus.SubscribeReactions(e.reactions.Dispatch)
	ad.RegisterAt(e.bus)

	return e
}

// WaitOptions carries the optional per-call settings of a wait. The zero
// value falls back to the extension defaults and an unrestricted scope.
type WaitOptions struct {
	// Timeout overrides the default deadline when positive.
	Timeout time.Duration
	// Channel, Message and User narrow which events the waiter considers
	// before its predicate runs. Empty fields match everything.
	Channel string
	Message string
	User    string
}

func firstWaitOptions(opts []WaitOptions) WaitOptions {
	if len(opts) == 0 {
		return WaitOptions{}
	}
	return opts[0]
}

func (e *Extension) timeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return e.cfg.Timeout
}

func (e *Extension) isClosed() bool {
	return atomic.LoadInt32(&e.closed) == 1
}

// WaitForMessage blocks until a message satisfying the predicate arrives, the
// deadline fires, or ctx is cancelled. A nil predicate matches any message in
// scope. Timeout is not an error: the result's TimedOut flag is set instead.
func (e *Extension) WaitForMessage(ctx context.Context, predicate func(Message) bool, opts ...WaitOptions) (Result[Message], error) {
	if e.isClosed() {
		return Result[Message]{TimedOut: true}, ErrClosed
	}

	o := firstWaitOptions(opts)
	ticket := e.messages.Register(registry.Waiter[events.MessageCreatedEvent]{
		Mode:    registry.FirstMatch,
		Timeout: e.timeout(o.Timeout),
		Filter: func(evt events.MessageCreatedEvent) bool {
			return (o.Channel == "" || evt.Channel == o.Channel) &&
				(o.Message == "" || evt.ID == o.Message) &&
				(o.User == "" || evt.AuthorID == o.User)
		},
		Predicate: func(evt events.MessageCreatedEvent) bool {
			return predicate == nil || predicate(newMessage(evt))
		},
	})

	evt, ok, err := ticket.Await(ctx)
	if err != nil || !ok {
		return Result[Message]{TimedOut: true}, err
	}
	return Result[Message]{Value: newMessage(evt)}, nil
}

// WaitForReaction blocks until a reaction-add satisfying the predicate
// arrives, the deadline fires, or ctx is cancelled. Removals never resolve a
// single-result reaction wait.
func (e *Extension) WaitForReaction(ctx context.Context, predicate func(Reaction) bool, opts ...WaitOptions) (Result[Reaction], error) {
	if e.isClosed() {
		return Result[Reaction]{TimedOut: true}, ErrClosed
	}

	o := firstWaitOptions(opts)
	ticket := e.reactions.Register(registry.Waiter[events.ReactionEvent]{
		Mode:    registry.FirstMatch,
		Timeout: e.timeout(o.Timeout),
		Filter: func(evt events.ReactionEvent) bool {
			return !evt.Removed && reactionInScope(evt, o)
		},
		Predicate: func(evt events.ReactionEvent) bool {
			return predicate == nil || predicate(newReaction(evt))
		},
	})

	evt, ok, err := ticket.Await(ctx)
	if err != nil || !ok {
		return Result[Reaction]{TimedOut: true}, err
	}
	return Result[Reaction]{Value: newReaction(evt)}, nil
}

// CollectReactions gathers every reaction added to the given message for the
// full deadline window and returns them in arrival order. The call never
// returns early on a match; the result may be empty but is never absent.
func (e *Extension) CollectReactions(ctx context.Context, channel, messageID string, opts ...WaitOptions) ([]Reaction, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}

	o := firstWaitOptions(opts)
	o.Channel, o.Message = channel, messageID

	ticket := e.reactions.Register(registry.Waiter[events.ReactionEvent]{
		Mode:    registry.Collect,
		Timeout: e.timeout(o.Timeout),
		Filter: func(evt events.ReactionEvent) bool {
			return !evt.Removed && reactionInScope(evt, o)
		},
	})

	evts, err := ticket.AwaitAll(ctx)
	collected := make([]Reaction, 0, len(evts))
	for _, evt := range evts {
		collected = append(collected, newReaction(evt))
	}
	return collected, err
}

// SendMessage posts a plain message through the adapter and returns the new
// message's ID, e.g. to target it with a follow-up poll.
func (e *Extension) SendMessage(channel, text string) (string, error) {
	if e.isClosed() {
		return "", ErrClosed
	}
	return e.adapter.SendMessage(channel, text)
}

// Respond posts a plain message and logs a failure instead of returning it,
// for call sites where a lost response is acceptable.
func (e *Extension) Respond(channel, text string) {
	if _, err := e.SendMessage(channel, text); err != nil {
		e.logger.Warn("Failed to send response", zap.String("channel", channel), zap.Error(err))
	}
}

// Close shuts the extension down: the bus stops dispatching, pending side
// effects drain, and subsequent waits fail with ErrClosed. Waiters that are
// still pending expire at their own deadlines.
func (e *Extension) Close() error {
	e.poolMu.Lock()
	ok := atomic.CompareAndSwapInt32(&e.closed, 0, 1)
	e.poolMu.Unlock()
	if !ok {
		return ErrClosed
	}

	err := e.bus.Close()
	e.pool.StopWait()
	return err
}

// submit runs a best-effort side effect away from the dispatch path. Named
// effects that fail are logged and forgotten, never surfaced to callers.
// A poll or pagination session may outlive Close, in which case the pool is
// stopped and the effect runs on the calling goroutine instead.
func (e *Extension) submit(name string, fn func() error) {
	run := func() {
		if err := fn(); err != nil {
			e.logger.Warn("Best-effort side effect failed",
				zap.String("effect", name),
				zap.Error(err))
		}
	}

	e.poolMu.RLock()
	closed := e.isClosed()
	if !closed {
		e.pool.Submit(run)
	}
	e.poolMu.RUnlock()

	if closed {
		run()
	}
}

func reactionInScope(evt events.ReactionEvent, o WaitOptions) bool {
	return (o.Channel == "" || evt.Channel == o.Channel) &&
		(o.Message == "" || evt.MessageID == o.Message) &&
		(o.User == "" || evt.UserID == o.User)
}

func newMessage(evt events.MessageCreatedEvent) Message {
	return Message{
		ID:       evt.ID,
		Text:     evt.Text,
		AuthorID: evt.AuthorID,
		Channel:  evt.Channel,
		Data:     evt.Data,
	}
}

func newReaction(evt events.ReactionEvent) Reaction {
	return Reaction{
		Emoji:     evt.Emoji,
		UserID:    evt.UserID,
		MessageID: evt.MessageID,
		Channel:   evt.Channel,
		Removed:   evt.Removed,
	}
}
