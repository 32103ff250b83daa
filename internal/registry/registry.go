package registry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Mode selects the completion strategy of a waiter: resolve on the first
// matching event, or accumulate every match until the deadline.
type Mode int

const (
	FirstMatch Mode = iota
	Collect
)

// A Handle identifies one registered waiter for cancellation and logging.
type Handle string

// A Waiter describes one pending subscription before registration. Filter
// narrows events by scope (channel, message, user) before Predicate runs;
// either may be nil, which matches everything.
type Waiter[T any] struct {
	Mode      Mode
	Filter    func(T) bool
	Predicate func(T) bool
	Timeout   time.Duration
}

// A Ticket is a registered waiter. It is resolved at most once in FirstMatch
// mode and accumulates matches until its deadline in Collect mode. Await and
// AwaitAll consume the ticket; a ticket must not be awaited twice.
//
// Each ticket evaluates its events on its own goroutine, fed in arrival
// order from a pending queue that Dispatch appends to. User predicates
// therefore never run on the dispatch path: a predicate that hangs only
// stalls its own waiter, which still expires at its deadline.
type Ticket[T any] struct {
	id     Handle
	set    *Set[T]
	mode   Mode
	filter func(T) bool
	pred   func(T) bool

	timer *clock.Timer

	// guarded by the owning Set's mutex
	resolved bool
	matches  []T
	pending  []T

	single chan T        // buffered, capacity 1; receives the resolving event in FirstMatch mode
	wake   chan struct{} // buffered, capacity 1; pokes the evaluation goroutine
	stop   chan struct{} // closed on resolution, expiry or cancellation
}

// Handle returns the ticket's registry handle.
func (t *Ticket[T]) Handle() Handle { return t.id }

// A Set holds the currently active waiters for one event type. Registration,
// dispatch and removal are serialized behind one mutex; user predicates run
// on the per-ticket evaluation goroutines, never under the lock and never on
// the dispatcher.
type Set[T any] struct {
	mu      sync.Mutex
	order   []*Ticket[T] // registration order, for stable iteration
	clock   clock.Clock
	logger  *zap.Logger
	entropy *ulid.MonotonicEntropy
}

func NewSet[T any](clk clock.Clock, logger *zap.Logger) *Set[T] {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Set[T]{
		clock:   clk,
		logger:  logger,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Register adds the waiter to the set, starts its deadline timer and its
// evaluation goroutine. The deadline clock starts here, not when Await is
// first called.
func (s *Set[T]) Register(w Waiter[T]) *Ticket[T] {
	t := &Ticket[T]{
		set:    s,
		mode:   w.Mode,
		filter: w.Filter,
		pred:   w.Predicate,
		single: make(chan T, 1),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}

	s.mu.Lock()
	t.id = Handle("w_" + ulid.MustNew(ulid.Timestamp(s.clock.Now()), s.entropy).String())
	t.timer = s.clock.Timer(w.Timeout)
	s.order = append(s.order, t)
	s.mu.Unlock()

	go s.evaluate(t)

	s.logger.Debug("Registered waiter",
		zap.String("handle", string(t.id)),
		zap.Duration("timeout", w.Timeout))

	return t
}

// Cancel removes the ticket from the set and stops its timer. Cancelling an
// already resolved or cancelled ticket is a no-op.
func (s *Set[T]) Cancel(t *Ticket[T]) {
	s.mu.Lock()
	s.remove(t)
	s.mu.Unlock()
}

// remove must be called with s.mu held.
func (s *Set[T]) remove(t *Ticket[T]) {
	if t.resolved {
		return
	}
	t.resolved = true
	t.timer.Stop()
	t.pending = nil
	close(t.stop)

	for i, other := range s.order {
		if other == t {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Len reports the number of currently registered waiters.
func (s *Set[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Dispatch offers the event to every registered waiter by appending it to
// each waiter's pending queue, in registration order. No user code runs
// here: Dispatch returns immediately regardless of what any predicate does,
// so one waiter can never block delivery to the others. Overlapping waiters
// are independent; a single event may resolve several of them.
func (s *Set[T]) Dispatch(event T) {
	s.mu.Lock()
	for _, t := range s.order {
		t.pending = append(t.pending, event)
		select {
		case t.wake <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()
}

// evaluate drains the ticket's pending queue in arrival order, applying the
// scope filter and predicate to each event. It runs until the ticket is
// resolved, expired or cancelled.
func (s *Set[T]) evaluate(t *Ticket[T]) {
	for {
		select {
		case <-t.wake:
		case <-t.stop:
			return
		}

		for {
			s.mu.Lock()
			if t.resolved || len(t.pending) == 0 {
				s.mu.Unlock()
				break
			}
			event := t.pending[0]
			t.pending = t.pending[1:]
			s.mu.Unlock()

			if !s.matches(t, event) {
				continue
			}

			s.mu.Lock()
			if t.resolved {
				s.mu.Unlock()
				return
			}
			if t.mode == Collect {
				t.matches = append(t.matches, event)
				s.mu.Unlock()
				continue
			}
			t.single <- event
			s.remove(t)
			s.mu.Unlock()
			return
		}
	}
}

// matches applies the scope filter and the user predicate. A panicking
// predicate counts as a non-match for this event; the panic is logged so
// buggy predicates stay visible, but is never propagated.
func (s *Set[T]) matches(t *Ticket[T], event T) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Waiter predicate panicked, treating as non-match",
				zap.String("handle", string(t.id)),
				zap.Any("panic", r))
			ok = false
		}
	}()

	if t.filter != nil && !t.filter(event) {
		return false
	}
	if t.pred != nil && !t.pred(event) {
		return false
	}
	return true
}

// Await blocks until the ticket resolves with a matching event, its deadline
// fires, or ctx is cancelled, whichever happens first. The returned bool is
// false when no event arrived in time. On deadline or cancellation the
// waiter is deregistered immediately so it never outlives the call.
func (t *Ticket[T]) Await(ctx context.Context) (T, bool, error) {
	var zero T

	select {
	case event := <-t.single:
		t.timer.Stop()
		return event, true, nil

	case <-t.timer.C:
		t.set.Cancel(t)
		// The evaluation goroutine may have resolved the ticket between the
		// timer firing and the cancellation taking effect. The event won the
		// race, honor it.
		select {
		case event := <-t.single:
			return event, true, nil
		default:
			return zero, false, nil
		}

	case <-ctx.Done():
		t.set.Cancel(t)
		return zero, false, ctx.Err()
	}
}

// AwaitAll blocks for the ticket's full deadline window and then returns
// every match observed, in arrival order. There is no early exit on first
// match; the result may be empty but is never "absent". Cancelling ctx
// deregisters the waiter and returns what was collected so far alongside
// the context error.
func (t *Ticket[T]) AwaitAll(ctx context.Context) ([]T, error) {
	var ctxErr error

	select {
	case <-t.timer.C:
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}

	s := t.set
	s.mu.Lock()
	s.remove(t)
	matches := t.matches
	t.matches = nil
	s.mu.Unlock()

	return matches, ctxErr
}
