package interactivity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gillepool/interactivity/internal/events"
	"github.com/gillepool/interactivity/internal/registry"
)

// PaginationOptions carries the optional per-call settings of a pagination
// session. Zero values fall back to the extension defaults.
type PaginationOptions struct {
	// Timeout is the per-interaction deadline, not a budget for the whole
	// session: every accepted input re-arms a fresh deadline.
	Timeout   time.Duration
	Behaviour PaginationBehaviour
	Deletion  PaginationDeletion
	Emojis    PaginationEmojis
}

// SendPaginatedMessage sends the first page to the channel, attaches the
// five navigation emojis and then drives the session: each navigation
// reaction from the requesting user moves the current page (wrapping or
// clamping per the configured behaviour), edits the message and re-arms the
// waiter with a fresh deadline. The session ends on the stop emoji, on an
// idle timeout, or when ctx is cancelled; cleanup then runs per the
// configured PaginationDeletion, best-effort. The call blocks until the
// session has ended.
func (e *Extension) SendPaginatedMessage(ctx context.Context, channel, userID string, pages []Page, opts ...PaginationOptions) error {
	if e.isClosed() {
		return ErrClosed
	}
	if len(pages) == 0 {
		return ErrNoPages
	}

	var o PaginationOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	behaviour := e.cfg.PaginationBehaviour
	if o.Behaviour != PaginationBehaviourDefault {
		behaviour = o.Behaviour
	}
	deletion := e.cfg.PaginationDeletion
	if o.Deletion != PaginationDeletionDefault {
		deletion = o.Deletion
	}
	emojis := e.cfg.PaginationEmojis
	if o.Emojis != (PaginationEmojis{}) {
		emojis = o.Emojis
	}
	timeout := e.timeout(o.Timeout)

	messageID, err := e.adapter.SendMessage(channel, pages[0].Content)
	if err != nil {
		return fmt.Errorf("failed to send paginated message: %w", err)
	}

	// Attaching a navigation emoji is best-effort like poll seeding: a
	// missing button degrades the session, it does not abort it.
	for _, emoji := range emojis.ordered() {
		if err := e.adapter.AddReaction(channel, messageID, emoji); err != nil {
			e.logger.Warn("Failed to attach navigation emoji",
				zap.String("message_id", messageID),
				zap.String("emoji", emoji),
				zap.Error(err))
		}
	}

	var ctxErr error
	index := 0

	for {
		ticket := e.reactions.Register(registry.Waiter[events.ReactionEvent]{
			Mode:    registry.FirstMatch,
			Timeout: timeout,
			Filter: func(evt events.ReactionEvent) bool {
				return !evt.Removed &&
					evt.MessageID == messageID &&
					evt.UserID == userID
			},
			Predicate: func(evt events.ReactionEvent) bool {
				return emojis.contains(evt.Emoji)
			},
		})

		evt, ok, err := ticket.Await(ctx)
		if err != nil {
			ctxErr = err
			break
		}
		if !ok {
			break // idle deadline expired with no navigation input
		}

		// Clear the user's navigation reaction so the same button can be
		// pressed again.
		emoji, user := evt.Emoji, evt.UserID
		e.submit("remove navigation reaction", func() error {
			return e.adapter.RemoveReaction(channel, messageID, emoji, user)
		})

		next, stop := nextPageIndex(index, len(pages), evt.Emoji, emojis, behaviour)
		if stop {
			break
		}

		if next != index {
			index = next
			if err := e.adapter.EditMessage(channel, messageID, pages[index].Content); err != nil {
				e.logger.Warn("Failed to edit page",
					zap.String("message_id", messageID),
					zap.Int("page", index),
					zap.Error(err))
			}
		}
	}

	e.cleanupPagination(channel, messageID, emojis, deletion)
	return ctxErr
}

// nextPageIndex applies one navigation input. The returned index is always
// within [0, count-1]; stop is true only for the stop emoji.
func nextPageIndex(current, count int, emoji string, emojis PaginationEmojis, behaviour PaginationBehaviour) (next int, stop bool) {
	switch emoji {
	case emojis.Stop:
		return current, true

	case emojis.SkipLeft:
		return 0, false

	case emojis.SkipRight:
		return count - 1, false

	case emojis.Left:
		if current > 0 {
			return current - 1, false
		}
		if behaviour == PaginationBehaviourWrapAround {
			return count - 1, false
		}
		return 0, false

	case emojis.Right:
		if current < count-1 {
			return current + 1, false
		}
		if behaviour == PaginationBehaviourWrapAround {
			return 0, false
		}
		return count - 1, false
	}

	return current, false
}

func (e *Extension) cleanupPagination(channel, messageID string, emojis PaginationEmojis, deletion PaginationDeletion) {
	switch deletion {
	case PaginationDeletionDeleteEmojis:
		for _, emoji := range emojis.ordered() {
			emoji := emoji
			e.submit("remove navigation emoji", func() error {
				return e.adapter.RemoveReaction(channel, messageID, emoji, "")
			})
		}
	case PaginationDeletionDeleteMessage:
		e.submit("delete paginated message", func() error {
			return e.adapter.DeleteMessage(channel, messageID)
		})
	}
}
