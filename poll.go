package interactivity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gillepool/interactivity/internal/events"
	"github.com/gillepool/interactivity/internal/registry"
)

// PollOptions carries the optional per-call settings of a poll. Zero values
// fall back to the extension defaults.
type PollOptions struct {
	Timeout   time.Duration
	Behaviour PollBehaviour
}

// DoPoll turns an existing message into a reaction poll: it seeds the
// message with one reaction per option emoji, collects every add and remove
// referencing the message for the poll window, and returns the net per-option
// vote counts in the original option order.
//
// Seeding is best-effort; an option whose seed reaction could not be added
// simply starts the window with zero votes. Votes are tracked per user, so a
// user who toggles a reaction on and off nets to zero and may still vote
// again later. Duplicate option emojis are independent tally slots; an event
// credits the first slot carrying its emoji. Reactions for emojis outside
// the option list are ignored.
//
// Cleanup after the window runs per the configured PollBehaviour,
// best-effort and off the calling goroutine; a cleanup failure never changes
// the already-computed tally.
func (e *Extension) DoPoll(ctx context.Context, channel, messageID string, options []string, opts ...PollOptions) ([]PollEmoji, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}
	if len(options) == 0 {
		return nil, ErrNoOptions
	}

	var o PollOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	behaviour := e.cfg.PollBehaviour
	if o.Behaviour != PollBehaviourDefault {
		behaviour = o.Behaviour
	}

	// The collector is registered before seeding so a vote that lands while
	// the seed reactions are still going out is not lost.
	ticket := e.reactions.Register(registry.Waiter[events.ReactionEvent]{
		Mode:    registry.Collect,
		Timeout: e.timeout(o.Timeout),
		Filter: func(evt events.ReactionEvent) bool {
			return evt.MessageID == messageID && (channel == "" || evt.Channel == channel)
		},
	})

	for _, emoji := range options {
		if err := e.adapter.AddReaction(channel, messageID, emoji); err != nil {
			e.logger.Warn("Failed to seed poll option",
				zap.String("message_id", messageID),
				zap.String("emoji", emoji),
				zap.Error(err))
		}
	}

	evts, err := ticket.AwaitAll(ctx)
	tally := tallyPoll(options, evts)

	e.cleanupPoll(channel, messageID, options, behaviour)
	if e.archive != nil {
		e.archivePoll(messageID, tally)
	}

	return tally, err
}

// tallyPoll replays the observed reaction events in arrival order against a
// per-slot voter set. Counting users instead of raw events makes the tally
// invariant to event order as long as each user's net effect per option is
// the same, and the count can never go negative.
func tallyPoll(options []string, evts []events.ReactionEvent) []PollEmoji {
	voters := make([]map[string]struct{}, len(options))
	for i := range voters {
		voters[i] = make(map[string]struct{})
	}

	for _, evt := range evts {
		slot := -1
		for i, opt := range options {
			if opt == evt.Emoji {
				slot = i
				break
			}
		}
		if slot < 0 {
			continue // not one of the poll's options
		}

		if evt.Removed {
			delete(voters[slot], evt.UserID)
		} else {
			voters[slot][evt.UserID] = struct{}{}
		}
	}

	tally := make([]PollEmoji, len(options))
	for i, opt := range options {
		tally[i] = PollEmoji{Emoji: opt, Total: len(voters[i])}
	}
	return tally
}

func (e *Extension) cleanupPoll(channel, messageID string, options []string, behaviour PollBehaviour) {
	switch behaviour {
	case PollBehaviourDeleteEmojis:
		for _, emoji := range options {
			emoji := emoji
			e.submit("remove poll seed reaction", func() error {
				return e.adapter.RemoveReaction(channel, messageID, emoji, "")
			})
		}
	case PollBehaviourDeleteReactions:
		e.submit("remove all poll reactions", func() error {
			return e.adapter.RemoveAllReactions(channel, messageID)
		})
	case PollBehaviourDeleteMessage:
		e.submit("delete poll message", func() error {
			return e.adapter.DeleteMessage(channel, messageID)
		})
	}
}

// archivePoll records the finished tally, best-effort. The poll result has
// already been computed; a failed write only costs the archive entry.
func (e *Extension) archivePoll(messageID string, tally []PollEmoji) {
	e.submit("archive poll result", func() error {
		if err := e.archive.Set(fmt.Sprintf("poll:%s", messageID), tally); err != nil {
			return fmt.Errorf("failed to archive poll %s: %w", messageID, err)
		}
		return nil
	})
}
