package adapter

import (
	"github.com/gillepool/interactivity/internal/bus"
)

// A Commander is the outbound half of a chat adapter: the commands the
// interactivity engines issue against the chat service. Every call is
// independently fallible; callers decide whether a failure is fatal
// (seeding preconditions) or best-effort (cleanup).
type Commander interface {
	// SendMessage posts text to a channel and returns the new message's ID.
	SendMessage(channel, text string) (string, error)
	// EditMessage replaces the content of an existing message.
	EditMessage(channel, messageID, text string) error
	// AddReaction adds the bot's own reaction to a message.
	AddReaction(channel, messageID, emoji string) error
	// RemoveReaction removes one user's reaction. An empty userID removes
	// the bot's own reaction.
	RemoveReaction(channel, messageID, emoji, userID string) error
	// RemoveAllReactions strips every reaction from a message.
	RemoveAllReactions(channel, messageID string) error
	// DeleteMessage deletes a message.
	DeleteMessage(channel, messageID string) error
}

// An Adapter connects the bot to a chat service. RegisterAt hooks the
// adapter's inbound events into the Bus exactly once; the Commander half
// carries the outbound commands.
type Adapter interface {
	RegisterAt(*bus.Bus)
	Commander
	Close() error
}
