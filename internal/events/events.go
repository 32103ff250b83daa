package events

// The MessageCreatedEvent is emitted by an Adapter when the bot sees a new
// message in the chat.
type MessageCreatedEvent struct {
	ID       string // The ID of the message, identifying it at least uniquely within the Channel
	Text     string // The message text.
	AuthorID string // A string identifying the author of the message on the adapter.
	Channel  string // The channel over which the message was received.

	// A message may optionally also contain additional information that was
	// received by the Adapter (e.g. the raw discordgo.Message). Each Adapter
	// implementation should document if and what information is available
	// here, if any at all.
	Data interface{}
}

// A ReactionEvent is emitted by an Adapter when a reaction is added to or
// removed from a message the bot can see. Adds and removals share one shape
// so collection waiters observe them as a single ordered stream.
type ReactionEvent struct {
	Emoji     string
	MessageID string
	Channel   string
	UserID    string
	Removed   bool // true for reaction-removed, false for reaction-added
}
