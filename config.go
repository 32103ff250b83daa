package interactivity

import "time"

// PollBehaviour controls what happens to a poll message's reactions once the
// voting window closes.
type PollBehaviour int

const (
	// PollBehaviourDefault falls back to the behaviour configured on the
	// extension.
	PollBehaviourDefault PollBehaviour = iota
	// PollBehaviourKeepEmojis leaves the message and all reactions as-is.
	PollBehaviourKeepEmojis
	// PollBehaviourDeleteEmojis removes only the bot's seed reactions.
	PollBehaviourDeleteEmojis
	// PollBehaviourDeleteReactions strips every reaction from the message.
	PollBehaviourDeleteReactions
	// PollBehaviourDeleteMessage deletes the poll message entirely.
	PollBehaviourDeleteMessage
)

// PaginationBehaviour controls what happens when navigation steps past
// either end of the page list.
type PaginationBehaviour int

const (
	PaginationBehaviourDefault PaginationBehaviour = iota
	// PaginationBehaviourWrapAround wraps from the last page to the first
	// and vice versa.
	PaginationBehaviourWrapAround
	// PaginationBehaviourStop clamps at the first and last page.
	PaginationBehaviourStop
)

// PaginationDeletion controls cleanup once a pagination session ends.
type PaginationDeletion int

const (
	PaginationDeletionDefault PaginationDeletion = iota
	PaginationDeletionKeepEmojis
	PaginationDeletionDeleteEmojis
	PaginationDeletionDeleteMessage
)

// PaginationEmojis holds the five navigation emojis of a pagination session.
type PaginationEmojis struct {
	SkipLeft  string
	Left      string
	Stop      string
	Right     string
	SkipRight string
}

// DefaultPaginationEmojis returns the standard navigation emoji set.
func DefaultPaginationEmojis() PaginationEmojis {
	return PaginationEmojis{
		SkipLeft:  "⏮️",
		Left:      "◀️",
		Stop:      "⏹️",
		Right:     "▶️",
		SkipRight: "⏭️",
	}
}

// ordered returns the emojis in attachment order.
func (p PaginationEmojis) ordered() []string {
	return []string{p.SkipLeft, p.Left, p.Stop, p.Right, p.SkipRight}
}

func (p PaginationEmojis) contains(emoji string) bool {
	switch emoji {
	case p.SkipLeft, p.Left, p.Stop, p.Right, p.SkipRight:
		return true
	}
	return false
}

// Config holds the process-wide defaults of the extension. It is a value
// type: the extension copies it at construction time and per-call options
// override copies, never the shared defaults.
type Config struct {
	// Timeout is the default wait deadline. Zero means one minute.
	Timeout time.Duration
	// PollBehaviour is the default poll cleanup policy.
	PollBehaviour PollBehaviour
	// PaginationBehaviour is the default navigation edge policy.
	PaginationBehaviour PaginationBehaviour
	// PaginationDeletion is the default pagination cleanup policy.
	PaginationDeletion PaginationDeletion
	// PaginationEmojis is the default navigation emoji set. Empty slots are
	// filled from DefaultPaginationEmojis.
	PaginationEmojis PaginationEmojis
}

// DefaultConfig returns the extension defaults: one minute timeout, keep
// emojis after polls, wrap-around navigation, delete navigation emojis when
// a pagination session ends.
func DefaultConfig() Config {
	return Config{
		Timeout:             time.Minute,
		PollBehaviour:       PollBehaviourKeepEmojis,
		PaginationBehaviour: PaginationBehaviourWrapAround,
		PaginationDeletion:  PaginationDeletionDeleteEmojis,
		PaginationEmojis:    DefaultPaginationEmojis(),
	}
}

// withDefaults fills every unset field so the rest of the extension never
// has to re-check for zero values.
func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.PollBehaviour == PollBehaviourDefault {
		c.PollBehaviour = def.PollBehaviour
	}
	if c.PaginationBehaviour == PaginationBehaviourDefault {
		c.PaginationBehaviour = def.PaginationBehaviour
	}
	if c.PaginationDeletion == PaginationDeletionDefault {
		c.PaginationDeletion = def.PaginationDeletion
	}
	if c.PaginationEmojis == (PaginationEmojis{}) {
		c.PaginationEmojis = def.PaginationEmojis
	}
	return c
}
