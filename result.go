package interactivity

// A Result is the outcome of a single-result wait. TimedOut set means no
// qualifying event arrived before the deadline and Value is the zero value.
type Result[T any] struct {
	TimedOut bool
	Value    T
}

// A Message is the payload of a resolved message wait. It mirrors what the
// adapter saw on the wire.
type Message struct {
	ID       string
	Text     string
	AuthorID string
	Channel  string

	// Data carries optional adapter-specific detail, e.g. the raw
	// *discordgo.Message for the Discord adapter.
	Data interface{}
}

// A Reaction is one observed reaction event, the unit returned by
// CollectReactions. Removed distinguishes a removal from an addition.
type Reaction struct {
	Emoji     string
	UserID    string
	MessageID string
	Channel   string
	Removed   bool
}

// A PollEmoji is one tallied poll option: the emoji and its net vote count
// (adds minus removals) over the poll window. The result sequence keeps the
// insertion order of the original option list.
type PollEmoji struct {
	Emoji string
	Total int
}

// A Page is one renderable unit of a paginated message.
type Page struct {
	Content string
}
