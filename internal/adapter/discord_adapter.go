package adapter

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/gillepool/interactivity/internal/bus"
	"github.com/gillepool/interactivity/internal/events"
)

// DiscordAdapter connects the bot to Discord via a discordgo session. It
// republishes message-create, reaction-add and reaction-remove gateway
// events as typed internal events and implements the Commander interface
// over the session's REST calls.
type DiscordAdapter struct {
	Client *discordgo.Session
	logger *zap.Logger
	events chan discordEvent
}

type discordEvent struct {
	message  *discordgo.Message
	reaction *events.ReactionEvent
}

// NewDiscordAdapter opens a Discord session with the given bot token. The
// caller must call Close to disconnect the session again.
func NewDiscordAdapter(token string, logger *zap.Logger) (*DiscordAdapter, error) {
	client, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	a := &DiscordAdapter{
		Client: client,
		logger: logger,
		events: make(chan discordEvent),
	}

	// Reaction events require the reaction intents on top of the message ones.
	client.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions

	// The gateway callbacks only translate into the internal event channel;
	// forwarding them onto the Bus happens in RegisterAt so the adapter can
	// be constructed before the Bus exists.
	client.AddHandler(a.onMessageCreate)
	client.AddHandler(a.onReactionAdd)
	client.AddHandler(a.onReactionRemove)

	if err := client.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord connection: %w", err)
	}

	return a, nil
}

// botUser returns the session's own user, or nil when the session has not
// received its Ready payload yet.
func botUser(s *discordgo.Session) *discordgo.User {
	if s == nil || s.State == nil {
		return nil
	}
	return s.State.User
}

func (a *DiscordAdapter) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// System messages such as channel pins arrive without an author. They
	// carry nothing a waiter could match on, drop them.
	if m.Author == nil {
		return
	}
	if me := botUser(s); me != nil && m.Author.ID == me.ID {
		return // the bot's own messages never resolve waiters
	}
	a.events <- discordEvent{message: m.Message}
}

func (a *DiscordAdapter) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if me := botUser(s); me != nil && r.UserID == me.ID {
		return // seeding our own poll options must not count as votes
	}
	a.events <- discordEvent{reaction: &events.ReactionEvent{
		Emoji:     r.Emoji.APIName(),
		MessageID: r.MessageID,
		Channel:   r.ChannelID,
		UserID:    r.UserID,
		Removed:   false,
	}}
}

func (a *DiscordAdapter) onReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	if me := botUser(s); me != nil && r.UserID == me.ID {
		return
	}
	a.events <- discordEvent{reaction: &events.ReactionEvent{
		Emoji:     r.Emoji.APIName(),
		MessageID: r.MessageID,
		Channel:   r.ChannelID,
		UserID:    r.UserID,
		Removed:   true,
	}}
}

// RegisterAt starts forwarding the adapter's gateway events onto the Bus.
func (a *DiscordAdapter) RegisterAt(b *bus.Bus) {
	go a.handleDiscordEvents(b)
}

func (a *DiscordAdapter) handleDiscordEvents(b *bus.Bus) {
	for evt := range a.events {
		switch {
		case evt.message != nil:
			b.Publish(events.MessageCreatedEvent{
				ID:       evt.message.ID,
				Text:     evt.message.Content,
				Channel:  evt.message.ChannelID,
				AuthorID: evt.message.Author.ID,
				Data:     evt.message,
			})
		case evt.reaction != nil:
			b.Publish(*evt.reaction)
		}
	}
}

// SendMessage posts text to the given channel and returns the message ID.
func (a *DiscordAdapter) SendMessage(channel, text string) (string, error) {
	a.logger.Debug("Sending message", zap.String("channel_id", channel))
	msg, err := a.Client.ChannelMessageSend(channel, text)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (a *DiscordAdapter) EditMessage(channel, messageID, text string) error {
	_, err := a.Client.ChannelMessageEdit(channel, messageID, text)
	return err
}

func (a *DiscordAdapter) AddReaction(channel, messageID, emoji string) error {
	return a.Client.MessageReactionAdd(channel, messageID, emoji)
}

func (a *DiscordAdapter) RemoveReaction(channel, messageID, emoji, userID string) error {
	if userID == "" {
		userID = "@me"
	}
	return a.Client.MessageReactionRemove(channel, messageID, emoji, userID)
}

func (a *DiscordAdapter) RemoveAllReactions(channel, messageID string) error {
	return a.Client.MessageReactionsRemoveAll(channel, messageID)
}

func (a *DiscordAdapter) DeleteMessage(channel, messageID string) error {
	return a.Client.ChannelMessageDelete(channel, messageID)
}

// Close disconnects the Discord session and stops event forwarding. The
// session is closed first so no gateway callback fires after the internal
// event channel is gone.
func (a *DiscordAdapter) Close() error {
	err := a.Client.Close()
	close(a.events)
	return err
}
