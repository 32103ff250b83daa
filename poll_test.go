package interactivity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gillepool/interactivity/internal/events"
	"github.com/gillepool/interactivity/internal/storage"
)

func TestDoPollRequiresOptions(t *testing.T) {
	ext, _ := newTestExtension(t, DefaultConfig())

	_, err := ext.DoPoll(context.Background(), "c1", "m1", nil)
	assert.ErrorIs(t, err, ErrNoOptions)
}

func TestDoPollSeedsOptionsInOrder(t *testing.T) {
	ext, fake := newTestExtension(t, DefaultConfig())

	tally, err := ext.DoPoll(context.Background(), "c1", "m1", []string{"👍", "👎", "🤷"},
		PollOptions{Timeout: 50 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, []string{"add m1 👍", "add m1 👎", "add m1 🤷"}, fake.recordedWithPrefix("add "))
	assert.Equal(t, []PollEmoji{{"👍", 0}, {"👎", 0}, {"🤷", 0}}, tally)
}

func TestDoPollToggleNetsToZero(t *testing.T) {
	ext, fake := newTestExtension(t, DefaultConfig())

	go func() {
		waitForReactionWaiters(t, ext, 1)
		fake.react("m1", "u1", "👍")
		fake.unreact("m1", "u1", "👍")
	}()

	tally, err := ext.DoPoll(context.Background(), "c1", "m1", []string{"👍", "👎"},
		PollOptions{Timeout: 150 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, []PollEmoji{{"👍", 0}, {"👎", 0}}, tally)
}

func TestDoPollTalliesVotes(t *testing.T) {
	ext, fake := newTestExtension(t, DefaultConfig())

	go func() {
		waitForReactionWaiters(t, ext, 1)
		fake.react("m1", "u1", "👍")
		fake.react("m1", "u2", "👍")
		fake.react("m1", "u3", "👎")
		fake.react("m1", "u1", "🦆") // not an option, ignored
		fake.unreact("m1", "u2", "👍")
		fake.react("m1", "u2", "👎")
		fake.react("m2", "u4", "👍") // different message, ignored
	}()

	tally, err := ext.DoPoll(context.Background(), "c1", "m1", []string{"👍", "👎"},
		PollOptions{Timeout: 200 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, []PollEmoji{{"👍", 1}, {"👎", 2}}, tally)
}

func TestDoPollSeedFailureIsNotFatal(t *testing.T) {
	ext, fake := newTestExtension(t, DefaultConfig())
	fake.addReactionErr = errors.New("missing permission")

	go func() {
		waitForReactionWaiters(t, ext, 1)
		fake.react("m1", "u1", "👍")
	}()

	tally, err := ext.DoPoll(context.Background(), "c1", "m1", []string{"👍"},
		PollOptions{Timeout: 150 * time.Millisecond})

	require.NoError(t, err)
	assert.Equal(t, []PollEmoji{{"👍", 1}}, tally, "an unseeded option still collects votes")
}

func TestDoPollCleanupBehaviours(t *testing.T) {
	tests := []struct {
		name      string
		behaviour PollBehaviour
		want      []string
	}{
		{"delete emojis removes the bot's seeds", PollBehaviourDeleteEmojis,
			[]string{"remove m1 👍 ", "remove m1 👎 "}},
		{"delete reactions strips everything", PollBehaviourDeleteReactions,
			[]string{"remove-all m1"}},
		{"delete message removes the poll", PollBehaviourDeleteMessage,
			[]string{"delete m1"}},
		{"keep emojis leaves everything", PollBehaviourKeepEmojis, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ext, fake := newTestExtension(t, DefaultConfig())

			_, err := ext.DoPoll(context.Background(), "c1", "m1", []string{"👍", "👎"},
				PollOptions{Timeout: 50 * time.Millisecond, Behaviour: tc.behaviour})
			require.NoError(t, err)

			// Close drains the side-effect pool, making cleanup observable.
			require.NoError(t, ext.Close())

			var got []string
			for _, call := range fake.recorded() {
				if !strings.HasPrefix(call, "add ") {
					got = append(got, call)
				}
			}
			// Cleanup runs on the worker pool, so order across calls is not
			// guaranteed.
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestDoPollSurvivesCloseMidWindow(t *testing.T) {
	ext, fake := newTestExtension(t, DefaultConfig())

	type outcome struct {
		tally []PollEmoji
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		tally, err := ext.DoPoll(context.Background(), "c1", "m1", []string{"👍"},
			PollOptions{Timeout: 200 * time.Millisecond, Behaviour: PollBehaviourDeleteMessage})
		done <- outcome{tally, err}
	}()

	waitForReactionWaiters(t, ext, 1)
	fake.react("m1", "u1", "👍")
	require.NoError(t, ext.Close())

	// The poll's window outlives Close. It must still run to its deadline,
	// tally what it saw and clean up, without touching the stopped pool.
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, []PollEmoji{{"👍", 1}}, res.tally)
	assert.Equal(t, []string{"delete m1"}, fake.recordedWithPrefix("delete "))
}

func TestDoPollCleanupFailureKeepsTally(t *testing.T) {
	ext, fake := newTestExtension(t, DefaultConfig())
	fake.deleteErr = errors.New("missing permission")

	go func() {
		waitForReactionWaiters(t, ext, 1)
		fake.react("m1", "u1", "👍")
	}()

	tally, err := ext.DoPoll(context.Background(), "c1", "m1", []string{"👍"},
		PollOptions{Timeout: 150 * time.Millisecond, Behaviour: PollBehaviourDeleteMessage})

	require.NoError(t, err)
	assert.Equal(t, []PollEmoji{{"👍", 1}}, tally)
}

func TestDoPollArchivesResult(t *testing.T) {
	archive := storage.NewStorage(nil)
	ext, _ := newTestExtension(t, DefaultConfig(), WithArchive(archive))

	_, err := ext.DoPoll(context.Background(), "c1", "m1", []string{"👍"},
		PollOptions{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, ext.Close())

	var recorded []PollEmoji
	ok, err := archive.Get("poll:m1", &recorded)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []PollEmoji{{"👍", 0}}, recorded)
}

func TestTallyPollIsOrderInvariant(t *testing.T) {
	options := []string{"👍", "👎"}

	// Two interleavings with the same net effect per user and option.
	first := []events.ReactionEvent{
		{Emoji: "👍", UserID: "u1"},
		{Emoji: "👍", UserID: "u2"},
		{Emoji: "👍", UserID: "u2", Removed: true},
		{Emoji: "👎", UserID: "u3"},
	}
	second := []events.ReactionEvent{
		{Emoji: "👎", UserID: "u3"},
		{Emoji: "👍", UserID: "u2"},
		{Emoji: "👍", UserID: "u1"},
		{Emoji: "👍", UserID: "u2", Removed: true},
	}

	assert.Equal(t, tallyPoll(options, first), tallyPoll(options, second))
}

func TestTallyPollNeverGoesNegative(t *testing.T) {
	tally := tallyPoll([]string{"👍"}, []events.ReactionEvent{
		{Emoji: "👍", UserID: "u1", Removed: true},
		{Emoji: "👍", UserID: "u2", Removed: true},
	})
	assert.Equal(t, []PollEmoji{{"👍", 0}}, tally)
}

func TestTallyPollDuplicateOptionsAreIndependentSlots(t *testing.T) {
	tally := tallyPoll([]string{"👍", "👍"}, []events.ReactionEvent{
		{Emoji: "👍", UserID: "u1"},
		{Emoji: "👍", UserID: "u2"},
	})

	// Events credit the first slot carrying the emoji; the duplicate keeps
	// its own independent count.
	assert.Equal(t, []PollEmoji{{"👍", 2}, {"👍", 0}}, tally)
}
