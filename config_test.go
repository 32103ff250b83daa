package interactivity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, PollBehaviourKeepEmojis, cfg.PollBehaviour)
	assert.Equal(t, PaginationBehaviourWrapAround, cfg.PaginationBehaviour)
	assert.Equal(t, PaginationDeletionDeleteEmojis, cfg.PaginationDeletion)
	assert.Equal(t, DefaultPaginationEmojis(), cfg.PaginationEmojis)
}

func TestConfigWithDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{PollBehaviour: PollBehaviourDeleteMessage}.withDefaults()

	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, PollBehaviourDeleteMessage, cfg.PollBehaviour, "set fields survive")
	assert.Equal(t, PaginationBehaviourWrapAround, cfg.PaginationBehaviour)
	assert.Equal(t, DefaultPaginationEmojis(), cfg.PaginationEmojis)
}

func TestPaginationEmojisContains(t *testing.T) {
	emojis := DefaultPaginationEmojis()

	for _, emoji := range emojis.ordered() {
		assert.True(t, emojis.contains(emoji))
	}
	assert.False(t, emojis.contains("👍"))
}
