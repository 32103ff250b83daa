package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.DefaultTimeout)
	assert.Equal(t, 30*time.Second, cfg.PollDuration)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "interactivity", cfg.Redis.Key)
	assert.False(t, cfg.UseCLI)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
discord_token: token-123
use_cli: true
default_timeout: 90s
log:
  level: debug
redis:
  addr: localhost:6379
  db: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "token-123", cfg.DiscordToken)
	assert.True(t, cfg.UseCLI)
	assert.Equal(t, 90*time.Second, cfg.DefaultTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml"), 0o600))

	_, err := Load(dir)
	assert.Error(t, err)
}
