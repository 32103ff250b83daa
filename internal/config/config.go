// Package config loads the bot's runtime configuration from a config file
// and the environment. The interactivity defaults themselves are plain
// values (see the root package Config); this package only plumbs them in
// from the outside world for the runnable bot.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runnable bot's configuration.
type Config struct {
	// DiscordToken authenticates the Discord session. Required unless the
	// CLI adapter is used.
	DiscordToken string `mapstructure:"discord_token"`

	// UseCLI switches to the stdin/stdout adapter for local development.
	UseCLI bool `mapstructure:"use_cli"`

	// DefaultTimeout is the default waiter deadline.
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`

	// PollDuration is how long the demo bot's polls stay open.
	PollDuration time.Duration `mapstructure:"poll_duration"`

	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`

	Redis struct {
		// Addr enables the redis-backed poll archive when non-empty.
		Addr     string `mapstructure:"addr"`
		Key      string `mapstructure:"key"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
}

// Load reads config.yaml from the given path (or the working directory when
// empty) and merges INTERACTIVITY_* environment variables over it. A missing
// config file is fine; a malformed one is not.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("interactivity")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults also register the keys with viper so AutomaticEnv can
	// override them during Unmarshal.
	v.SetDefault("discord_token", "")
	v.SetDefault("use_cli", false)
	v.SetDefault("default_timeout", time.Minute)
	v.SetDefault("poll_duration", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.key", "interactivity")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
