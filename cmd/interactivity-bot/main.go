// The interactivity-bot command runs a small demo bot exercising the
// interactivity extension: "!poll <emoji> <emoji> …" starts a reaction poll
// in the current channel and "!pages <a> | <b> | …" sends a paginated
// message navigable by the requesting user.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gillepool/interactivity"
	"github.com/gillepool/interactivity/internal/adapter"
	"github.com/gillepool/interactivity/internal/config"
	"github.com/gillepool/interactivity/internal/storage"
	"github.com/gillepool/interactivity/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	log := logger.NewLoggerWith(logger.Config{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
	defer func() { _ = log.Sync() }()

	var ad adapter.Adapter
	if cfg.UseCLI {
		ad = adapter.NewCLIAdapter()
	} else {
		if cfg.DiscordToken == "" {
			return fmt.Errorf("missing discord token, set INTERACTIVITY_DISCORD_TOKEN or use_cli: true")
		}
		ad, err = adapter.NewDiscordAdapter(cfg.DiscordToken, log.Named("Discord"))
		if err != nil {
			return err
		}
	}

	opts := []interactivity.Option{interactivity.WithLogger(log)}
	if cfg.Redis.Addr != "" {
		archive := storage.NewStorage(log.Named("Archive"))
		archive.SetMemory(storage.NewRedisMemory(storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Key:      cfg.Redis.Key,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Logger:   log.Named("Redis"),
		}))
		defer func() { _ = archive.Close() }()
		opts = append(opts, interactivity.WithArchive(archive))
	}

	ext := interactivity.New(ad, interactivity.Config{Timeout: cfg.DefaultTimeout}, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sc := make(chan os.Signal, 1)
		signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
		<-sc
		cancel()
	}()

	log.Info("Bot is running, waiting for !poll and !pages commands")
	commandLoop(ctx, ext, cfg.PollDuration, log)

	if err := ext.Close(); err != nil {
		log.Warn("Error while closing extension", zap.Error(err))
	}
	return ad.Close()
}

func commandLoop(ctx context.Context, ext *interactivity.Extension, pollDuration time.Duration, log *zap.Logger) {
	isCommand := func(msg interactivity.Message) bool {
		return strings.HasPrefix(msg.Text, "!poll ") || strings.HasPrefix(msg.Text, "!pages ")
	}

	for {
		res, err := ext.WaitForMessage(ctx, isCommand, interactivity.WaitOptions{Timeout: 24 * time.Hour})
		if err != nil {
			return // ctx cancelled
		}
		if res.TimedOut {
			continue
		}

		msg := res.Value
		switch {
		case strings.HasPrefix(msg.Text, "!poll "):
			go runPoll(ctx, ext, msg, pollDuration, log)
		case strings.HasPrefix(msg.Text, "!pages "):
			go runPages(ctx, ext, msg, log)
		}
	}
}

func runPoll(ctx context.Context, ext *interactivity.Extension, msg interactivity.Message, duration time.Duration, log *zap.Logger) {
	options := strings.Fields(strings.TrimPrefix(msg.Text, "!poll "))

	tally, err := ext.DoPoll(ctx, msg.Channel, msg.ID, options, interactivity.PollOptions{
		Timeout:   duration,
		Behaviour: interactivity.PollBehaviourDeleteEmojis,
	})
	if err != nil {
		log.Warn("Poll failed", zap.Error(err))
		return
	}

	var lines []string
	for _, option := range tally {
		lines = append(lines, fmt.Sprintf("%s: %d", option.Emoji, option.Total))
	}
	ext.Respond(msg.Channel, "Poll results:\n"+strings.Join(lines, "\n"))
}

func runPages(ctx context.Context, ext *interactivity.Extension, msg interactivity.Message, log *zap.Logger) {
	var pages []interactivity.Page
	for _, part := range strings.Split(strings.TrimPrefix(msg.Text, "!pages "), "|") {
		if part = strings.TrimSpace(part); part != "" {
			pages = append(pages, interactivity.Page{Content: part})
		}
	}

	err := ext.SendPaginatedMessage(ctx, msg.Channel, msg.AuthorID, pages, interactivity.PaginationOptions{
		Timeout: 2 * time.Minute,
	})
	if err != nil {
		log.Warn("Pagination session failed", zap.Error(err))
	}
}
