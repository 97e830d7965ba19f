package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"profile_watch_bot/internal/bot"
	"profile_watch_bot/internal/config"
	"profile_watch_bot/internal/extractor"
	"profile_watch_bot/internal/fetcher"
	"profile_watch_bot/internal/scheduler"
	"profile_watch_bot/internal/storage"
	"profile_watch_bot/internal/subscriber"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	journal, err := storage.NewSQLite(cfg.JournalDSN)
	if err != nil {
		log.Error("open journal", "dsn", cfg.JournalDSN, "error", err)
		os.Exit(1)
	}
	defer func() { _ = journal.Close() }()

	matcher, err := bot.NewProfileMatcher(cfg.ProfileHost)
	if err != nil {
		log.Error("build profile matcher", "host", cfg.ProfileHost, "error", err)
		os.Exit(1)
	}

	b, err := bot.New(cfg.TelegramBotToken, cfg.TelegramAPIEndpoint, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	f := fetcher.New(http.DefaultClient)
	f.SetTimeout(cfg.FetchTimeout)

	registry := subscriber.NewRegistry(&extractor.Extractor{Strict: cfg.StrictExtraction})

	sched := scheduler.New(registry, matcher, f, b, journal, log)
	sched.SetIntervals(cfg.DiscoveryInterval, cfg.PollInterval, cfg.DeliveryInterval)
	sched.SetSendRate(cfg.SendRate)
	sched.SetAllowFunc(cfg.IsUserAllowed)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot",
		"profile_host", cfg.ProfileHost,
		"strict", cfg.StrictExtraction,
		"discovery_every", cfg.DiscoveryInterval,
		"poll_every", cfg.PollInterval,
		"delivery_every", cfg.DeliveryInterval,
	)

	sched.Run(ctx)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
