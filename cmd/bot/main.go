package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/robo-sapien-lab/Simpi/internal/analytics"
	"github.com/robo-sapien-lab/Simpi/internal/config"
	"github.com/robo-sapien-lab/Simpi/internal/dispatch"
	"github.com/robo-sapien-lab/Simpi/internal/llm"
	"github.com/robo-sapien-lab/Simpi/internal/logging"
	"github.com/robo-sapien-lab/Simpi/internal/memory"
	"github.com/robo-sapien-lab/Simpi/internal/moderation"
	"github.com/robo-sapien-lab/Simpi/internal/notify"
	"github.com/robo-sapien-lab/Simpi/internal/plugin"
	"github.com/robo-sapien-lab/Simpi/internal/retry"
	"github.com/robo-sapien-lab/Simpi/internal/scheduler"
	"github.com/robo-sapien-lab/Simpi/internal/sentiment"
	"github.com/robo-sapien-lab/Simpi/internal/store"
	"github.com/robo-sapien-lab/Simpi/internal/telegram"
)

const sweepInterval = 5 * time.Second

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// The store being unreachable at boot is the only fatal runtime
	// dependency; everything after boot degrades per message.
	var st store.Store
	err = retry.Default().Do(context.Background(), logger, "connect store", func() error {
		var err error
		st, err = store.NewRedis(cfg.RedisURL)
		return err
	})
	if err != nil {
		logger.Fatal("store unreachable", zap.Error(err))
	}

	notifier := notify.NewWebhook(logger, cfg.SlackWebhookURL, cfg.DiscordWebhookURL)

	filter, err := moderation.NewFilter(logger, cfg.SpamThreshold, cfg.SpamCooldown, notifier)
	if err != nil {
		logger.Fatal("load moderation rules", zap.Error(err))
	}

	var client llm.Client
	if c, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel); err != nil {
		logger.Warn("llm client unavailable, plugins fall back to canned answers", zap.Error(err))
	} else {
		client = c
	}

	registry := plugin.NewRegistry(logger)
	for _, p := range []plugin.Plugin{
		plugin.NewProgramming(client),
		plugin.NewRelationships(client),
	} {
		if err := registry.Register(p); err != nil {
			logger.Error("skipping plugin", zap.String("plugin", p.Name()), zap.Error(err))
		}
	}

	mem := memory.NewManager(st, logger)
	engine := analytics.NewEngine(st, logger)
	analyzer := sentiment.NewAnalyzer()

	dispatcher := dispatch.New(logger, filter, mem, registry, engine, analyzer, cfg.ResponseTimeout)

	sched := scheduler.New(logger)
	if err := sched.AddEvery("persist-interactions", cfg.PersistInterval, cfg.PersistRetryDelay, engine.PersistPending); err != nil {
		logger.Fatal("schedule persist loop", zap.Error(err))
	}
	if err := sched.AddEvery("recompute-trending", cfg.TrendInterval, cfg.TrendRetryDelay, engine.RecomputeTrending); err != nil {
		logger.Fatal("schedule trend loop", zap.Error(err))
	}
	if err := sched.AddEvery("moderation-sweep", sweepInterval, 0, func(context.Context) error {
		filter.Sweep()
		return nil
	}); err != nil {
		logger.Fatal("schedule moderation sweep", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	bot, err := telegram.New(cfg.TelegramBotToken, dispatcher, logger)
	if err != nil {
		logger.Fatal("init telegram bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("bot started", zap.Strings("plugins", registry.Names()))
	bot.Start(ctx)
	logger.Info("shutting down")
}
