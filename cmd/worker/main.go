package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"wechat_sync/internal/config"
	"wechat_sync/internal/consumer"
	"wechat_sync/internal/notifier"
	"wechat_sync/internal/publisher"
	"wechat_sync/internal/scheduler"
	"wechat_sync/internal/service"
	"wechat_sync/internal/source/wechat"
	"wechat_sync/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	topology := topologyConfig(cfg.RabbitMQ)

	rabbitMQ, err := publisher.NewRabbitMQ(topology, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Stores
	taskStore := postgres.NewTaskStore(db, cfg.Sync.RetryBaseDelay)
	accountStore := postgres.NewAccountStore(db)
	mediaStore := postgres.NewMediaStore(db)
	txManager := postgres.NewTransactionManager(db)
	newArticles := func() service.ArticleRepository {
		return postgres.NewArticleStore(db, mediaStore, txManager)
	}

	// WeChat
	wechatCfg := wechat.Config{
		BaseURL:        cfg.WeChat.BaseURL,
		Timeout:        cfg.WeChat.Timeout,
		RateLimit:      cfg.WeChat.RateLimit,
		Burst:          cfg.WeChat.Burst,
		MaxAttempts:    cfg.WeChat.Retry.MaxAttempts,
		InitialBackoff: cfg.WeChat.Retry.InitialBackoff,
		MaxBackoff:     cfg.WeChat.Retry.MaxBackoff,
	}
	tokens := wechat.NewTokenProvider(wechatCfg, logger)
	source := wechat.New(wechatCfg, logger)
	source.SetTokenInvalidator(tokens)

	var dispatcher service.MediaDispatcher = rabbitMQ
	if cfg.Media.Dispatcher == "noop" {
		dispatcher = publisher.NewNoopDispatcher(logger)
	}

	var notify service.Notifier = notifier.NewNoop(logger)
	if cfg.Callback.Enabled {
		notify = notifier.NewHTTP(cfg.Callback.Timeout, logger)
	}

	syncService := service.NewSyncService(
		taskStore,
		accountStore,
		tokens,
		source,
		newArticles,
		dispatcher,
		notify,
		logger,
		cfg.Sync,
	)

	syncConsumer, err := consumer.NewRabbitMQ(consumer.Config{
		Topology:    topology,
		Consumer:    "wechat-sync-worker",
		Concurrency: cfg.RabbitMQ.Concurrency,
	}, syncService, logger)
	if err != nil {
		logger.Error("failed to start consumer", "error", err)
		os.Exit(1)
	}
	defer syncConsumer.Close()

	sched := scheduler.NewScheduler(taskStore, rabbitMQ, cfg.Sync.RetrySweepInterval, cfg.Sync.RetrySweepBatch, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting wechat sync worker",
		"queue", cfg.RabbitMQ.SyncQueue,
		"concurrency", cfg.RabbitMQ.Concurrency,
		"media_dispatcher", cfg.Media.Dispatcher,
		"callbacks", cfg.Callback.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return syncConsumer.Start(gctx) })
	g.Go(func() error { return sched.Start(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func topologyConfig(cfg config.RabbitMQConfig) publisher.Config {
	return publisher.Config{
		URL:             cfg.URL,
		Exchange:        cfg.Exchange,
		SyncQueue:       cfg.SyncQueue,
		SyncRoutingKey:  cfg.SyncRoutingKey,
		MediaQueue:      cfg.MediaQueue,
		MediaRoutingKey: cfg.MediaRoutingKey,
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
