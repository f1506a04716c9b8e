package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-core/internal/config"
	"github.com/ariefcatur/go-shop-core/internal/events"
	kafkax "github.com/ariefcatur/go-shop-core/internal/kafka"
	"github.com/ariefcatur/go-shop-core/internal/notify"
	"github.com/ariefcatur/go-shop-core/internal/observability"
	"github.com/ariefcatur/go-shop-core/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service := cfg.ServiceName + "-notifier"
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTLPEndpoint, service, cfg.Version)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	// Redis untuk dedup event_id; tanpa Redis dedup hanya per proses
	var rdb redisx.Cmdable = redisx.NewMemory()
	if cfg.RedisAddr != "" {
		client := redisx.New(cfg.RedisAddr)
		if err := redisx.Ping(ctx, client); err != nil {
			logger.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer client.Close()
		rdb = client
	}

	disp := notify.NewDispatcher(
		notify.LogSink{Log: logger.Named("sink")},
		redisx.NewDedup(rdb, service, redisx.TTLDedup),
		logger,
	)

	topics := []string{events.TopicStockLow, events.TopicOrderStatusChanged, events.TopicOrderCreated}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, topics, cfg.NotifierWorkers, logger.Named("kafka"))

	logger.Info("notifier consumer started",
		zap.String("group", cfg.NotifierGroup),
		zap.Strings("topics", topics),
		zap.Int("workers", cfg.NotifierWorkers))
	if err := cons.Start(ctx, kafkax.Envelopes(disp.Handle, logger)); err != nil {
		logger.Error("consumer exit", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
