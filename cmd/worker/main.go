package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/cva-pasha/covali-templates/internal/adapter/events"
	"github.com/cva-pasha/covali-templates/internal/adapter/postgres"
	"github.com/cva-pasha/covali-templates/internal/adapter/queue"
	"github.com/cva-pasha/covali-templates/internal/app"
	"github.com/cva-pasha/covali-templates/internal/port"
	"github.com/cva-pasha/covali-templates/pkg/codec"
	"github.com/cva-pasha/covali-templates/pkg/config"
	"github.com/cva-pasha/covali-templates/pkg/logger"
	"github.com/cva-pasha/covali-templates/pkg/tracing"
)

const (
	eventDeliveryTimeout = 10 * time.Second
	maxEventsInFlight    = 256
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracing.InitTracer(ctx, "covali-templates-worker", cfg.JaegerEndpoint)
	if err != nil {
		log.Warn("failed to initialize tracer, continuing without tracing", zap.Error(err))
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	pool := postgres.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DBMaxOpenConns
	pool.MaxIdleConns = cfg.DBMaxIdleConns

	db, err := postgres.NewConnection(ctx, cfg.DatabaseURL, pool)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	compressor, err := codec.NewZstdCompressor()
	if err != nil {
		log.Fatal("failed to initialize body compressor", zap.Error(err))
	}
	defer func() { _ = compressor.Close() }()

	publisher := events.NewAsyncPublisher(
		queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic),
		eventDeliveryTimeout,
		maxEventsInFlight,
		log,
	)
	defer func() { _ = publisher.Close() }()

	templateService := app.NewTemplateService(
		postgres.NewTemplateRepo(db, compressor, cfg.DBSchema),
		codec.NewJSONCodec(),
		publisher,
		nil,
		log,
	)
	usageService := app.NewUsageService(templateService, postgres.NewIdempotencyRepo(db, cfg.DBSchema), log)

	var consumer port.UsageConsumer = queue.NewConsumer(queue.ConsumerConfig{
		Brokers:    cfg.KafkaBrokers,
		Group:      cfg.KafkaConsumerGroup,
		Topic:      cfg.KafkaUsageTopic,
		RatePerSec: cfg.UsageRateLimit,
		Logger:     log,
	})

	go func() {
		if err := consumer.Start(ctx, usageService.HandleUsage); err != nil {
			if ctx.Err() == nil {
				log.Error("consumer stopped unexpectedly", zap.Error(err))
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := consumer.Stop(shutdownCtx); err != nil {
		log.Error("consumer shutdown error", zap.Error(err))
	}

	log.Info("worker stopped")
}
