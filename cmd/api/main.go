package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/cva-pasha/covali-templates/internal/adapter/events"
	httpAdapter "github.com/cva-pasha/covali-templates/internal/adapter/http"
	"github.com/cva-pasha/covali-templates/internal/adapter/http/middleware"
	"github.com/cva-pasha/covali-templates/internal/adapter/postgres"
	"github.com/cva-pasha/covali-templates/internal/adapter/queue"
	"github.com/cva-pasha/covali-templates/internal/adapter/webhook"
	"github.com/cva-pasha/covali-templates/internal/adapter/ws"
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

	tp, err := tracing.InitTracer(ctx, "covali-templates", cfg.JaegerEndpoint)
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

	if err := postgres.Migrate(ctx, db, cfg.DatabaseURL, cfg.DBSchema, cfg.MigrationsSource); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	log.Info("database migrations applied", zap.String("schema", cfg.DBSchema))

	compressor, err := codec.NewZstdCompressor()
	if err != nil {
		log.Fatal("failed to initialize body compressor", zap.Error(err))
	}
	defer func() { _ = compressor.Close() }()

	templateRepo := postgres.NewTemplateRepo(db, compressor, cfg.DBSchema)

	wsHub := ws.NewHub()
	sinks := []port.TemplateEventPublisher{
		queue.NewProducer(cfg.KafkaBrokers, cfg.KafkaEventsTopic),
		wsHub,
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, webhook.NewNotifier(cfg.WebhookURL))
	}
	fanout := events.NewFanout(sinks...)
	publisher := events.NewAsyncPublisher(fanout, eventDeliveryTimeout, maxEventsInFlight, log)
	defer func() { _ = publisher.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	templateService := app.NewTemplateService(
		templateRepo,
		codec.NewJSONCodec(),
		publisher,
		app.NewMetrics(registry),
		log,
	)

	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		TemplateHandler:  httpAdapter.NewTemplateHandler(templateService),
		HealthHandler:    httpAdapter.NewHealthHandler(db, cfg.KafkaBrokers),
		MetricsHandler:   httpAdapter.NewMetricsHandler(registry),
		WebSocketHandler: httpAdapter.NewWebSocketHandler(wsHub),
		HTTPMetrics:      middleware.NewHTTPMetrics(registry),
		RateLimitRPS:     cfg.RateLimitRPS,
		CORSOrigins:      cfg.CORSOrigins,
		Logger:           log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting http server",
			zap.String("port", cfg.AppPort),
			zap.String("env", cfg.AppEnv),
			zap.Int("event_sinks", fanout.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
