package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/kvarea/internal/application/area"
	"github.com/aescanero/kvarea/internal/application/workers"
	"github.com/aescanero/kvarea/internal/config"
	eventsmemory "github.com/aescanero/kvarea/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/kvarea/pkg/adapters/events/redis"
	"github.com/aescanero/kvarea/pkg/adapters/errorsink"
	"github.com/aescanero/kvarea/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/kvarea/pkg/adapters/storage"
	"github.com/aescanero/kvarea/pkg/api/grpc"
	"github.com/aescanero/kvarea/pkg/api/http"
	"github.com/aescanero/kvarea/pkg/api/websocket"
	"github.com/aescanero/kvarea/pkg/ports"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting kvarea",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("store_backend", cfg.Store.Backend))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis client when the store or the relay needs it
	var redisClient *goredis.Client
	if cfg.NeedsRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize adapters
	metricsCollector := prometheus.NewCollector(nil)
	sink := errorsink.NewLogger(logger)

	store, err := storage.NewStore(&storage.Config{
		Backend:   cfg.Store.Backend,
		KeyPrefix: cfg.Store.KeyPrefix,
		Client:    redisClient,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to create store", zap.Error(err))
	}

	eventBus := eventsmemory.NewEventBus(metricsCollector, logger)

	// Initialize storage areas
	registry := area.NewRegistry(area.NewArea(
		store,
		eventBus,
		sink,
		metricsCollector,
		logger,
	))

	// Mirror change sets to Redis Streams
	var (
		relayPool *workers.Pool
		relay     *eventsredis.StreamsRelay
		checks    = map[string]ports.HealthChecker{}
	)
	if cfg.Relay.Enabled {
		relayPool = workers.NewPool(
			cfg.Relay.Workers,
			cfg.Relay.QueueSize,
			metricsCollector,
			logger,
			cfg.Relay.HealthCheckInterval,
		)
		if err := relayPool.Start(); err != nil {
			logger.Fatal("failed to start relay worker pool", zap.Error(err))
		}

		relay = eventsredis.NewStreamsRelay(
			redisClient,
			eventsredis.StreamsConfig{
				Stream: cfg.Relay.Stream,
				MaxLen: cfg.Relay.MaxLen,
			},
			relayPool,
			sink,
			metricsCollector,
			logger,
		)
		registry.AddChangeListener(relay.Listener())
		checks["relay"] = relayPool

		logger.Info("change relay enabled",
			zap.String("stream", cfg.Relay.Stream),
			zap.Int("workers", cfg.Relay.Workers))
	}

	// Initialize API servers
	httpConfig := &http.Config{
		Addr:     cfg.GetHTTPAddr(),
		Registry: registry,
		Store:    store,
		Checks:   checks,
		Sink:     sink,
		Logger:   logger,
	}
	if relay != nil {
		httpConfig.Changes = relay
	}
	httpServer := http.NewServer(httpConfig)

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(registry, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Addr:   cfg.GetGRPCAddr(),
		Store:  store,
		Checks: checks,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}
	go grpcServer.Watch(ctx, cfg.Timeouts.HealthCheckInterval)

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("kvarea started",
		zap.String("http_addr", cfg.GetHTTPAddr()),
		zap.String("grpc_addr", cfg.GetGRPCAddr()),
		zap.Strings("areas", registry.Names()))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	registry.ResetListeners()

	if relayPool != nil {
		if err := relayPool.Shutdown(shutdownCtx); err != nil {
			logger.Error("relay worker pool shutdown error", zap.Error(err))
		}
	}

	if closer, ok := store.(ports.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Error("store close error", zap.Error(err))
		}
	} else if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("kvarea shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
