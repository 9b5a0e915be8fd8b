// Package main is the entry point for the region catalog server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/region-catalog/internal/catalog"
	"github.com/vyrodovalexey/region-catalog/internal/config"
	"github.com/vyrodovalexey/region-catalog/internal/events"
	"github.com/vyrodovalexey/region-catalog/internal/server"
	"github.com/vyrodovalexey/region-catalog/internal/store"
)

// catalogStore is a backend holding both items and regions.
type catalogStore interface {
	store.Store
	store.RegionStore
}

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.Strings("cors_allowed_origins", cfg.CORSAllowedOrigins),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("redis_enabled", cfg.RedisEnabled()),
		zap.Int("regions", len(cfg.Regions)),
		zap.String("collation_locale", cfg.CollationLocale),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return 1
	}
	defer closeStore()

	bus, closeBus, err := openBus(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open event bus", zap.Error(err))
		return 1
	}
	defer closeBus()

	svc := catalog.NewService(st, st, bus, logger)
	if err := svc.SeedRegions(ctx, cfg.Regions); err != nil {
		logger.Error("failed to seed regions", zap.Error(err))
		return 1
	}

	srv := server.New(cfg, logger, svc, bus)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Create shutdown context with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		// Graceful shutdown
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}

// openStore creates the configured store backend. The returned func
// releases its resources.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (catalogStore, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory, "":
		logger.Info("using in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	case config.StoreBackendMongo:
		client, err := store.ConnectMongo(ctx, store.MongoConfig{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.MongoConnectTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnectTimeout)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Warn("failed to disconnect from mongodb", zap.Error(err))
			}
		}

		st, err := store.NewMongoStore(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			closeFn()
			return nil, nil, err
		}

		logger.Info("connected to mongodb", zap.String("database", cfg.MongoDatabase))
		return st, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

// openBus creates the change-event bus. With a Redis address the bus is
// shared across instances and receives remote events until ctx is done.
func openBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (events.Bus, func(), error) {
	if !cfg.RedisEnabled() {
		logger.Info("using local event bus")
		return events.NewLocalBus(logger), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	bus := events.NewRedisBus(client, cfg.RedisChannel, logger)
	runCtx, stop := context.WithCancel(ctx)
	go func() {
		if err := bus.Run(runCtx); err != nil {
			logger.Error("redis event bus stopped", zap.Error(err))
		}
	}()

	return bus, func() {
		stop()
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", zap.Error(err))
		}
	}, nil
}
