package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tair/produce-ledger/config"
	_ "github.com/tair/produce-ledger/docs"
	"github.com/tair/produce-ledger/internal/ledger"
	"github.com/tair/produce-ledger/internal/ledger/cache"
	httpDelivery "github.com/tair/produce-ledger/internal/ledger/delivery/http"
	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/repository"
	"github.com/tair/produce-ledger/kafka"
	"github.com/tair/produce-ledger/pkg/database"
	"github.com/tair/produce-ledger/pkg/logger"
	"github.com/tair/produce-ledger/pkg/tracing"
)

func main() {
	cfg := config.Load("ledger-service")

	// Initialize logger
	logger.Init(cfg.Service.Name, cfg.IsDevelopment())
	logger.SetLevel(cfg.Service.LogLevel)

	logger.Logger.Info().
		Str("service", cfg.Service.Name).
		Str("environment", cfg.Service.Environment).
		Str("log_level", cfg.Service.LogLevel).
		Str("timezone", cfg.Location().String()).
		Msg("Starting ledger service")

	tp, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: "1.0.0",
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize tracer")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(ctx, tp); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
		}
	}()

	// Connect to database
	db, err := database.NewGormConnection(cfg.Database)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	// Run migrations
	if err := repository.AutoMigrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Logger.Info().Str("driver", cfg.Database.Driver).Msg("Database initialized successfully")

	stockCache := newStockCache(cfg)
	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	// Initialize handler with Wire DI
	handler, err := ledger.InitializeHTTPHandler(db, cfg, publisher, stockCache)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize handler")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           newRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Logger.Info().
			Str("port", cfg.Service.HTTPPort).
			Str("metrics_endpoint", "/metrics").
			Str("swagger_endpoint", "/swagger/").
			Msg("HTTP server started")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
}

func newRouter(handler *httpDelivery.LedgerHandler) http.Handler {
	router := mux.NewRouter()

	mwConfig := httpDelivery.DefaultMiddlewareConfig()
	httpDelivery.RegisterMiddlewares(router, mwConfig)

	handler.RegisterRoutes(router)
	handler.RegisterHealthCheck(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	httpDelivery.RegisterSwaggerDocs(router, httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return httpDelivery.SetupCORS(mwConfig)(router)
}

// newStockCache returns the redis cache when enabled and reachable.
func newStockCache(cfg *config.Config) domain.StockCache {
	if !cfg.Redis.Enabled {
		return domain.NopCache{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	stockCache := cache.NewRedisStockCache(client, cfg.Redis.TTL)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := stockCache.Ping(ctx); err != nil {
		logger.Logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, serving stock without cache")
		client.Close()
		return domain.NopCache{}
	}

	logger.Logger.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("Redis stock cache enabled")
	return stockCache
}

// newPublisher returns the kafka publisher when enabled. A broker outage at
// startup degrades to dropping events; ledger writes never depend on it.
func newPublisher(cfg *config.Config) (domain.EventPublisher, func()) {
	if !cfg.Kafka.Enabled {
		return domain.NopPublisher{}, func() {}
	}

	publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
	if err != nil {
		logger.Logger.Warn().Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka unavailable, ledger events disabled")
		return domain.NopPublisher{}, func() {}
	}

	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to close Kafka publisher")
		}
	}
}
