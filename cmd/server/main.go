package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flow-84/crypto-portfolio-v2/internal/application/services"
	"github.com/flow-84/crypto-portfolio-v2/internal/config"
	"github.com/flow-84/crypto-portfolio-v2/internal/domain/repositories"
	"github.com/flow-84/crypto-portfolio-v2/internal/infrastructure/cache"
	"github.com/flow-84/crypto-portfolio-v2/internal/infrastructure/coingecko"
	"github.com/flow-84/crypto-portfolio-v2/internal/infrastructure/database"
	"github.com/flow-84/crypto-portfolio-v2/internal/presentation/handlers"
	"github.com/flow-84/crypto-portfolio-v2/internal/presentation/middleware"
)

func main() {
	// Load configuration (.env is optional)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting crypto-portfolio API",
		zap.Int("port", cfg.Server.Port),
		zap.String("store_backend", cfg.Store.Backend),
	)

	// Connect to the holdings store
	var store repositories.PortfolioRepository
	var storeChecker handlers.HealthChecker
	var closeStore func() error

	switch cfg.Store.Backend {
	case "redis":
		redisStore, err := cache.NewRedisStore(cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		store = redisStore
		storeChecker = redisStore
		closeStore = redisStore.Close
	case "postgres":
		db, err := database.NewPostgresDB(cfg.Database, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		repo := database.NewHoldingsRepo(db.DB())
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("Failed to prepare database schema", zap.Error(err))
		}
		store = repo
		storeChecker = db
		closeStore = db.Close
	default:
		logger.Fatal("Unknown store backend", zap.String("backend", cfg.Store.Backend))
	}
	defer closeStore()

	// Price feed and the refresh machinery
	feed := coingecko.NewClient(cfg.Feed, logger)
	priceCache := services.NewPriceCache()
	gate := services.NewCallGate(cfg.Refresh.Interval, cfg.Feed.MaxRetries, cfg.Feed.RetryDelay, logger)

	refresher := services.NewRefresherService(store, feed, priceCache, gate, cfg.Refresh, logger)
	refresher.Start(context.Background())
	defer refresher.Stop()

	// Create services
	portfolioService := services.NewPortfolioService(store, priceCache, feed, gate, refresher, cfg.Refresh, logger)
	searchService := services.NewSearchService(feed, logger)

	// Create handlers
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService, logger)
	priceHandler := handlers.NewPriceHandler(portfolioService, logger)
	searchHandler := handlers.NewSearchHandler(searchService, logger)
	healthHandler := handlers.NewHealthHandler(storeChecker, feed)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RateLimiter(cfg.Server.RateLimitRPS))

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		portfolioHandler.RegisterRoutes(r)
		priceHandler.RegisterRoutes(r)
		searchHandler.RegisterRoutes(r)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		logger.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}
