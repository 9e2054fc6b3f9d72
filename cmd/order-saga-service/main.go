package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/config"
	"github.com/draftea/order-fulfillment/order-saga-service/handlers"
	"github.com/draftea/order-fulfillment/shared/logger"
	"github.com/draftea/order-fulfillment/shared/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Service.Name, cfg.Service.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service",
		zap.String("port", cfg.Service.Port),
		zap.String("store_driver", cfg.Saga.StoreDriver),
	)

	// Initialize dependencies
	ctx := context.Background()
	deps, err := config.BuildDependencies(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to build dependencies", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			zapLogger.Error("error closing dependencies", zap.Error(err))
		}
	}()

	// Start event subscriber
	subscriberCtx := telemetry.WithTelemetry(ctx, deps.Telemetry)
	if err := deps.EventSubscriber.Start(subscriberCtx); err != nil {
		zapLogger.Fatal("failed to start event subscriber", zap.Error(err))
	}

	// Setup HTTP router
	router := setupRouter(deps)

	// Setup and start HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	if err := deps.EventSubscriber.Stop(shutdownCtx); err != nil {
		zapLogger.Error("event subscriber forced to stop", zap.Error(err))
	}

	zapLogger.Info("service stopped")
}

func setupRouter(deps *config.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(telemetry.Middleware(deps.Telemetry))

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", handlers.NewMetricsHandler())

	// Register saga routes
	deps.SagaHandlers.RegisterRoutes(r)

	return r
}
