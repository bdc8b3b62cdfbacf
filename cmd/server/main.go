package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wekeepgrowing/subscription-billing/internal/config"
	"github.com/wekeepgrowing/subscription-billing/internal/infrastructure/database"
	"github.com/wekeepgrowing/subscription-billing/internal/infrastructure/gateway/razorpay"
	httpServer "github.com/wekeepgrowing/subscription-billing/internal/infrastructure/http"
	"github.com/wekeepgrowing/subscription-billing/internal/jobs/expiry"
	"github.com/wekeepgrowing/subscription-billing/internal/logger"
	"github.com/wekeepgrowing/subscription-billing/internal/notification"
	"github.com/wekeepgrowing/subscription-billing/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, zapLogger)

	// Initialize gateway client and signature verifier
	gateway := razorpay.NewClient(cfg.Gateway.KeyID, cfg.Gateway.KeySecret, zapLogger)
	verifier := razorpay.NewSignatureVerifier(cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret)

	// Initialize notifier
	notifier := notification.NewNopNotifier()
	if cfg.Redis.Enabled {
		redisNotifier, err := notification.NewRedisNotifier(
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		notifier = redisNotifier
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the expiry sweeper
	subscriptionService := usecase.NewSubscriptionService(repos.Subscription, repos.Plan, zapLogger)
	sweeper := expiry.NewSweeper(subscriptionService, cfg.Sweeper.Interval, zapLogger)
	go func() {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("Expiry sweeper stopped", zap.Error(err))
		}
	}()

	// Start HTTP server
	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, gateway, verifier, notifier)
	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down server...")
	cancel()

	if err := httpSrv.Shutdown(context.Background()); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	zapLogger.Info("Server shut down successfully")
}
