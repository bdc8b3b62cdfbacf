package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/wekeepgrowing/subscription-billing/internal/adapter/handler/http"
	"github.com/wekeepgrowing/subscription-billing/internal/config"
	"github.com/wekeepgrowing/subscription-billing/internal/domain/provider"
	"github.com/wekeepgrowing/subscription-billing/internal/infrastructure/database"
	"github.com/wekeepgrowing/subscription-billing/internal/middleware/auth"
	"github.com/wekeepgrowing/subscription-billing/internal/notification"
	"github.com/wekeepgrowing/subscription-billing/internal/usecase"
	"go.uber.org/zap"
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	repos    *database.Repositories
	gateway  provider.Gateway
	verifier provider.SignatureVerifier
	notifier notification.Notifier
}

// requestValidator adapts validator.Validate to echo's Validator interface.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	repos *database.Repositories,
	gateway provider.Gateway,
	verifier provider.SignatureVerifier,
	notifier notification.Notifier,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:   cfg,
		logger:   logger,
		echo:     e,
		repos:    repos,
		gateway:  gateway,
		verifier: verifier,
		notifier: notifier,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize usecases
	paymentService := usecase.NewPaymentService(s.repos.Payment, s.repos.Subscription, s.repos.Plan, s.gateway, s.logger)
	subscriptionService := usecase.NewSubscriptionService(s.repos.Subscription, s.repos.Plan, s.logger)
	engine := usecase.NewReconciliationService(s.repos.Payment, s.repos.Subscription, subscriptionService, s.verifier, s.notifier, s.logger)

	// Initialize handlers
	plansHandler := handlers.NewPlansHandler(s.repos.Plan, s.logger)
	orderHandler := handlers.NewOrderHandler(paymentService, s.logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, engine, s.logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService, s.logger)
	webhookHandler := handlers.NewWebhookHandler(engine, s.verifier, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
			"/webhook",
			"/api/v1/plans",
		},
	}

	// API v1 routes
	v1 := s.echo.Group("/api/v1")

	// Public routes (no authentication required)
	v1.GET("/plans", plansHandler.GetPlans)

	// Protected routes (require JWT authentication)
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	// Payment routes
	payments := protected.Group("/payments")
	payments.POST("/order", orderHandler.CreateOrder)
	payments.POST("/verify", paymentHandler.VerifyPayment)
	payments.POST("/activate", paymentHandler.ActivatePayment)
	payments.GET("/:id", paymentHandler.GetPayment)
	payments.GET("", paymentHandler.GetUserPayments)

	// Subscription routes
	subscriptions := protected.Group("/subscriptions")
	subscriptions.GET("/me", subscriptionHandler.GetMySubscriptions)
	subscriptions.GET("/:id", subscriptionHandler.GetSubscription)
	subscriptions.POST("/:id/cancel", subscriptionHandler.CancelSubscription)

	// Admin routes
	admin := protected.Group("/admin")
	admin.GET("/subscriptions", subscriptionHandler.ListSubscriptions)

	// Webhook route (outside API versioning)
	s.echo.POST("/webhook", webhookHandler.HandleWebhook)
}
