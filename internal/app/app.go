package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelshelf/internal/config"
	"github.com/temcen/reelshelf/internal/database"
	"github.com/temcen/reelshelf/internal/handlers"
	"github.com/temcen/reelshelf/internal/middleware"
	"github.com/temcen/reelshelf/internal/services"
	"github.com/temcen/reelshelf/internal/validation"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
		err := database.EnsureSchema(ctx, db.PG)
		cancel()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
		app.logger.Info("Library schema ensured")
	}

	// Initialize services
	services, err := services.New(cfg, app.logger, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = services

	// Response contract checks are for non-production modes only
	var schemaValidator *validation.SchemaValidator
	if cfg.Server.Mode != "production" {
		schemaValidator, err = validation.NewSchemaValidator()
		if err != nil {
			app.logger.WithError(err).Warn("Response schema validation disabled")
			schemaValidator = nil
		}
	}

	app.handlers = handlers.New(app.logger, services, schemaValidator)

	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.services.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing message bus")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a.router = newRouter(a.config, a.logger, a.handlers, a.services.Auth, a.services.RateLimit)
}

func newRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	h *handlers.Handlers,
	tokens middleware.TokenValidator,
	limiter middleware.RateLimiter,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.CompressionMiddleware())

	// Health check endpoint (no auth required)
	router.GET("/health", h.Health.Check)

	// Prometheus metrics endpoint (no auth required)
	if cfg.Monitoring.Enabled {
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	{
		api.Use(middleware.Auth(tokens, logger))
		api.Use(middleware.RateLimit(limiter, logger))

		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("/:userId", h.Recommendation.Get)
		}
	}

	return router
}
