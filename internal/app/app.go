package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hyptrb/messaging/internal/config"
	httpcontroller "github.com/hyptrb/messaging/internal/controller/http"
	"github.com/hyptrb/messaging/internal/database"
	messagingdao "github.com/hyptrb/messaging/internal/domain/messaging/dao"
	messagingservice "github.com/hyptrb/messaging/internal/domain/messaging/service"
	threaddao "github.com/hyptrb/messaging/internal/domain/thread/dao"
	threadservice "github.com/hyptrb/messaging/internal/domain/thread/service"
	userdao "github.com/hyptrb/messaging/internal/domain/user/dao"
	userservice "github.com/hyptrb/messaging/internal/domain/user/service"
	"github.com/hyptrb/messaging/internal/httpx/upstream/hyptrb"
	"github.com/hyptrb/messaging/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	pool *pgxpool.Pool

	resolver     *userservice.Resolver
	synchronizer *threadservice.Synchronizer
	messaging    *messagingservice.Service
	uploads      *storage.S3Storage
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Initialize router with middleware
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	// Initialize infrastructure
	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	// Initialize domain layers
	if err := app.initDomains(ctx); err != nil {
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	// Register routes
	app.registerRoutes()

	// Initialize HTTP server
	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// initInfrastructure initializes the database pool and attachment storage
func (a *App) initInfrastructure(ctx context.Context) error {
	pool, err := database.NewPostgresPool(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	a.pool = pool

	if err := database.ApplyMigrations(ctx, pool); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	uploads, err := storage.NewS3Storage(storage.S3Config{
		Endpoint:        a.cfg.S3.Endpoint,
		AccessKeyID:     a.cfg.S3.AccessKeyID,
		SecretAccessKey: a.cfg.S3.SecretAccessKey,
		Bucket:          a.cfg.S3.Bucket,
		Region:          a.cfg.S3.Region,
		PublicURL:       a.cfg.S3.PublicURL,
	})
	if err != nil {
		return fmt.Errorf("initializing attachment storage: %w", err)
	}
	a.uploads = uploads

	return nil
}

// initDomains initializes domain layers (DAO, Service)
func (a *App) initDomains(ctx context.Context) error {
	// Platform API client for roles, profiles and campaigns
	platform := hyptrb.New(
		hyptrb.WithBaseURL(a.cfg.Hyptrb.BaseURL),
		hyptrb.WithTimeout(a.cfg.Hyptrb.Timeout),
	)
	campaigns := hyptrb.NewCachedCampaignSource(platform, a.cfg.Hyptrb.CampaignCache)

	userRepo := userdao.NewUserPostgres(a.pool)
	threadRepo := threaddao.NewThreadPostgres(a.pool)
	convRepo := messagingdao.NewConversationPostgres(a.pool)
	msgRepo := messagingdao.NewMessagePostgres(a.pool)

	a.resolver = userservice.NewResolver(platform, userRepo, a.logger)
	a.synchronizer = threadservice.NewSynchronizer(campaigns, threadRepo, a.logger)
	a.messaging = messagingservice.New(convRepo, msgRepo, threadRepo, userRepo)

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	// Health check
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	// Swagger UI documentation
	swaggerHandler := httpcontroller.NewSwaggerHandler("Hyptrb Messaging API", OpenAPISpec)
	swaggerHandler.RegisterRoutes(a.router)

	auth := httpcontroller.NewAuthenticator(a.cfg.Auth.JWTSecret)

	// API v1
	a.router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		userHandler := httpcontroller.NewUserHandler(a.resolver)
		userHandler.RegisterRoutes(r)

		threadHandler := httpcontroller.NewThreadHandler(a.resolver, a.synchronizer, a.messaging)
		convHandler := httpcontroller.NewConversationHandler(a.resolver, a.messaging)
		msgHandler := httpcontroller.NewMessageHandler(a.resolver, a.messaging)
		httpcontroller.RegisterMessagingRoutes(r, threadHandler, convHandler, msgHandler)

		uploadHandler := httpcontroller.NewUploadHandler(a.uploads)
		uploadHandler.RegisterRoutes(r)
	})
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler handles readiness check requests
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.pool.Ping(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	// Channel to receive errors from server
	errCh := make(chan error, 1)

	// Start HTTP server in goroutine
	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	// Graceful shutdown
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("shutdown complete")
	return nil
}
