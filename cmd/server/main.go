// Package main provides the entry point for the exam prep backend server.
// It wires configuration, observability, the optional history store, and the
// HTTP routes, then serves until interrupted.
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

	"github.com/gin-gonic/gin"

	"examprep/internal/config"
	"examprep/internal/database"
	"examprep/internal/handlers"
	"examprep/internal/observability"
	"examprep/internal/services"
	contextutils "examprep/internal/utils"
)

// Application encapsulates the wired server and can be tested
type Application struct {
	cfg    *config.Config
	router *gin.Engine
	server *http.Server
	logger *observability.Logger
}

// NewApplication wires services and routes into a runnable application.
func NewApplication(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Application, error) {
	prompts, err := services.NewPromptManager()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load prompt templates")
	}

	upstream := services.NewUpstreamClient(&cfg.Upstream, logger)
	examService := services.NewExamService(upstream, prompts, logger)
	fallback := services.NewFallbackService()
	limiter := services.NewRateLimiter(cfg.RateLimit.Quota, logger)

	// Persistence is optional: no DATABASE_URL means no history store.
	var history *database.GenerationStore
	if cfg.Database.URL != "" {
		db, err := database.NewManager(logger).InitDB(cfg.Database)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to connect to database")
		}
		history, err = database.NewGenerationStore(ctx, db, logger)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to initialize generation history store")
		}
	} else {
		logger.Info(ctx, "No DATABASE_URL configured, running without persistence", nil)
	}

	examHandler := handlers.NewExamHandler(examService, upstream, fallback, history, cfg, logger)
	router := handlers.NewRouter(cfg, examHandler, limiter, logger)

	return &Application{
		cfg:    cfg,
		router: router,
		logger: logger,
	}, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails.
func (a *Application) Run(ctx context.Context) error {
	a.server = &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErr:
		return contextutils.WrapError(err, "server failed")
	}
}

// Shutdown drains in-flight requests before returning.
func (a *Application) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup observability (tracing/metrics/logging)
	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "examprep-backend")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if tp != nil {
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down tracer provider", map[string]interface{}{"error": err.Error()})
			}
		}
		if mp != nil {
			if err := mp.Shutdown(shutdownCtx); err != nil {
				logger.Warn(ctx, "Error shutting down meter provider", map[string]interface{}{"error": err.Error()})
			}
		}
	}()

	observability.InitGlobalTracer()

	logger.Info(ctx, "Starting exam prep backend service", map[string]interface{}{
		"port":             cfg.Server.Port,
		"logLevel":         cfg.Server.LogLevel,
		"upstream_url":     cfg.Upstream.BaseURL,
		"upstream_model":   cfg.Upstream.Model,
		"api_key":          contextutils.MaskAPIKey(cfg.Upstream.APIKey),
		"api_key_present":  cfg.Upstream.APIKey != "",
		"rate_limit_quota": cfg.RateLimit.Quota,
		"persistence":      cfg.Database.URL != "",
	})

	app, err := NewApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err, nil)
		os.Exit(1)
	}

	appErr := make(chan error, 1)
	go func() {
		if err := app.Run(ctx); err != nil {
			appErr <- err
		}
	}()

	select {
	case <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully", nil)
	case err := <-appErr:
		logger.Error(ctx, "Application failed", err, nil)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during application shutdown", err, nil)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully", nil)
}
