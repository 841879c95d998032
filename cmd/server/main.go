// termfix - terminal failure watcher with assistant-backed fix suggestions
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avoronin/termfix/internal/api"
	"github.com/avoronin/termfix/internal/assist"
	"github.com/avoronin/termfix/internal/config"
	"github.com/avoronin/termfix/internal/identity"
	"github.com/avoronin/termfix/internal/middleware"
	"github.com/avoronin/termfix/internal/store"
	"github.com/avoronin/termfix/internal/terminal"
	"github.com/avoronin/termfix/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Assistant client (optional). Without a credential the pipeline still
	// detects failures and serves local fallback suggestions.
	var completer assist.Completer
	if c, err := assist.NewHTTPCompleter(cfg.AssistantURL, cfg.AssistantAPIKey, cfg.AssistantModel, logger); err != nil {
		slog.Info("Assistant disabled", "reason", err)
	} else {
		completer = c
		slog.Info("Assistant client initialized", "url", cfg.AssistantURL, "model", cfg.AssistantModel)
	}

	// Initialize services.
	sm := terminal.NewSessionManager()

	// Initialize handlers.
	apiHandler := api.NewHandler(repo, sm)
	wsHandler := terminal.NewWebSocketHandler(repo, sm, completer, cfg.ExchangeLog, cfg.Shell, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	// API routes. All routes use identity middleware (no auth needed).
	r.Get("/api/health", apiHandler.Health)
	r.Get("/api/suggestions/history", apiHandler.SuggestionHistory)

	// WebSocket endpoint.
	r.Get("/ws/terminal", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Create server. WriteTimeout stays 0 so long-lived WebSocket sessions
	// are never cut mid-stream.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start TTL worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ttlWorker := terminal.NewTTLWorker(repo, sm, cfg.SessionTTL, cfg.EventRetention, logger)
	go ttlWorker.Run(ctx)
	slog.Info("TTL worker started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
