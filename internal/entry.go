// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/rkreels/spendguard/internal/api"
	"github.com/rkreels/spendguard/internal/feed"
	"github.com/rkreels/spendguard/internal/procurement"
	"github.com/rkreels/spendguard/internal/sse"
	"github.com/rkreels/spendguard/internal/storage"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger unless the caller supplied one.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_backend", cfg.Store.Backend),
		slog.Bool("seed_enabled", cfg.Seed.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the persistence provider.
	var (
		provider  storage.Provider
		fileStore *storage.File
		dataRoot  = cfg.Store.Path
	)
	switch cfg.Store.Backend {
	case BackendMemory:
		provider = storage.NewMemory()
		if dataRoot == "" {
			dataRoot = "./data"
		}
	case BackendFile:
		if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFile(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
		provider = fs
		fileStore = fs
	case BackendSQLite:
		db, err := storage.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("init sqlite store: %w", err)
		}
		provider = db
		if dataRoot == "" {
			dataRoot = "./data"
		}
	default:
		return fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
	defer provider.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build the domain service and API router.
	svc := procurement.NewService(provider, logger,
		procurement.WithSeedData(cfg.Seed.Enabled),
		procurement.WithBroadcaster(broker),
	)
	svc.Feed.SetOnAdd(func(n feed.Notification) {
		broker.Publish(sse.Event{Type: "notification.created", Data: n})
	})
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, dataRoot)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Attachment downloads (unauthenticated, like static assets).
	r.Get("/attachments/{filename}", api.NewAttachmentHandler(dataRoot).ServeFile)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the data directory so edits from outside this process (a second
	// console tab, a manual fix in an editor) show up without a restart.
	if fileStore != nil {
		g.Go(func() error {
			if err := fileStore.Watch(gCtx, logger, func(key string) {
				svc.ReloadKey(key)
			}); err != nil {
				logger.Warn("data watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Notification simulator.
	if cfg.Feed.Simulator.Enabled {
		sim := feed.NewSimulator(svc.Feed, logger, cfg.Feed.Simulator.Interval, cfg.Feed.Simulator.Probability, nil)
		g.Go(func() error {
			sim.Run(gCtx)
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
