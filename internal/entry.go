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

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/linkgraph"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// Runtime bundles the core components shared by every run mode.
type Runtime struct {
	Config  *Config
	Logger  *slog.Logger
	Store   storage.Provider
	Manager *index.Manager
	Links   *linkgraph.Engine
	Service *docservice.Service
}

// NewRuntime builds storage, indexes, and the query service from config.
// The index is built once here; run modes decide whether to watch for
// changes afterwards.
func NewRuntime(cfg *Config) (*Runtime, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := storage.NewFS(cfg.Docs.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	manager, err := index.NewManager(store, index.Config{
		DocsDir:      cfg.Docs.ContentDir,
		SpecsDir:     cfg.Docs.SpecsDir,
		GlossaryPath: cfg.Docs.GlossaryPath,
		ExtraFiles:   cfg.Docs.ExtraFiles,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	links := linkgraph.New(store, "", logger)
	svc := docservice.NewService(store, manager, links)

	logger.Info("Runtime initialized",
		slog.String("docs_path", cfg.Docs.Path),
		slog.String("summary", manager.Current().Summary()))

	return &Runtime{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Manager: manager,
		Links:   links,
		Service: svc,
	}, nil
}

// RunServe starts the MCP server on stdio. With checkOnly set it builds
// the indexes, prints a one-line summary to stderr, and exits without
// opening the transport.
func RunServe(ctx context.Context, cfg *Config, checkOnly bool) error {
	rt, err := NewRuntime(cfg)
	if err != nil {
		return err
	}

	if checkOnly {
		fmt.Fprintln(os.Stderr, rt.Manager.Current().Summary())
		return nil
	}

	srv := mcpserver.New(rt.Service)
	rt.Logger.Info("MCP server starting on stdio")

	done := make(chan error, 1)
	go func() { done <- srv.ServeStdio() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		return err
	}
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	rt, err := NewRuntime(cfg)
	if err != nil {
		return err
	}
	logger := rt.Logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API router.
	apiRouter := api.NewRouter(rt.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; each effective rebuild notifies SSE clients with
	// a doc.changed event per path plus a throttled index.rebuilt.
	g.Go(func() error {
		return index.Watch(gCtx, rt.Manager, rt.Store.Root(), logger, func(changed []string) {
			if len(changed) == 0 {
				broker.Publish(sse.Event{Type: "index.rebuilt", Data: map[string]string{}})
				return
			}
			for _, path := range changed {
				broker.PublishDocChange(path)
			}
		})
	})

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
