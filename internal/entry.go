// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/citypages/internal/api"
	"github.com/starford/citypages/internal/assetstore"
	"github.com/starford/citypages/internal/auth"
	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/logger"
	"github.com/starford/citypages/internal/provision"
	"github.com/starford/citypages/internal/reconcile"
	"github.com/starford/citypages/internal/registry"
	"github.com/starford/citypages/internal/sse"
	"github.com/starford/citypages/internal/storage"
)

const assetUploadTimeout = 30 * time.Second

// runtime holds what every command needs: logger, registry and provisioner.
type runtime struct {
	cfg     *Config
	logger  *slog.Logger
	backend registry.Backend
	store   storage.Provider
	closers []io.Closer
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i].Close()
	}
}

func (rt *runtime) service(opts ...provision.Option) *provision.Service {
	opts = append([]provision.Option{provision.WithLogger(rt.logger)}, opts...)
	return provision.NewService(rt.backend, rt.store, opts...)
}

func bootstrap(ctx context.Context, app *application) (*runtime, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	console := app.console
	if console == nil {
		console = os.Stdout
	}
	log, logCloser := logger.NewWithConsole(console, cfg.App.LogLevel, cfg.App.Log)
	slog.SetDefault(log)
	rt := &runtime{cfg: cfg, logger: log, closers: []io.Closer{logCloser}}

	log.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("env", cfg.App.Env),
		slog.String("pages_root", cfg.Pages.Root),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Pages.Root, 0o755); err != nil {
		rt.Close()
		return nil, fmt.Errorf("create pages root: %w", err)
	}
	store, err := storage.NewFS(cfg.Pages.Root)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	rt.store = store

	backend, err := openBackend(ctx, cfg.Database)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init registry: %w", err)
	}
	rt.backend = backend
	rt.closers = append(rt.closers, backend)
	return rt, nil
}

func openBackend(ctx context.Context, cfg DatabaseConfig) (registry.Backend, error) {
	if cfg.Driver == DriverMongo {
		m, err := registry.OpenMongo(ctx, registry.MongoConfig{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Username: cfg.Mongo.Username,
			Password: cfg.Mongo.Password,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	db, err := registry.OpenSQLite(cfg.SQLite.Path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := bootstrap(ctx, app)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	logger := rt.logger

	// SSE broker.
	broker := sse.NewBroker(2*time.Second, sse.WithHeartbeat(15*time.Second))
	defer broker.Close()

	svc := rt.service(provision.WithPublisher(broker))

	// Bring the page tree in line with the registry before serving.
	if rep, err := reconcile.Sync(ctx, svc, category.All(), logger); err != nil {
		logger.Warn("initial reconcile failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial reconcile done",
			slog.Int("records", rep.Records),
			slog.Int("missing", rep.Missing),
			slog.Int("drifted", rep.Drifted),
			slog.Int("orphans", rep.Orphans))
	}

	assets, err := assetstore.NewLocal(cfg.Assets.Dir, cfg.Assets.BaseURL, cfg.Assets.MaxBytes, assetUploadTimeout)
	if err != nil {
		return fmt.Errorf("init assets: %w", err)
	}

	verifier, err := auth.New(auth.Config{
		Mode:      cfg.Auth.Mode,
		Token:     cfg.Auth.Token,
		JWTSecret: cfg.Auth.JWTSecret,
	}, logger)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	apiRouter := api.NewRouter(api.Deps{
		Service:  svc,
		Verifier: verifier,
		Assets:   assets,
		Events:   broker,
		Verbose:  cfg.App.Verbose(),
		Logger:   logger,
	})

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
	r.Get("/health/ready", readyHandler(svc))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/assets/{folder}/{file}", assetstore.NewHandler(assets).ServeFile)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Pages.Watch {
		g.Go(func() error {
			err := reconcile.Watch(gCtx, svc, category.All(), logger, func(cat category.Category, rep reconcile.Report) {
				if rep.Missing+rep.Drifted+rep.Orphans > 0 {
					broker.Publish(sse.Event{Type: "pages.reconciled", Category: cat.Key, Data: rep})
				}
			})
			if err != nil {
				// A broken watcher is not fatal: the initial pass already ran.
				logger.Error("page watcher stopped", slog.String("error", err.Error()))
			}
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
		defer signal.Stop(quit)

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// readyHandler reports ready once the registry answers a query.
func readyHandler(svc *provision.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := svc.ListActive(ctx, category.Taxi); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
