package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/s1natex/tasklists-GO/internal/config"
	"github.com/s1natex/tasklists-GO/internal/middleware"
	"github.com/s1natex/tasklists-GO/internal/tasks"
	"github.com/s1natex/tasklists-GO/internal/telemetry"
	"github.com/s1natex/tasklists-GO/internal/view"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv("config.yaml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.Options{
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	repo, closeRepo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	r := newRouter(routerDeps{
		svc:        tasks.NewService(repo),
		pages:      view.Static(),
		logger:     logger,
		cors:       cfg.CORS.AllowedOrigins,
		limiter:    middleware.NewClientLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		timeout:    cfg.Server.RequestTimeout(),
		trustProxy: cfg.Server.TrustProxy,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRepository opens the configured backend and, when a redis URL is set,
// wraps it with the task list cache.
func newRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tasks.Repository, func(), error) {
	var (
		repo    tasks.Repository
		closers []func() error
	)

	switch cfg.Storage.Driver {
	case "memory":
		repo = tasks.NewInMemoryRepo()
	case "sqlite":
		dsn, err := tasks.SQLiteFileDSN(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite dsn: %w", err)
		}
		sq, err := tasks.NewSQLiteRepo(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := sq.ApplyMigrations(ctx); err != nil {
			_ = sq.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		repo = sq
		closers = append(closers, sq.Close)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	logger.Info("storage_ready", slog.String("driver", cfg.Storage.Driver))

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis_unreachable", slog.String("error", err.Error()))
		}
		repo = tasks.NewCachedRepo(repo, rdb, cfg.Redis.TTL(), logger)
		closers = append(closers, rdb.Close)
		logger.Info("cache_enabled", slog.String("ttl", cfg.Redis.TTL().String()))
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}
	return repo, closeAll, nil
}

type routerDeps struct {
	svc        *tasks.Service
	pages      fs.FS
	logger     *slog.Logger
	cors       []string
	limiter    *middleware.ClientLimiter
	timeout    time.Duration
	trustProxy bool
}

// newRouter wires the health endpoint, pages, API routes, and middleware stack
func newRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)
	// Forwarded headers are client-controlled unless a proxy rewrites them;
	// the rate limiter keys on the resulting address.
	if d.trustProxy {
		r.Use(chimw.RealIP)
	}

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(d.logger))
	r.Use(middleware.RateLimitMiddleware(d.limiter))

	// Timeouts: cancel handlers that exceed this duration
	if d.timeout > 0 {
		r.Use(chimw.Timeout(d.timeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cors,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// ---- Routes ----

	// health
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	tasks.RegisterRoutes(r, d.svc, d.logger)
	view.RegisterRoutes(r, d.pages)

	return r
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
