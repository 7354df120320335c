package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/s1natex/daily-tasks-GO/internal/clock"
	"github.com/s1natex/daily-tasks-GO/internal/config"
	"github.com/s1natex/daily-tasks-GO/internal/middleware"
	"github.com/s1natex/daily-tasks-GO/internal/tasks"
	"github.com/s1natex/daily-tasks-GO/internal/telemetry"
)

const serviceName = "daily-tasks"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.SlogLevel())
	slog.SetDefault(logger) // for third-party packages that use slog

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTelExporter, serviceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	dsn, err := tasks.SQLiteFileDSN(cfg.DBPath)
	if err != nil {
		return err
	}
	repo, err := tasks.NewSQLiteRepo(dsn)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.ApplyMigrations(ctx); err != nil {
		return err
	}

	if cfg.LegacyImport {
		if _, err := tasks.ImportLegacy(ctx, repo, logger); err != nil {
			logger.Warn("legacy_import_failed", slog.String("error", err.Error()))
		}
	}

	clk := clock.Real{}
	store := tasks.NewStore(ctx, repo, clk,
		tasks.WithLogger(logger),
		tasks.WithLocation(cfg.Location()),
		tasks.WithMetrics(tasks.NewMetrics(prometheus.DefaultRegisterer)),
	)
	monitorDone := startMonitor(ctx, tasks.NewMonitor(store, clk, cfg.RolloverInterval, logger))
	// runs before repo.Close so no rollover write hits a closed database
	defer func() {
		stop()
		<-monitorDone
	}()

	srv := newServer(ctx, cfg.Addr, newRouter(store, cfg, logger))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen",
			slog.String("addr", cfg.Addr),
			slog.String("today", store.Today()),
			slog.String("timezone", cfg.Location().String()),
		)
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
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// startMonitor runs m until ctx is done. The returned channel closes once
// the monitor has returned.
func startMonitor(ctx context.Context, m *tasks.Monitor) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()
	return done
}

// newServer derives every request context from ctx, so long-lived handlers
// such as the event stream end when the process is asked to stop and
// Shutdown does not wait on them.
func newServer(ctx context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

// newRouter wires health, metrics, the task command routes, and the
// middleware stack
func newRouter(store *tasks.Store, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)

	// Logger wraps Recoverer so panics are logged with their 500
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.TracingMiddleware)

	// The presentation layer runs in a browser, possibly from another origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "today": store.Today()})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	// event stream stays outside the request timeout
	tasks.RegisterEvents(r, store)

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(15 * time.Second))
		r.Use(middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
		tasks.RegisterRoutes(r, store)
	})

	return r
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}
