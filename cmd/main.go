package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pacer/internal/adapters/http/api"
	"github.com/okian/pacer/internal/adapters/http/swagger"
	"github.com/okian/pacer/internal/adapters/repository"
	app "github.com/okian/pacer/internal/app"
	"github.com/okian/pacer/internal/config"
	"github.com/okian/pacer/pkg/logger"
	"github.com/okian/pacer/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		// Use stderr since the logger may not be available yet
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithMaxTopPerformersLimit(cfg.MaxTopPerformersLimit),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startMetricsUpdater(ctx, svc, time.Duration(cfg.MetricsIntervalMS)*time.Millisecond)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutMS)*time.Millisecond)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newStore opens Postgres when database_url is set, otherwise an in-memory store.
func newStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Get().Info(ctx, "database_url not set; using in-memory store")
		return repository.NewMemoryStore(), nil
	}
	db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL,
		time.Duration(cfg.DBConnectTimeoutMS)*time.Millisecond, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store := repository.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Get().Info(ctx, "connected to postgres")
	return store, nil
}

// newHandler builds the router with the business API and the API docs.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	server := api.NewServer(svc, svc,
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithDefaultTopPerformersLimit(cfg.DefaultTopPerformersLimit),
		api.WithLogger(logger.Named("http")),
	)
	r := server.Router(ctx)
	swagger.Register(ctx, r)
	return r
}

// startMetricsUpdater refreshes system and service gauges until ctx is done.
func startMetricsUpdater(ctx context.Context, svc *app.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
			// GetStats refreshes the tracked record gauges.
			_ = svc.GetStats()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
