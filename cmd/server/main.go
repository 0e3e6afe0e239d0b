// Package main is the entrypoint for the Scribe transcription queue server.
package main

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

	"github.com/kiranshivaraju/scribe/internal/api"
	"github.com/kiranshivaraju/scribe/internal/api/handler"
	mw "github.com/kiranshivaraju/scribe/internal/api/middleware"
	"github.com/kiranshivaraju/scribe/internal/asr"
	"github.com/kiranshivaraju/scribe/internal/cache"
	"github.com/kiranshivaraju/scribe/internal/config"
	"github.com/kiranshivaraju/scribe/internal/queue"
	"github.com/kiranshivaraju/scribe/internal/store"
	"github.com/kiranshivaraju/scribe/internal/transcribe"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName     = "scribe"
	shutdownTimeout = 30 * time.Second
	archiveTimeout  = 5 * time.Second
)

var logLevel = new(slog.LevelVar)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.IsProduction() {
		logLevel.Set(slog.LevelDebug)
	}
	slog.Info("config loaded", "asr_provider", cfg.ASR.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Metrics
	meterProvider := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(meterProvider)
	defer meterProvider.Shutdown(context.Background())

	// 3. Wire queue, storage and HTTP
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	return a.serve(ctx)
}

// app holds the wired components of one server process.
type app struct {
	cfg     *config.Config
	queue   *queue.Queue
	router  http.Handler
	closers []func()
}

// newApp connects the optional database and cache, builds the queue with
// its observers and handlers, and assembles the router. Nothing is started.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	health := map[string]handler.Pinger{"database": nil, "cache": nil}
	observers := []queue.Observer{queue.NewMetrics()}

	// Database: API keys and job archive
	var st store.Store
	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		slog.Info("database connected")

		if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")

		pgStore := store.NewPostgresStore(pool)
		st = pgStore
		health["database"] = pgStore
		observers = append(observers, store.NewArchiver(pgStore, archiveTimeout))
	} else {
		slog.Warn("DATABASE_URL not set, running without authentication or job archive")
	}

	// Redis: status mirror and shared rate limit counters
	var rateLimit *mw.RateLimit
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = redisCache.Close() })

		if err := redisCache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")

		health["cache"] = redisCache
		observers = append(observers, cache.NewStatusMirror(redisCache, cfg.Redis.StatusTTL))
		rateLimit = mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute)
	} else {
		rateLimit = mw.NewLocalRateLimit(cfg.RateLimit.RequestsPerMinute)
	}

	// Transcription backend and upload staging
	provider, err := asr.NewProvider(cfg.ASR)
	if err != nil {
		return nil, fmt.Errorf("create ASR provider: %w", err)
	}
	slog.Info("ASR provider initialized", "provider", provider.Name())

	uploads, err := transcribe.NewUploads(cfg.Upload)
	if err != nil {
		return nil, fmt.Errorf("prepare uploads: %w", err)
	}
	observers = append(observers, transcribe.CleanupObserver(uploads))

	// Queue
	a.queue = queue.New(queue.Config{
		MaxJobs:    cfg.Queue.MaxJobs,
		JobTTL:     cfg.Queue.JobTTL,
		JobTimeout: cfg.Queue.JobTimeout,
	}, queue.WithLogger(slog.Default()), queue.WithObservers(observers...))
	transcribe.Register(a.queue, provider, uploads)

	if err := queue.RegisterDepthGauge(otel.Meter(serviceName), a.queue); err != nil {
		return nil, fmt.Errorf("register queue gauge: %w", err)
	}

	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler: handler.NewHealthHandler(a.queue, health),

		SubmitJobHandler: handler.NewSubmitJobHandler(a.queue, uploads),
		JobStatusHandler: handler.NewJobStatusHandler(a.queue),
		JobResultHandler: handler.NewJobResultHandler(a.queue),
		CancelJobHandler: handler.NewCancelJobHandler(a.queue),
		QueueInfoHandler: handler.NewQueueInfoHandler(a.queue),
	}
	if st != nil {
		deps.Auth = mw.NewAuth(st)
		deps.CreateKeyHandler = handler.NewCreateKeyHandler(st)
		deps.ListKeysHandler = handler.NewListKeysHandler(st)
		deps.RevokeKeyHandler = handler.NewRevokeKeyHandler(st)
		deps.ListArchiveHandler = handler.NewListArchiveHandler(st)
		deps.GetArchivedJob = handler.NewGetArchivedJobHandler(st)
	}
	a.router = otelhttp.NewHandler(api.NewRouter(deps), serviceName)

	ok = true
	return a, nil
}

// serve runs the queue worker and the HTTP server until ctx is cancelled
// or the server fails, then drains both. Submissions are sealed before the
// HTTP drain so no request is accepted for a worker that is about to stop.
func (a *app) serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	a.queue.Start(context.WithoutCancel(ctx))

	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")
		a.queue.Seal()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		serverErr := srv.Shutdown(shutdownCtx)

		queueCtx, cancelQueue := context.WithTimeout(context.Background(), a.cfg.Queue.ShutdownTimeout)
		defer cancelQueue()
		if err := a.queue.Close(queueCtx); err != nil {
			return fmt.Errorf("queue shutdown: %w", err)
		}
		if serverErr != nil {
			return fmt.Errorf("server shutdown: %w", serverErr)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

// close releases connections in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
