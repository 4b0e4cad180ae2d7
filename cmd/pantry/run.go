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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/dnscache"

	"github.com/telliott/pantry/internal/app"
	"github.com/telliott/pantry/internal/breaker"
	"github.com/telliott/pantry/internal/cache"
	"github.com/telliott/pantry/internal/config"
	"github.com/telliott/pantry/internal/server"
	"github.com/telliott/pantry/internal/source"
	"github.com/telliott/pantry/internal/source/spoonacular"
	"github.com/telliott/pantry/internal/storage/sqlite"
	"github.com/telliott/pantry/internal/telemetry"
	"github.com/telliott/pantry/internal/worker"
)

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting pantry", "version", version, "addr", cfg.Server.Addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the search-record store
	store, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			if err := shutdown(flushCtx); err != nil {
				slog.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	// Metrics
	var (
		metrics  *telemetry.Metrics
		registry *prometheus.Registry
	)
	if cfg.Telemetry.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = telemetry.NewMetrics(registry)
	}

	// Recipe cache
	recipeCache, closeCache, err := buildCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	// Upstream client with cached DNS
	resolver := &dnscache.Resolver{}
	go refreshDNS(ctx, resolver)

	httpClient := &http.Client{
		Transport: source.NewTransport(resolver),
		Timeout:   cfg.Spoonacular.Timeout,
	}
	src := spoonacular.New(cfg.Spoonacular.BaseURL, cfg.Spoonacular.APIKey, cfg.Spoonacular.MaxResults, httpClient)

	// Circuit breaker for the upstream
	var brk *breaker.Breaker
	if cfg.Breaker.IsEnabled() {
		brk = breaker.New(breaker.Config{
			ErrorThreshold: cfg.Breaker.ErrorThreshold,
			MinSamples:     cfg.Breaker.MinSamples,
			WindowSeconds:  cfg.Breaker.WindowSeconds,
			OpenTimeout:    cfg.Breaker.OpenTimeout,
		})
	}

	// Async search-record pipeline
	recorder := worker.NewSearchRecorder(store)
	runner := worker.NewRunner(recorder)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- runner.Run(workerCtx)
	}()
	if metrics != nil {
		go reportQueueLength(ctx, metrics, recorder)
	}

	searchSvc := app.NewSearchService(recipeCache, src, app.SearchConfig{
		TTL:          cfg.Cache.TTL,
		FetchTimeout: cfg.Spoonacular.Timeout,
		Breaker:      brk,
		Recorder:     recorder,
		Metrics:      metrics,
	})

	handler := server.New(server.Deps{
		Search:     searchSvc,
		Cache:      recipeCache,
		Store:      store,
		Source:     src,
		ReadyCheck: store.Ping,
		Metrics:    metrics,
		Registry:   registry,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("pantry ready", "addr", cfg.Server.Addr, "cache_backend", cfg.Cache.Backend)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		workerCancel()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Stop the recorder after the server so in-flight requests can still
	// enqueue their records, then wait for the drain.
	workerCancel()
	select {
	case err := <-workerDone:
		if err != nil {
			slog.Warn("worker stopped with error", "error", err)
		}
	case <-shutdownCtx.Done():
		slog.Warn("worker drain timed out")
	}

	slog.Info("pantry stopped")
	return nil
}

// buildCache constructs the configured cache backend. The returned closer is
// never nil.
func buildCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, func(), error) {
	switch cfg.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		c := cache.NewRedis(ctx, client)
		return c, func() {
			if err := c.Close(); err != nil {
				slog.Warn("redis close failed", "error", err)
			}
		}, nil
	default:
		c, err := cache.NewMemory(cfg.MaxSize, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
}

// refreshDNS re-resolves cached DNS entries every 5 minutes, dropping
// entries that are no longer looked up.
func refreshDNS(ctx context.Context, resolver *dnscache.Resolver) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resolver.Refresh(true)
		}
	}
}

// reportQueueLength samples the recorder queue depth into the gauge.
func reportQueueLength(ctx context.Context, m *telemetry.Metrics, rec *worker.SearchRecorder) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RecordQueueLength.Set(float64(rec.QueueLength()))
		}
	}
}
