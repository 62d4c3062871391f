// Command server runs the GridGuard LEOP service: a TCP endpoint that
// answers forecast commands with 24-hour energy dispatch plans, plus an
// admin HTTP listener for health, metrics, and live status.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridguard/leop-server/internal/adapter/admin"
	"github.com/gridguard/leop-server/internal/adapter/fetchcache"
	"github.com/gridguard/leop-server/internal/adapter/fetcher"
	"github.com/gridguard/leop-server/internal/adapter/observability"
	"github.com/gridguard/leop-server/internal/adapter/tcpserver"
	"github.com/gridguard/leop-server/internal/config"
	"github.com/gridguard/leop-server/internal/domain"
	"github.com/gridguard/leop-server/internal/pipeline"
	"github.com/gridguard/leop-server/internal/planner"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("op=main.LoadConfig: %w", err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracing, err := observability.SetupTracing(cfg)
	if err != nil {
		return fmt.Errorf("op=main.SetupTracing: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional Redis fetch-body cache; absent REDIS_ADDR runs uncached.
	var cache domain.BodyCache
	if cfg.RedisAddr != "" {
		rc := fetchcache.New(cfg.RedisAddr)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("op=main.RedisPing addr=%s: %w", cfg.RedisAddr, err)
		}
		defer func() { _ = rc.Close() }()
		cache = rc
		slog.Info("fetch cache enabled",
			slog.String("addr", cfg.RedisAddr),
			slog.Duration("ttl", cfg.FetchCacheTTL))
	}

	engine := planner.New(cfg.Solar(), cfg.Battery(), cfg.Consumption(), cfg.PriceThresholdSEK)

	pipe := pipeline.New(
		fetcher.New(cfg.HTTPTimeout, cfg.HTTPMaxRetries),
		cache,
		engine,
		pipeline.Options{
			QueueCapacity:  cfg.QueueCapacity,
			FetchWorkers:   cfg.FetchWorkers,
			ParseWorkers:   cfg.ParseWorkers,
			ComputeWorkers: cfg.ComputeWorkers,
			CacheTTL:       cfg.FetchCacheTTL,
		},
	)
	pipe.Start(ctx)

	pool := tcpserver.NewWorkerPool(tcpserver.PoolOptions{
		Workers:             cfg.MaxWorkers,
		MaxClientsPerWorker: cfg.MaxClientsPerWorker,
		BufferSize:          cfg.ClientBufferSize,
		IdleTimeout:         cfg.ClientIdleTimeout,
		PollInterval:        cfg.PollTimeout,
	}, pipe)
	pool.Start()

	srv, err := tcpserver.NewServer(fmt.Sprintf(":%d", cfg.Port), pool)
	if err != nil {
		pool.Shutdown()
		pipe.Shutdown()
		return err
	}

	adminSrv := admin.New(fmt.Sprintf(":%d", cfg.AdminPort), pool, pipe)
	adminErr := make(chan error, 1)
	go func() { adminErr <- adminSrv.Run(ctx) }()

	slog.Info("server started",
		slog.Int("port", cfg.Port),
		slog.Int("admin_port", cfg.AdminPort),
		slog.Int("workers", cfg.MaxWorkers),
		slog.Int("clients_per_worker", cfg.MaxClientsPerWorker))

	serveErr := srv.Serve(ctx)

	// Teardown in reverse order: stop accepting, drop clients, drain the
	// pipeline, then flush telemetry.
	slog.Info("shutting down")
	pool.Shutdown()
	pipe.Shutdown()

	if err := <-adminErr; err != nil {
		slog.Warn("admin server shutdown", slog.Any("error", err))
	}
	if shutdownTracing != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracing shutdown", slog.Any("error", err))
		}
	}

	if serveErr != nil {
		return serveErr
	}
	slog.Info("shutdown complete")
	return nil
}
