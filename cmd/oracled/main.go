package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/oracle-consensus/internal/cache"
	"github.com/rickgao/oracle-consensus/internal/config"
	"github.com/rickgao/oracle-consensus/internal/consensus"
	"github.com/rickgao/oracle-consensus/internal/database"
	"github.com/rickgao/oracle-consensus/internal/history"
	"github.com/rickgao/oracle-consensus/internal/ingest"
	"github.com/rickgao/oracle-consensus/internal/metrics"
	"github.com/rickgao/oracle-consensus/internal/provider"
	"github.com/rickgao/oracle-consensus/internal/server"
	"github.com/rickgao/oracle-consensus/internal/store"
	"github.com/rickgao/oracle-consensus/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults only when empty)")
	flag.Parse()

	version.Resolve()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting oracled",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"policy", cfg.Ingest.Policy,
		"feeds", len(cfg.Feeds),
	)

	policy, err := consensus.New(cfg.Ingest.Policy)
	if err != nil {
		logger.Error("invalid consensus policy", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	var metricsServer *http.Server
	if cfg.Metrics.IsEnabled() {
		metrics.Init()
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path)
		go func() {
			logger.Info("starting metrics server", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	// History database
	logger.Info("connecting to database", "dsn", database.Redact(database.BuildConnString(cfg.Database)))
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	hist := history.NewPostgres(pool, logger)
	if err := hist.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// Latest-price cache
	latest, closeCache, err := openCache(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Error("failed to connect to cache", "driver", cfg.Cache.Driver, "error", err)
		os.Exit(1)
	}
	defer closeCache()

	st := store.New(hist, latest, cfg.Cache.TTL, logger)

	// Providers
	registry, err := provider.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to build providers", "error", err)
		os.Exit(1)
	}
	if err := registry.Start(ctx); err != nil {
		logger.Error("failed to start providers", "error", err)
		os.Exit(1)
	}

	feeds, err := ingest.BuildFeeds(cfg.Feeds, registry)
	if err != nil {
		logger.Error("failed to bind feeds", "error", err)
		os.Exit(1)
	}

	loop := ingest.New(ingest.ConfigFrom(cfg.Ingest), feeds, policy, st, logger)
	if err := loop.Start(ctx); err != nil {
		logger.Error("failed to start ingest loop", "error", err)
		os.Exit(1)
	}

	// Query API
	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, st, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start http server", "error", err)
		os.Exit(1)
	}

	logger.Info("oracled running",
		"addr", srv.Addr(),
		"providers", registry.Names(),
	)

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", "error", err)
	}
	if err := loop.Stop(shutdownCtx); err != nil {
		logger.Warn("ingest loop stop timed out", "error", err)
	}
	if err := registry.Stop(shutdownCtx); err != nil {
		logger.Warn("provider shutdown", "error", err)
	}
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}

	logger.Info("oracled stopped", "cycles", loop.Stats().Cycles)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openCache connects the configured cache driver.
func openCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (store.Cache, func(), error) {
	switch cfg.Driver {
	case config.CacheDriverMemory:
		mem := cache.NewMemory(cfg.TTL)
		return mem, func() { mem.Close() }, nil

	case config.CacheDriverRedis:
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := cache.Dial(dialCtx, cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		rc := cache.NewRedis(client, logger)
		logger.Info("cache connected", "driver", cfg.Driver)
		return rc, func() { rc.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
