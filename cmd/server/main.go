package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sheetcheck/internal/cache"
	"github.com/JonMunkholm/sheetcheck/internal/config"
	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/core/validators"
	"github.com/JonMunkholm/sheetcheck/internal/logging"
	"github.com/JonMunkholm/sheetcheck/internal/store"
	"github.com/JonMunkholm/sheetcheck/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration", "config", cfg.String())

	schema, err := cfg.LoadAttributesSchema()
	if err != nil {
		slog.Error("failed to load attributes schema", "error", err)
		os.Exit(1)
	}
	reg, err := validators.NewRegistry(validators.Options{AttributesSchema: string(schema)})
	if err != nil {
		slog.Error("failed to build validators", "error", err)
		os.Exit(1)
	}

	names := make([]string, 0, reg.Len())
	for _, v := range reg.All() {
		names = append(names, v.Name())
	}
	if err := cfg.Validate(names...); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	rules, err := cfg.LoadRules()
	if err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	sessions, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	reports, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to report cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"validators", reg.Len(),
		"rules", len(rules),
		"max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	server := web.NewServer(cfg, web.Deps{
		Engine: core.NewEngine(reg, core.WithLogger(logger)),
		Store:  sessions,
		Cache:  reports,
		Rules:  rules,
	})

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// openStore uses PostgreSQL when a database URL is configured and memory
// otherwise.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.URL == "" {
		slog.Info("no DATABASE_URL set, keeping sessions in memory")
		return store.NewMemory(), nil
	}
	pg, err := store.Connect(ctx, cfg.Store.URL, store.PoolOptions{
		MaxConns:        cfg.Store.MaxConns,
		MinConns:        cfg.Store.MinConns,
		MaxConnLifetime: cfg.Store.MaxConnLifetime,
		MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("connected to database", "max_conns", cfg.Store.MaxConns)
	return pg, nil
}

// openCache uses Redis when an address is configured and no cache otherwise.
func openCache(ctx context.Context, cfg *config.Config) (cache.Reports, func(), error) {
	if cfg.Cache.RedisAddr == "" {
		return cache.Noop{}, func() {}, nil
	}
	r, err := cache.NewRedis(ctx, cache.RedisOptions{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
		TTL:      cfg.Cache.TTL,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.Info("report cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
	return r, func() {
		if err := r.Close(); err != nil {
			slog.Warn("closing report cache", "error", err)
		}
	}, nil
}
