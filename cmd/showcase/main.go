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
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/showcase-gateway/internal/auth"
	"github.com/af-corp/showcase-gateway/internal/catalog"
	"github.com/af-corp/showcase-gateway/internal/config"
	"github.com/af-corp/showcase-gateway/internal/copywriter"
	"github.com/af-corp/showcase-gateway/internal/filter"
	"github.com/af-corp/showcase-gateway/internal/filter/injection"
	"github.com/af-corp/showcase-gateway/internal/filter/policy"
	"github.com/af-corp/showcase-gateway/internal/filter/secrets"
	"github.com/af-corp/showcase-gateway/internal/gateway"
	"github.com/af-corp/showcase-gateway/internal/generation"
	"github.com/af-corp/showcase-gateway/internal/ratelimit"
	"github.com/af-corp/showcase-gateway/internal/records"
	"github.com/af-corp/showcase-gateway/internal/router"
	"github.com/af-corp/showcase-gateway/internal/safety"
	"github.com/af-corp/showcase-gateway/internal/screenshot"
	"github.com/af-corp/showcase-gateway/internal/showcase"
	"github.com/af-corp/showcase-gateway/internal/social"
	"github.com/af-corp/showcase-gateway/internal/storage"
	"github.com/af-corp/showcase-gateway/internal/telemetry"
	"github.com/af-corp/showcase-gateway/internal/token"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	envFile := flag.String("env", ".env", "dotenv file loaded before configuration, if present")
	flag.Parse()

	var level slog.LevelVar
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load env file", "path", *envFile, "error", err)
	}

	// Load configuration
	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}

	cfg := loader.Config()
	setLevel(&level, cfg.Telemetry.LogLevel)
	loader.OnReload(func() { setLevel(&level, loader.Config().Telemetry.LogLevel) })

	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	// Connect to PostgreSQL
	var dbPool *pgxpool.Pool
	if cfg.Database.Enabled {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("database not reachable (client keys and postgres records will fail)", "error", err)
		} else {
			logger.Info("database connected")
		}
		dbPool = pool
	}

	// Connect to Redis
	var rdb *redis.Client
	if len(cfg.Redis.Addresses) > 0 && cfg.Redis.Addresses[0] != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addresses[0],
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not reachable (caches, rate limits and quotas disabled)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	// Providers
	tokens := token.NewStore(token.NewOAuthFetcher(nil), cfg.Generation.TokenBuffer)
	tokens.OnRefresh(metrics.RecordTokenRefresh)

	var registry atomic.Pointer[router.Registry]
	registry.Store(router.BuildFromConfig(loader.Providers(), tokens))
	loader.OnReload(func() {
		old := registry.Swap(router.BuildFromConfig(loader.Providers(), tokens))
		if old != nil {
			old.CloseIdleConnections()
		}
		logger.Info("provider registry reloaded")
	})

	cb := cfg.Routing.CircuitBreaker
	health := router.NewHealthTracker(cb.FailureThreshold, cb.Cooldown)
	health.OnStateChange(func(provider string, state router.CircuitState) {
		logger.Info("provider circuit changed", "provider", provider, "state", state.String())
		metrics.SetCircuitState(provider, int(state))
	})

	validator := safety.NewValidator(func() config.SafetyConfig { return loader.Config().Safety })
	validator.OnReject(func(r safety.Rejection) {
		metrics.RecordSafetyRejection(r.Category)
		logger.Debug("prompt rejected", "rejection", r.String())
	})

	generationCfg := func() config.GenerationConfig { return loader.Config().Generation }
	images := generation.NewService(generation.Deps{
		Registry:  registry.Load,
		Routes:    loader.Routes,
		Config:    generationCfg,
		Health:    health,
		Validator: validator,
		Metrics:   metrics,
	})

	// Catalog and showcase records
	products := catalog.NewCachedCatalog(catalog.NewClient(cfg.Catalog, nil), rdb, cfg.Catalog.CacheTTL)

	text := copywriter.NewService(copywriter.Deps{
		Registry: registry.Load,
		Routes:   loader.Routes,
		Config:   generationCfg,
		Health:   health,
		Catalog:  products,
		Metrics:  metrics,
	})

	store, closeStore, err := records.Open(ctx, cfg, dbPool)
	if err != nil {
		logger.Error("failed to open record store", "backend", cfg.Records.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	uploader, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Warn("object storage disabled", "backend", cfg.Storage.Backend, "error", err)
		uploader = nil
	}

	posts := showcase.NewService(showcase.Deps{
		Catalog:  products,
		Uploader: uploader,
		Renderer: screenshot.NewClient(cfg.Screenshot, nil),
		Records:  store,
		ShopName: cfg.Catalog.ShopName,
		UserName: cfg.Records.UserName,
	})

	// Content filters
	evaluator := policy.NewEvaluator(func() config.PolicyFilterConfig { return loader.Config().Filter.Policy })
	loadPolicies(logger, evaluator, cfg.Filter.Policy.Enabled)
	loader.OnReload(func() { loadPolicies(logger, evaluator, loader.Config().Filter.Policy.Enabled) })

	filters := filter.NewChain(
		secrets.NewScanner(func() config.SecretsFilterConfig { return loader.Config().Filter.Secrets }),
		injection.NewScanner(func() config.InjectionFilterConfig { return loader.Config().Filter.Injection }),
		evaluator,
	)

	deps := gateway.Deps{
		Images:   images,
		Text:     text,
		Catalog:  products,
		Cache:    products,
		Showcase: posts,
		Social:   social.NewInstagram(cfg.Instagram, nil),
		OAuth:    social.NewAuthorizer(cfg.Instagram.OAuth, &http.Client{Timeout: cfg.Instagram.Timeout}),
		Filters:  filters,
		Config:   loader.Config,
		Metrics:  metrics,
		Fetch:    gateway.NewFetchClient(30 * time.Second),
	}

	var guards gateway.Guards
	if cfg.Auth.Enabled {
		if dbPool == nil {
			logger.Error("auth.enabled requires database.enabled")
			os.Exit(1)
		}
		quota := ratelimit.NewQuotaTracker(rdb)
		deps.Quota = quota
		guards.Common = append(guards.Common,
			auth.Middleware(auth.NewCachedKeyStore(dbPool, rdb), cfg.Auth.KeyPrefix),
			ratelimit.Middleware(ratelimit.NewLimiter(rdb), metrics),
		)
		guards.Images = append(guards.Images, ratelimit.QuotaMiddleware(quota, metrics))
	}
	handler := gateway.NewHandler(deps)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(gateway.RequestID)
	r.Use(telemetry.TraceMiddleware)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}
	handler.Routes(r, guards)
	if cfg.Telemetry.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("showcase starting", "addr", addr, "version", version, "auth", cfg.Auth.Enabled)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return
	}
	logger.Info("showcase stopped")
}

func setLevel(level *slog.LevelVar, name string) {
	if name == "" {
		return
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		slog.Warn("invalid log level, keeping current", "log_level", name, "error", err)
	}
}

func loadPolicies(logger *slog.Logger, e *policy.Evaluator, enabled bool) {
	if !enabled {
		return
	}
	if err := e.Load(); err != nil {
		logger.Warn("failed to load policies (policy filter will block)", "error", err)
	}
}
