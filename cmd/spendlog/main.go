package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/spendlog/internal/config"
	"github.com/boddenberg/spendlog/internal/handler"
	"github.com/boddenberg/spendlog/internal/infra/amqp"
	"github.com/boddenberg/spendlog/internal/infra/cache"
	"github.com/boddenberg/spendlog/internal/infra/files"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/infra/resilience"
	"github.com/boddenberg/spendlog/internal/infra/sqlite"
	"github.com/boddenberg/spendlog/internal/infra/supabase"
	"github.com/boddenberg/spendlog/internal/port"
	"github.com/boddenberg/spendlog/internal/service"

	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("database_path", cfg.DatabasePath),
		zap.String("upload_dir", cfg.UploadDir),
		zap.Strings("cors_origins", cfg.CORSOrigins),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("token_cache_ttl", cfg.TokenCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Bool("amqp", cfg.AMQPURL != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "spendlog-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	store, err := sqlite.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}
	defer store.Close()

	disk, err := files.NewDisk(cfg.UploadDir, logger)
	if err != nil {
		logger.Fatal("failed to prepare upload directory", zap.String("dir", cfg.UploadDir), zap.Error(err))
	}

	// --- Identity provider ---
	var (
		verifier port.TokenVerifier
		identity port.IdentityAdmin
	)
	if cfg.SupabaseURL != "" {
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		cb := resilience.NewCircuitBreaker("supabase", logger)
		sb := supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			cb,
			resilienceCfg,
			logger,
		)
		verifier = sb
		if cfg.SupabaseServiceKey != "" {
			identity = sb
		} else {
			logger.Warn("SUPABASE_SERVICE_ROLE_KEY not set, deleted users keep their auth account")
		}
	}
	if cfg.SupabaseJWTSecret != "" {
		logger.Info("verifying tokens locally with the Supabase JWT secret")
		verifier = supabase.NewJWTVerifier(cfg.SupabaseJWTSecret)
	}

	// --- Services ---
	svc := handler.Services{
		Ledger: service.NewLedgerService(store, metrics, logger),
		Files:  service.NewFileService(disk, cfg.MaxConcurrency, metrics, logger),
		Store:  store,
	}

	var events port.EventPublisher
	if cfg.AMQPURL != "" {
		publisher, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("AMQP unavailable, identity deletion runs inline", zap.Error(err))
		} else {
			defer publisher.Close()
			events = publisher
		}
	}
	svc.Accounts = service.NewAccountService(store, identity, events, metrics, logger)

	if verifier != nil {
		tokens := cache.New[service.CachedToken](cfg.TokenCacheTTL)
		defer tokens.Close()
		svc.Auth = service.NewAuthService(verifier, tokens, metrics, logger)

		if cfg.RedisURL != "" {
			rdb, err := cache.NewRedisClient(context.Background(), cfg.RedisURL)
			if err != nil {
				logger.Error("redis unavailable, using the in-process token cache", zap.Error(err))
			} else {
				defer rdb.Close()
				svc.Auth.WithRemoteCache(cache.NewRedis[service.CachedToken](rdb, "spendlog:"), cfg.TokenCacheTTL)
			}
		}
	} else {
		logger.Warn("auth: Supabase not configured, authenticated routes unavailable")
	}

	// --- Router ---
	router := handler.NewRouter(svc, handler.Config{
		Version:        version,
		CORSOrigins:    cfg.CORSOrigins,
		UploadDir:      cfg.UploadDir,
		WebhookSecret:  cfg.WebhookSecret,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
