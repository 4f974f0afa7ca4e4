// Command spendlog-worker consumes user.deleted events and removes the
// matching identity provider accounts.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/boddenberg/spendlog/internal/config"
	"github.com/boddenberg/spendlog/internal/infra/amqp"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/infra/resilience"
	"github.com/boddenberg/spendlog/internal/infra/supabase"
	"github.com/boddenberg/spendlog/internal/service"

	"go.uber.org/zap"
)

func main() {
	_ = config.LoadDotEnv()
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.AMQPURL == "" {
		logger.Fatal("AMQP_URL is required")
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		logger.Fatal("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
	}

	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "spendlog-worker")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	metrics := observability.NewMetrics()

	sb := supabase.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		resilience.NewCircuitBreaker("supabase", logger),
		resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
		logger,
	)
	accounts := service.NewAccountService(nil, sb, nil, metrics, logger)

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Fatal("failed to connect to AMQP", zap.Error(err))
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started", zap.String("queue", cfg.AMQPQueue))
	if err := consumer.Consume(ctx, accounts.FinishDeletion); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumption stopped", zap.Error(err))
	}
	logger.Info("worker stopped")
}
