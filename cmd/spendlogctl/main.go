// Command spendlogctl is the SpendLog terminal client.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	spendcli "github.com/boddenberg/spendlog/internal/cli"
	"github.com/boddenberg/spendlog/internal/config"
	"github.com/boddenberg/spendlog/internal/infra/client"
	"github.com/boddenberg/spendlog/internal/infra/observability"
	"github.com/boddenberg/spendlog/internal/infra/resilience"
	"github.com/boddenberg/spendlog/internal/infra/supabase"
	"github.com/boddenberg/spendlog/internal/session"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	_ = config.LoadDotEnv()
	cfg := config.Load()

	// Client logs stay quiet unless asked for.
	level := cfg.LogLevel
	if os.Getenv("LOG_LEVEL") == "" {
		level = "error"
	}
	logger := observability.NewLogger(level)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	auth := supabase.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		"",
		resilience.NewCircuitBreaker("supabase-auth", logger),
		resilience.Config{MaxRetries: cfg.MaxRetries, InitialBackoff: cfg.InitialBackoff, MaxConcurrency: 1},
		logger,
	)

	path, err := session.DefaultPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "locate config directory:", err)
		return 1
	}
	sess := session.NewManager(auth, session.NewFileStore(path), logger)

	api, err := client.New(cfg.APIURL, sess, client.WithTimeout(cfg.HTTPTimeout), client.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	app := spendcli.New(api, sess, logger)
	app.Version = version
	defer app.Toasts.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.CLI().RunContext(ctx, os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		return 1
	}
	return 0
}
