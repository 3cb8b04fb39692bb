package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/redis/go-redis/v9"

	"github.com/nyashahama/project-delivery-backend/internal/api"
	"github.com/nyashahama/project-delivery-backend/internal/config"
	"github.com/nyashahama/project-delivery-backend/internal/db"
	"github.com/nyashahama/project-delivery-backend/internal/delivery"
	"github.com/nyashahama/project-delivery-backend/internal/email"
	"github.com/nyashahama/project-delivery-backend/internal/storage"
	"github.com/nyashahama/project-delivery-backend/internal/store"
	stripeinternal "github.com/nyashahama/project-delivery-backend/internal/stripe"
	"github.com/nyashahama/project-delivery-backend/internal/worker"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	// JSON in production, pretty text in development.
	var logger *slog.Logger
	if os.Getenv("ENV") == "production" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// ── Config ────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Info("config loaded", "env", cfg.Env, "port", cfg.Port, "email_provider", cfg.Email.Provider)

	// ── Database ──────────────────────────────────────────────────────────────
	pool, queries, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	// ── Store (atomic multi-step writes) ──────────────────────────────────────
	st := store.New(pool, queries)

	// ── Stripe ────────────────────────────────────────────────────────────────
	stripeClient := stripeinternal.NewClient(cfg.StripeSecretKey)

	// ── Email ─────────────────────────────────────────────────────────────────
	// The service starts without a working provider so the operator can read
	// the setup instructions; readiness blocks every send until then.
	transport, err := newTransport(cfg.Email)
	if err != nil {
		logger.Warn("email: transport unavailable", "provider", cfg.Email.Provider, "error", err)
		transport = unavailableTransport{provider: cfg.Email.Provider, err: err}
	}
	composer := email.NewComposer(transport, cfg.Email.ComposerConfig(), logger)
	readiness := email.EnvChecker{}
	if r := readiness.Check(); !r.Configured {
		logger.Warn("email: not configured", "issues", r.Issues)
	}

	// ── Delivery status board ─────────────────────────────────────────────────
	// Redis shares status across instances; a single instance keeps it in
	// memory.
	var board delivery.StatusBoard
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: parse url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis: ping: %w", err)
		}
		board = delivery.NewRedisBoard(rdb)
		logger.Info("delivery: status board on redis")
	} else {
		board = delivery.NewMemoryBoard(nil)
		logger.Info("delivery: status board in memory")
	}

	// ── Object storage links ──────────────────────────────────────────────────
	var links delivery.Linker
	if cfg.Storage.Enabled() {
		linker, err := storage.NewMinioLinker(
			cfg.Storage.Endpoint,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.UseSSL,
			cfg.Storage.Region,
			cfg.Storage.LinkExpiry,
		)
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		links = linker
		logger.Info("storage: presigned links enabled", "endpoint", cfg.Storage.Endpoint, "expiry", cfg.Storage.LinkExpiry)
	}

	// ── Orchestrator ──────────────────────────────────────────────────────────
	orch := delivery.NewOrchestrator(delivery.Deps{
		Catalog:   delivery.NewCatalog(queries),
		Mailer:    composer,
		Readiness: readiness,
		Board:     board,
		Links:     links,
		Logger:    logger,
	})

	// ── Worker ────────────────────────────────────────────────────────────────
	runner := worker.NewRunner(worker.NewJob(orch, logger), worker.RunnerConfig{
		QueueSize:    cfg.BatchQueueSize,
		BatchTimeout: cfg.BatchTimeout,
	}, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.NewServer(api.Deps{
		Queries:   queries,
		Store:     st,
		Stripe:    stripeClient,
		Mailer:    composer,
		Delivery:  orch,
		Batches:   runner, // *Runner satisfies worker.Enqueuer
		Readiness: readiness,
	}, api.Config{
		StripeWebhookSecret: cfg.StripeWebhookSecret,
		StripeCurrency:      cfg.Currency,
		AllowedOrigin:       cfg.AllowedOrigin,
		Env:                 cfg.Env,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // a single delivery waits on the provider
		IdleTimeout:  120 * time.Second,
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	// Root context cancelled by OS signal. Worker and HTTP server both respect it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The runner blocks until ctx is done; a running batch skips its
	// remaining orders.
	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		runner.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	select {
	case <-runnerDone:
	case <-shutdownCtx.Done():
		logger.Warn("worker did not stop before shutdown deadline")
	}

	logger.Info("shutdown complete")
	return nil
}

// openDB opens the connection pool and verifies it is reachable.
func openDB(dsn string) (*sql.DB, *db.Queries, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}

	// Tune the connection pool.
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(5 * time.Minute)
	pool.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	return pool, db.New(pool), nil
}

// newTransport builds the provider adapter selected by EMAIL_PROVIDER.
func newTransport(s email.Settings) (email.Transport, error) {
	switch s.Provider {
	case email.ProviderPostmark:
		return email.NewPostmarkTransport(s.PostmarkServerToken, s.PostmarkAccountToken, s.SenderEmail, s.SenderName)
	case email.ProviderResend:
		return email.NewResendTransport(s.ResendAPIKey, s.SenderEmail, s.SenderName,
			email.DefaultResendTemplates(s.ComposerConfig()))
	case email.ProviderDev:
		return email.NewDevTransport(s.DevDir), nil
	}
	return nil, fmt.Errorf("unknown email provider %q", s.Provider)
}

// unavailableTransport fails every send with the reason the real transport
// could not be built.
type unavailableTransport struct {
	provider string
	err      error
}

func (t unavailableTransport) Send(context.Context, email.Message) error {
	return &email.TransportError{Provider: t.provider, Message: t.err.Error(), Err: t.err}
}
