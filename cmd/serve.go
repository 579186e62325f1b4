package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/auth"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/cache"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/config"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/database"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/events"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/handler"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/notify"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/repository"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/service"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	if migrateOnStart {
		if err := database.Migrate(cfg.Database.URL("pgx5"), database.Up); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to PostgreSQL", "host", cfg.Database.Host, "db", cfg.Database.Name)

	// ── 2. Optional collaborators ────────────────────────────────────────
	eventCache, closeCache, err := newEventCache(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	var publisher events.Publisher = &events.NoopPublisher{}
	if cfg.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.Events.NATSURL)
		if err != nil {
			return err
		}
		publisher = pub
		logger.Info("events enabled", "nats_url", cfg.Events.NATSURL)
	} else {
		logger.Info("events disabled (NATS_URL not set)")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
	}()

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.Mail.Provider == "mailersend" {
		notifier = notify.NewMailerSendNotifier(cfg.Mail.MailerSendAPIKey, cfg.Mail.FromEmail, cfg.Mail.FromName, logger)
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	tokens := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL.Duration)

	eventSvc := service.NewEventService(repository.NewEventRepository(pool), eventCache, publisher, logger)
	subscriptionSvc := service.NewSubscriptionService(repository.NewRosterRepository(pool), eventCache, publisher, logger)
	accountSvc := service.NewAccountService(
		repository.NewCustomerRepository(pool), tokens, notifier,
		cfg.Auth.BcryptCost, cfg.PublicURL, logger,
	)

	var limiter *handler.RateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = handler.NewRateLimiter(ctx, handler.LimiterConfig{
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
			IdleTTL: cfg.RateLimit.IdleTTL.Duration,
		})
	}

	router := handler.NewRouter(handler.RouterDeps{
		Events:        eventSvc,
		Subscriptions: subscriptionSvc,
		Accounts:      accountSvc,
		Tokens:        tokens,
		Limiter:       limiter,
		Logger:        logger,
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newEventCache connects to Redis when an address is configured and falls
// back to no caching otherwise.
func newEventCache(ctx context.Context, cfg config.Cache, logger *slog.Logger) (service.EventCache, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("cache disabled (REDIS_ADDR not set)")
		return cache.NoopCache{}, func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.TTL.Duration)
	return cache.NewRedisCache(rdb, cfg.TTL.Duration), func() { _ = rdb.Close() }, nil
}
