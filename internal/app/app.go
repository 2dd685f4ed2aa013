package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/acaraku/acaraku/internal/config"
	"github.com/acaraku/acaraku/internal/coupon"
	"github.com/acaraku/acaraku/internal/identity"
	"github.com/acaraku/acaraku/internal/postgres"
	redisx "github.com/acaraku/acaraku/internal/redis"
	postgresrepo "github.com/acaraku/acaraku/internal/repository/postgres"
	redisrepo "github.com/acaraku/acaraku/internal/repository/redis"
	"github.com/acaraku/acaraku/internal/service"
	"github.com/acaraku/acaraku/internal/service/ticketing"
	httpgin "github.com/acaraku/acaraku/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server

	ticketing *ticketing.Service
	identity  *identity.Service
	pubsub    *redisx.PubSub
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisx.NewPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "acaraku:v1:rl", 10, 1*time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)
	denylist := redisrepo.NewTokenDenylist(rdb)

	// Initialize services
	ids := identity.New(store, denylist, identity.Config{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
	})

	services := service.NewServices(store, coupon.StaticResolver{Amount: 50_000}, cache, pubsub, limiter, service.Config{
		Ticketing: ticketing.Config{PaymentWindow: cfg.Ticketing.PaymentWindow},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, ids, idempotencyStore, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
		ticketing: services.Ticketing,
		identity:  ids,
		pubsub:    pubsub,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Expire overdue transactions in the background. Expiry is also applied
	// lazily on access, the sweeper only bounds how long seats stay held.
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Ticketing.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				n, err := a.ticketing.ExpireOverdue(gCtx)
				if err != nil {
					a.logger.Error("expire sweep failed", "error", err)
					continue
				}
				if n > 0 {
					a.logger.Info("expired overdue transactions", "count", n)
				}
			}
		}
	})

	// Consume reversal events and give spent points back to the buyer.
	g.Go(func() error {
		err := a.pubsub.SubscribeReversals(gCtx, func(ctx context.Context, rev redisx.Reversal) {
			if rev.PointsUsed <= 0 {
				return
			}
			if err := a.identity.RestorePoints(ctx, rev.UserID, rev.PointsUsed); err != nil {
				a.logger.Error("failed to restore points",
					"transaction_id", rev.TransactionID,
					"user_id", rev.UserID,
					"error", err,
				)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
