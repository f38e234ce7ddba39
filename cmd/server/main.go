package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-booking/internal/auth"
	"github.com/example/ride-booking/internal/config"
	"github.com/example/ride-booking/internal/dispatch"
	"github.com/example/ride-booking/internal/emergency"
	"github.com/example/ride-booking/internal/events"
	"github.com/example/ride-booking/internal/fare"
	httpapi "github.com/example/ride-booking/internal/http"
	"github.com/example/ride-booking/internal/identity"
	"github.com/example/ride-booking/internal/logging"
	"github.com/example/ride-booking/internal/payment"
	"github.com/example/ride-booking/internal/rating"
	"github.com/example/ride-booking/internal/report"
	"github.com/example/ride-booking/internal/ride"
	"github.com/example/ride-booking/internal/settings"
	"github.com/example/ride-booking/internal/storage"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, "ride-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (storage.Store, error) {
	if cfg.PGDSN == "" {
		logger.Warn("PG_DSN not set, using in-memory store")
		return storage.NewMemoryStore(), nil
	}
	ps, err := storage.NewPostgresStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := ps.Migrate(ctx); err != nil {
			_ = ps.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied")
	}
	return ps, nil
}

func run(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	var (
		fareCache fare.Cache = fare.NewMemoryCache(cfg.FareCacheTTL)
		stats     report.HashReader
		rc        *redis.Client
	)
	if cfg.RedisAddr != "" {
		rc = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rc.Close()
		fareCache = fare.NewRedisCache(rc, cfg.FareCacheTTL)
		stats = rc
	}

	registry := dispatch.NewRegistry(logger)
	sinks := events.Multi{registry}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaRideTopic)
		defer kp.Close()
		sinks = append(sinks, kp)
	}

	var gateway payment.Gateway
	if cfg.StripeAPIKey != "" {
		gateway = payment.NewStripeGateway(cfg.StripeAPIKey)
	}
	payments := payment.NewService(store, gateway, logger)

	estimator := fare.NewEstimator(cfg.Fare, fareCache)
	if cfg.OSRMURL != "" {
		estimator.WithRouter(fare.NewOSRMClient(cfg.OSRMURL), logger)
	}

	ident := &identity.Service{Store: store, Log: logger}
	if cfg.AdminEmail != "" {
		if _, err := ident.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminName); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	api := httpapi.NewServer(httpapi.Deps{
		Rides: &ride.Engine{
			Store:    store,
			Events:   sinks,
			Payments: payments,
			Fares:    estimator,
			Log:      logger,
		},
		Identity:  ident,
		Ratings:   &rating.Service{Store: store},
		Payments:  payments,
		Emergency: &emergency.Service{Store: store},
		Settings:  &settings.Service{Store: store},
		Reports:   &report.Service{Store: store, Stats: stats},
		Tokens:    auth.NewTokens(cfg.JWTAccessSecret, cfg.JWTAccessExpire),
		WSReg:     registry,
		Ready: func(ctx context.Context) error {
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("store: %w", err)
			}
			if rc != nil {
				if err := rc.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		},
	}, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ride-api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
