// Command server runs the tillgate admission gateway: rate limiting, request
// guarding, and identity resolution in front of the point-of-sale back
// office.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	idMetrics "tillgate/internal/identity/metrics"
	"tillgate/internal/identity/resolver"
	idService "tillgate/internal/identity/service"
	"tillgate/internal/identity/store/account"
	"tillgate/internal/identity/token"
	"tillgate/internal/platform/audit"
	"tillgate/internal/platform/config"
	"tillgate/internal/platform/health"
	"tillgate/internal/platform/httpserver"
	"tillgate/internal/platform/logger"
	"tillgate/internal/platform/redis"
	rlAdmin "tillgate/internal/ratelimit/admin"
	rlConfig "tillgate/internal/ratelimit/config"
	rlMetrics "tillgate/internal/ratelimit/metrics"
	rlService "tillgate/internal/ratelimit/service"
	"tillgate/internal/ratelimit/store/client"
	"tillgate/internal/ratelimit/workers/sweeper"
	"tillgate/internal/transport/router"
)

func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(config.FromEnv(), log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	limiterMetrics := rlMetrics.New(registry)
	identityMetrics := idMetrics.New(registry)

	healthHandler := health.New(cfg.Environment)

	var auditPublisher audit.Publisher
	if cfg.Kafka.Brokers != "" {
		kafkaPublisher, err := audit.NewKafkaPublisher(cfg.Kafka, log)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var limiterStore client.Store
	if redisClient != nil {
		limiterStore = client.NewRedisStore(redisClient.Client)
		healthHandler.RegisterCheck("redis", redisClient.HealthCheck)
		log.Info("rate limit state in redis")
	} else {
		limiterStore = client.NewInMemoryStore()
		log.Info("rate limit state in memory")
	}

	var accounts account.Store
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		healthHandler.RegisterCheck("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		})
		accounts = account.NewPostgres(pool)
	} else {
		memory := account.NewInMemory()
		if err := memory.SeedDefaults(ctx); err != nil {
			return err
		}
		accounts = memory
		log.Warn("using seeded in-memory account store; set POSTGRES_DSN for durable accounts")
	}

	limiterConfig := rlConfig.DefaultConfig()
	limiter, err := rlService.New(limiterStore,
		rlService.WithLogger(log),
		rlService.WithConfig(limiterConfig),
		rlService.WithMetrics(limiterMetrics),
		rlService.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return err
	}

	tokens := token.NewJWTService(cfg.JWTSigningKey, cfg.TokenTTL)
	principals := resolver.New(accounts, tokens,
		resolver.WithLogger(log),
		resolver.WithMetrics(identityMetrics),
	)
	identity := idService.New(accounts, tokens,
		idService.WithLogger(log),
		idService.WithMetrics(identityMetrics),
		idService.WithAuditPublisher(auditPublisher),
	)

	sweep := sweeper.New(limiterStore,
		sweeper.WithLogger(log),
		sweeper.WithInterval(limiterConfig.Sweep.Interval),
		sweeper.WithRetention(limiterConfig.Sweep.Retention),
		sweeper.WithMetrics(limiterMetrics),
	)

	handler := router.New(router.Deps{
		Logger:         log,
		Limiter:        limiter,
		LimiterAdmin:   rlAdmin.New(limiterStore, log),
		Resolver:       principals,
		Identity:       identity,
		Health:         healthHandler,
		Registry:       registry,
		RequestTimeout: cfg.RequestTimeout,
	})

	server := httpserver.New(cfg.Addr, handler)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return sweep.Start(groupCtx)
	})

	group.Go(func() error {
		log.Info("listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
