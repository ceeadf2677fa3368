// Command server runs the registration engine: HTTP API, expiry sweeper,
// and audit pipeline. Business logic lives in the internal packages; main
// only wires dependencies and supervises their lifecycles.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cathandler "entrant/internal/catalog/handler"
	catmetrics "entrant/internal/catalog/metrics"
	catservice "entrant/internal/catalog/service"
	catstore "entrant/internal/catalog/store"
	"entrant/internal/jwttoken"
	"entrant/internal/platform/config"
	"entrant/internal/platform/httpserver"
	"entrant/internal/platform/logger"
	"entrant/internal/platform/middleware"
	"entrant/internal/platform/postgres"
	"entrant/internal/platform/ratelimit"
	platformredis "entrant/internal/platform/redis"
	reghandler "entrant/internal/registration/handler"
	regmetrics "entrant/internal/registration/metrics"
	"entrant/internal/registration/pendingindex"
	regservice "entrant/internal/registration/service"
	regstore "entrant/internal/registration/store"
	"entrant/internal/registration/sweeper"
	"entrant/internal/roster"
	httptransport "entrant/internal/transport/http"
	"entrant/pkg/platform/audit/publisher"
	kafkasink "entrant/pkg/platform/audit/sink/kafka"
	auditpg "entrant/pkg/platform/audit/store/postgres"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Error("schema migration failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit fan-out: Postgres store always, Kafka when brokers are set.
	auditDB, err := auditpg.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("audit store open failed", "error", err)
		os.Exit(1)
	}
	defer auditDB.Close()
	sinks := []publisher.Sink{auditpg.New(auditDB)}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := kafkasink.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka sink init failed", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		sinks = append(sinks, kafka)
	}
	auditPublisher := publisher.NewPublisher(sinks,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "entrant", "entrant")

	catalogSvc := catservice.New(catstore.NewPostgres(pool),
		catservice.WithLogger(log),
		catservice.WithAuditPublisher(auditPublisher),
		catservice.WithMetrics(catmetrics.New()),
	)
	rosterSvc := roster.NewService(roster.NewPostgres(pool))

	regOpts := []regservice.Option{
		regservice.WithLogger(log),
		regservice.WithAuditPublisher(auditPublisher),
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithPaymentTTL(cfg.PendingPaymentTTL),
	}
	if redisClient != nil {
		regOpts = append(regOpts, regservice.WithPendingIndex(pendingindex.NewRedis(redisClient.Client)))
	}
	registrationSvc := regservice.New(regstore.NewPostgres(pool), catalogSvc, rosterSvc, regOpts...)

	health := map[string]httptransport.HealthChecker{
		"postgres": httptransport.HealthFunc(pool.Ping),
	}
	if redisClient != nil {
		health["redis"] = redisClient
	}

	var primaryLimiter ratelimit.Limiter
	if redisClient != nil {
		primaryLimiter = ratelimit.NewRedis(redisClient.Client)
	}
	rateLimiter := middleware.NewRateLimiter(primaryLimiter, log,
		middleware.WithLimit(cfg.RateLimitPerMinute, time.Minute))

	router := httptransport.NewRouter(httptransport.Deps{
		Registrations: reghandler.New(registrationSvc, log),
		Catalog:       cathandler.New(catalogSvc, log),
		Auth:          jwtService,
		RateLimit:     rateLimiter,
		Logger:        log,
		Health:        health,
	})
	srv := httpserver.New(cfg.Addr, router,
		httpserver.WithTimeouts(cfg.HTTPReadTimeout, cfg.HTTPWriteTimeout))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := sweeper.New(registrationSvc, cfg.SweepInterval, log).Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
