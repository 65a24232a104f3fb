// README: Entry point; loads config, wires stores and services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ridebook/internal/calendar"
	"ridebook/internal/config"
	"ridebook/internal/events"
	httptransport "ridebook/internal/http"
	"ridebook/internal/infra"
	"ridebook/internal/logging"
	"ridebook/internal/maps"
	"ridebook/internal/metrics"
	"ridebook/internal/modules/pricing"
	"ridebook/internal/modules/ride"
	"ridebook/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("RIDEBOOK_CONFIG"), "path to YAML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		metrics.Register()
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN, infra.DBOptions{
		MaxConns:        cfg.DB.MaxConns,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return err
	}
	defer dbPool.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = infra.NewRedis(ctx, infra.RedisOptions{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	opts := []ride.Option{
		ride.WithLogger(logger.With().Str("component", "ride").Logger()),
		ride.WithSurcharges(ride.Surcharges{
			Holiday:         calendar.Holiday{Month: time.Month(cfg.Pricing.HolidayMonth), Day: cfg.Pricing.HolidayDay},
			SurgeMultiplier: cfg.Pricing.SurgeMultiplier,
			PremiumFee:      cfg.Pricing.PremiumFee,
		}),
	}

	var distance ride.DistanceProvider
	if cfg.Maps.APIKey != "" {
		svc, err := maps.NewDistanceService(cfg.Maps.APIKey, cfg.Maps.Timeout, *logger)
		if err != nil {
			return fmt.Errorf("init maps: %w", err)
		}
		distance = svc
		if rdb != nil {
			distance = maps.NewCachedDistance(svc, rdb, cfg.Redis.CacheTTL, *logger)
		}
		if cfg.Maps.ResolveCities {
			opts = append(opts, ride.WithCityResolver(svc))
		}
	} else {
		logger.Warn().Msg("maps api key not set; bookings must carry distance_km")
	}

	var publisher ride.Publisher = events.Nop{}
	if cfg.Kafka.Enabled {
		writer := infra.NewKafkaWriter(infra.KafkaOptions{Brokers: cfg.Kafka.Brokers})
		kp := events.NewKafkaPublisher(writer, cfg.Kafka.Topic, *logger)
		defer kp.Close()
		publisher = kp
	}
	opts = append(opts, ride.WithPublisher(publisher))

	rate := pricing.DefaultRate
	if cfg.Pricing.Hub != "" {
		rate.Hub = cfg.Pricing.Hub
	}
	rideSvc := ride.NewService(
		storage.NewPostgres(dbPool),
		pricing.NewService(rate),
		calendar.NewSystem(cfg.Location()),
		distance,
		opts...,
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	handler := httptransport.NewServer(httptransport.ServerDeps{
		Rides:       rideSvc,
		Logger:      *logger,
		MetricsPath: metricsPath,
		Ready:       readiness(dbPool.Ping, rdb),
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	logger.Info().Msg("shutting down")
	return shutdown(shutdownCtx, server, *logger)
}

func readiness(pingDB func(context.Context) error, rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pingDB(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}

func shutdown(ctx context.Context, server *http.Server, logger zerolog.Logger) error {
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
