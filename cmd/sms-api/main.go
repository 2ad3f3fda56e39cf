package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ajayykmr/sms-dispatch-service/internal/bootstrap"
	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	httpapi "github.com/ajayykmr/sms-dispatch-service/internal/http"
	"github.com/ajayykmr/sms-dispatch-service/internal/http/handlers"
	"github.com/ajayykmr/sms-dispatch-service/internal/kafka/producer"
	kafkapublisher "github.com/ajayykmr/sms-dispatch-service/internal/kafka/publisher"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/notification"
	"github.com/ajayykmr/sms-dispatch-service/internal/observability"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "sms-api").Logger()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise tracing")
	}
	defer shutdownWithTimeout(log, "tracing", shutdownOTel)

	core, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise storage")
	}
	defer func() {
		if err := core.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close storage")
		}
	}()

	prod, err := producer.New(cfg.Kafka.Brokers, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer func() {
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	requests, err := kafkapublisher.NewRequestPublisher(prod, cfg.Kafka.RequestTopic, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create request publisher")
	}

	svc, err := notification.NewService(core.Ledger, requests, core.Projector, core.Gate, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise notification service")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.Options{
		Service:        svc,
		Logger:         log,
		ServiceName:    cfg.OTEL.ServiceName,
		AllowedOrigins: cfg.App.CORSOrigins,
		HealthChecks: map[string]handlers.Check{
			"database": core.PingDB,
			"redis":    core.PingRedis,
			"kafka": func(context.Context) error {
				if !prod.IsReady() {
					return errors.New("producer not ready")
				}
				return nil
			},
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().
		Int("port", cfg.App.Port).
		Str("request_topic", cfg.Kafka.RequestTopic).
		Msg("sms api started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server terminated with error")
		}
	}
	shutdownWithTimeout(log, "http server", srv.Shutdown)
}

func shutdownWithTimeout(log zerolog.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("component", name).Msg("shutdown failed")
	}
}

func fail(stage string, err error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Fatal().Err(err).Str("stage", stage).Msg("sms api init failed")
}
