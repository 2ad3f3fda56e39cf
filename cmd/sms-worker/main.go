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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	common "github.com/ajayykmr/sms-dispatch-service/internal/adapters/common"
	smsadapter "github.com/ajayykmr/sms-dispatch-service/internal/adapters/sms"
	"github.com/ajayykmr/sms-dispatch-service/internal/bootstrap"
	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	"github.com/ajayykmr/sms-dispatch-service/internal/kafka/consumer"
	"github.com/ajayykmr/sms-dispatch-service/internal/kafka/producer"
	kafkapublisher "github.com/ajayykmr/sms-dispatch-service/internal/kafka/publisher"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/observability"
	"github.com/ajayykmr/sms-dispatch-service/internal/providers/factory"
	"github.com/ajayykmr/sms-dispatch-service/internal/ratelimit"
	"github.com/ajayykmr/sms-dispatch-service/internal/worker"
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
	log := baseLogger.With().Str("service", "sms-worker").Logger()

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

	cons, err := consumer.New(cfg.Kafka, log, consumer.WithMaxMessageBytes(cfg.Worker.MsgMaxBytes))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}
	defer func() {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	responses, err := kafkapublisher.NewResponsePublisher(prod, cfg.Kafka.ResponseTopic, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create response publisher")
	}

	gateway, err := buildGateway(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise sms gateway")
	}

	deps := worker.Dependencies{
		Gate:      core.Gate,
		Gateway:   gateway,
		Ledger:    core.Ledger,
		Publisher: responses,
		Committer: worker.CommitFunc{},
		Logger:    log,
	}
	if cfg.RateLimit.Enabled {
		deps.Limiter = ratelimit.New(cfg.RateLimit)
		log.Info().
			Int("per_minute", cfg.RateLimit.PerMinute).
			Int("per_hour", cfg.RateLimit.PerHour).
			Msg("per-phone rate limiting enabled")
	}

	engine, err := worker.NewEngine(worker.Config{
		MsgMaxBytes: cfg.Worker.MsgMaxBytes,
		Concurrency: cfg.Worker.Concurrency,
	}, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise worker engine")
	}

	metricsSrv := metricsServer(cfg.App.MetricsPort, func() bool { return cons.IsReady() && prod.IsReady() })
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics listener stopped")
		}
	}()
	defer shutdownWithTimeout(log, "metrics listener", metricsSrv.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		if err := cons.Run(ctx, worker.KafkaHandler(engine, cons)); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().
		Str("request_topic", cfg.Kafka.RequestTopic).
		Str("response_topic", cfg.Kafka.ResponseTopic).
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("sms worker started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("consumer terminated with error")
		}
	}
}

// buildGateway composes provider, adapter and the optional retry wrapper.
func buildGateway(cfg *config.Config, log zerolog.Logger) (common.Gateway, error) {
	provider, err := factory.SMS(cfg.Provider, log)
	if err != nil {
		return nil, err
	}
	adapter, err := smsadapter.NewAdapter(provider, log, smsadapter.WithTimeout(cfg.Provider.Timeout))
	if err != nil {
		return nil, err
	}
	if !cfg.Retry.Enabled {
		return adapter, nil
	}
	log.Info().
		Int("max_attempts", cfg.Retry.MaxAttempts).
		Dur("base_backoff", cfg.Retry.BaseBackoff).
		Msg("gateway retry enabled")
	retrying, err := smsadapter.NewRetryingGateway(adapter, cfg.Retry, log)
	if err != nil {
		return nil, err
	}
	return retrying, nil
}

func metricsServer(port int, ready func() bool) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		if !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"DOWN"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"UP"}`))
	})
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
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
	logger.Fatal().Err(err).Str("stage", stage).Msg("sms worker init failed")
}
